package model

import (
	"sort"
	"time"
)

// Provider identifies a cloud storage backend.
type Provider string

const (
	ProviderGoogle    Provider = "Google"
	ProviderMicrosoft Provider = "Microsoft"
	ProviderDropbox   Provider = "Dropbox"
)

// EntityType distinguishes the two kinds of storage entities.
type EntityType string

const (
	EntityFile   EntityType = "file"
	EntityFolder EntityType = "folder"
)

// Entity is the unified representation of a remote file or folder.
// Instances are built exclusively by a backend mapper and are never
// mutated afterwards; a write operation is followed by a fresh fetch.
// Optional fields are pointers so that "the backend did not say" stays
// distinguishable from a zero value.
type Entity struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         EntityType `json:"type"`
	ParentID     string     `json:"parent_id,omitempty"`
	CreatedTime  *time.Time `json:"created_time,omitempty"`
	ModifiedTime *time.Time `json:"modified_time,omitempty"`

	// File-only fields. Folders leave all three unset.
	MimeType  string `json:"mime_type,omitempty"`
	Extension string `json:"extension,omitempty"`
	Size      *int64 `json:"size,omitempty"`
}

// IsFolder reports whether the entity is a folder.
func (e *Entity) IsFolder() bool {
	return e.Type == EntityFolder
}

// Metadata wraps an Entity together with the verbatim backend response
// for escape-hatch access. Callers must treat Original as read-only.
type Metadata struct {
	Entity   Entity
	Original any
}

// Role is the unified permission role. Not every backend supports every
// role; mappers fail loudly on create/update for unsupported ones.
type Role string

const (
	RoleOwner         Role = "owner"
	RoleOrganizer     Role = "organizer"
	RoleFileOrganizer Role = "fileOrganizer"
	RoleWriter        Role = "writer"
	RoleCommenter     Role = "commenter"
	RoleReader        Role = "reader"
)

// IdentityKind is the kind of subject a permission is granted to.
type IdentityKind string

const (
	IdentityUser        IdentityKind = "user"
	IdentityGroup       IdentityKind = "group"
	IdentityDomain      IdentityKind = "domain"
	IdentityAnyone      IdentityKind = "anyone"
	IdentityApplication IdentityKind = "application"
	IdentityDevice      IdentityKind = "device"
)

// Identity carries whatever subset of subject attributes the backend
// actually returned. Absent fields stay zero / nil, never fabricated.
type Identity struct {
	Kind           IdentityKind `json:"kind"`
	ID             string       `json:"id,omitempty"`
	DisplayName    string       `json:"display_name,omitempty"`
	EmailAddress   string       `json:"email_address,omitempty"`
	Domain         string       `json:"domain,omitempty"`
	PhotoLink      string       `json:"photo_link,omitempty"`
	ExpirationTime *time.Time   `json:"expiration_time,omitempty"`
	Deleted        *bool        `json:"deleted,omitempty"`
	PendingOwner   *bool        `json:"pending_owner,omitempty"`
}

// Permission is a single access grant on a file. The ID is unique per
// file, not globally. Inherited is nil when the backend cannot report
// whether the grant was inherited from a parent.
type Permission struct {
	ID        string   `json:"id"`
	Role      Role     `json:"role"`
	Inherited *bool    `json:"inherited,omitempty"`
	Identity  Identity `json:"identity"`
}

// RecipientKind selects how a CreatePermission addresses its recipient.
type RecipientKind string

const (
	RecipientUser     RecipientKind = "user"     // by e-mail
	RecipientGroup    RecipientKind = "group"    // by e-mail
	RecipientDomain   RecipientKind = "domain"   // by domain name
	RecipientAnyone   RecipientKind = "anyone"   // public
	RecipientObjectID RecipientKind = "objectId" // backend-native object id
	RecipientAlias    RecipientKind = "alias"    // backend-native alias
)

// CreatePermission is the write-side request for granting access. It is
// never returned by reads. Exactly one of Email/Domain/ObjectID/Alias is
// set, matching Kind.
type CreatePermission struct {
	Kind     RecipientKind
	Email    string
	Domain   string
	ObjectID string
	Alias    string
	Role     Role

	// SendNotificationEmail is advisory: backends that couple ownership
	// transfer to a notification mail override it for RoleOwner.
	SendNotificationEmail bool
}

// FileVersion is one entry of a file's version/revision history.
type FileVersion struct {
	FileID       string    `json:"file_id"`
	VersionID    string    `json:"version_id"`
	LastModified time.Time `json:"last_modified"`
	Size         *int64    `json:"size,omitempty"`
}

// SortVersions orders a version list newest first, which is the ordering
// contract for every backend regardless of its native order.
func SortVersions(versions []FileVersion) {
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].LastModified.After(versions[j].LastModified)
	})
}

// StorageQuota describes account storage usage.
type StorageQuota struct {
	TotalBytes     int64    `json:"total_bytes"`
	UsedBytes      int64    `json:"used_bytes"`
	RemainingBytes int64    `json:"remaining_bytes"`
	OwnerEmail     string   `json:"owner_email,omitempty"`
	Provider       Provider `json:"provider"`
}

// Int64 returns a pointer to v. Mappers use it for optional numerics.
func Int64(v int64) *int64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// TimePtr returns nil for a zero time, otherwise a pointer to t. Keeps
// "backend omitted the timestamp" from turning into an epoch date.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
