package google

import (
	"strings"
	"time"

	"cloudgate/internal/api"
	"cloudgate/internal/model"

	"google.golang.org/api/drive/v3"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"

	// Proprietary Google formats have no byte size and cannot be
	// downloaded verbatim; they require ExportFile.
	googleAppsPrefix = "application/vnd.google-apps."
)

// toEntity maps a Drive file to the unified entity. Returns nil when the
// native object lacks mandatory fields; callers filter nils out of
// listings instead of failing them.
func toEntity(f *drive.File) *model.Entity {
	if f == nil || f.Id == "" || f.Name == "" {
		return nil
	}

	e := &model.Entity{
		ID:           f.Id,
		Name:         f.Name,
		CreatedTime:  parseTime(f.CreatedTime),
		ModifiedTime: parseTime(f.ModifiedTime),
	}
	if len(f.Parents) > 0 {
		e.ParentID = f.Parents[0]
	}

	// Drive marks folders with a sentinel mime type.
	if f.MimeType == folderMimeType {
		e.Type = model.EntityFolder
		return e
	}

	e.Type = model.EntityFile
	e.MimeType = f.MimeType
	e.Extension = model.ExtensionOf(f.Name)
	if !strings.HasPrefix(f.MimeType, googleAppsPrefix) {
		e.Size = model.Int64(f.Size)
	}
	return e
}

// parseTime maps an RFC 3339 timestamp, leaving absent values nil
// rather than an epoch placeholder.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

var nativeRoles = map[string]model.Role{
	"owner":         model.RoleOwner,
	"organizer":     model.RoleOrganizer,
	"fileOrganizer": model.RoleFileOrganizer,
	"writer":        model.RoleWriter,
	"commenter":     model.RoleCommenter,
	"reader":        model.RoleReader,
}

// roleToNative maps a unified role onto Drive's role vocabulary. Drive
// supports the full set.
func roleToNative(role model.Role) (string, error) {
	for native, unified := range nativeRoles {
		if unified == role {
			return native, nil
		}
	}
	return "", &api.NotSupportedError{Operation: "role " + string(role) + " on Google Drive"}
}

// toPermission maps a Drive permission grant. Returns nil when the role
// or identity kind has no unified equivalent; such grants are dropped
// from listings.
func toPermission(p *drive.Permission) *model.Permission {
	if p == nil || p.Id == "" {
		return nil
	}
	role, ok := nativeRoles[p.Role]
	if !ok {
		return nil
	}

	identity := model.Identity{
		ID:             p.Id,
		DisplayName:    p.DisplayName,
		EmailAddress:   p.EmailAddress,
		Domain:         p.Domain,
		PhotoLink:      p.PhotoLink,
		ExpirationTime: parseTime(p.ExpirationTime),
	}
	switch p.Type {
	case "user":
		identity.Kind = model.IdentityUser
	case "group":
		identity.Kind = model.IdentityGroup
	case "domain":
		identity.Kind = model.IdentityDomain
	case "anyone":
		identity.Kind = model.IdentityAnyone
	default:
		return nil
	}
	if p.Deleted {
		identity.Deleted = model.Bool(true)
	}
	if p.PendingOwner {
		identity.PendingOwner = model.Bool(true)
	}

	perm := &model.Permission{ID: p.Id, Role: role, Identity: identity}

	// Drive only reports inheritance through permissionDetails (shared
	// drives); without it the fact is unknown and stays nil.
	for _, d := range p.PermissionDetails {
		perm.Inherited = model.Bool(d.Inherited)
		if d.Inherited {
			break
		}
	}
	return perm
}

// toPermissionRequest builds the native create-request. Recipient kinds
// Drive cannot address fail loudly instead of silently downgrading.
func toPermissionRequest(req model.CreatePermission) (*drive.Permission, error) {
	role, err := roleToNative(req.Role)
	if err != nil {
		return nil, err
	}

	perm := &drive.Permission{Role: role}
	switch req.Kind {
	case model.RecipientUser:
		perm.Type = "user"
		perm.EmailAddress = req.Email
	case model.RecipientGroup:
		perm.Type = "group"
		perm.EmailAddress = req.Email
	case model.RecipientDomain:
		perm.Type = "domain"
		perm.Domain = req.Domain
	case model.RecipientAnyone:
		perm.Type = "anyone"
	default:
		return nil, &api.NotSupportedError{
			Operation:   "CreatePermission with recipient kind " + string(req.Kind) + " on Google Drive",
			Alternative: "a user, group, domain, or anyone recipient",
		}
	}
	return perm, nil
}

// toVersions maps a revision listing, newest first. Drive returns
// revisions oldest first.
func toVersions(fileID string, revisions []*drive.Revision) []model.FileVersion {
	versions := make([]model.FileVersion, 0, len(revisions))
	for _, r := range revisions {
		if r == nil || r.Id == "" {
			continue
		}
		v := model.FileVersion{FileID: fileID, VersionID: r.Id}
		if t := parseTime(r.ModifiedTime); t != nil {
			v.LastModified = *t
		}
		if r.Size > 0 {
			v.Size = model.Int64(r.Size)
		}
		versions = append(versions, v)
	}
	model.SortVersions(versions)
	return versions
}
