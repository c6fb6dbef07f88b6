package dropbox

import (
	"path"
	"strings"
	"time"

	"cloudgate/internal/api"
	"cloudgate/internal/model"
)

// toEntity maps a Dropbox metadata entry to the unified entity. Returns
// nil for entries missing mandatory fields or of an unrecognized kind
// (e.g. deleted-entry placeholders).
func toEntity(e *entryMetadata) *model.Entity {
	if e == nil || e.ID == "" || e.Name == "" {
		return nil
	}

	entity := &model.Entity{
		ID:       e.ID,
		Name:     e.Name,
		ParentID: parentPathOf(e.PathLower),
	}

	switch e.Tag {
	case tagFolder:
		// Dropbox never supplies timestamps for folders; both stay nil.
		entity.Type = model.EntityFolder
		return entity
	case tagFile:
		entity.Type = model.EntityFile
	default:
		return nil
	}

	entity.ModifiedTime = parseTime(e.ServerModified)
	// Dropbox has no creation timestamp; CreatedTime stays nil.
	entity.Extension = model.ExtensionOf(e.Name)
	entity.Size = model.Int64(e.Size)
	return entity
}

// parentPathOf derives the parent path of an entry. Dropbox has no
// parent object id, so the lowercased parent path stands in for one;
// the root maps to "".
func parentPathOf(pathLower string) string {
	if pathLower == "" {
		return ""
	}
	parent := path.Dir(pathLower)
	if parent == "/" || parent == "." {
		return ""
	}
	return parent
}

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

// accessLevels maps Dropbox access levels onto unified roles. Levels
// with no equivalent (viewer_no_comment, traverse) are absent, so their
// grants drop out of listings.
var accessLevels = map[string]model.Role{
	"owner":  model.RoleOwner,
	"editor": model.RoleWriter,
	"viewer": model.RoleReader,
}

// roleToAccessLevel maps a unified role onto Dropbox's vocabulary for
// member writes. Ownership cannot be granted through add_file_member.
func roleToAccessLevel(role model.Role) (string, error) {
	switch role {
	case model.RoleWriter:
		return "editor", nil
	case model.RoleReader:
		return "viewer", nil
	default:
		return "", &api.NotSupportedError{Operation: "role " + string(role) + " on Dropbox"}
	}
}

// toPermission maps one membership to the unified grant. Returns nil
// when the access level or member kind is unrepresentable.
func toPermission(m *membershipInfo) *model.Permission {
	if m == nil {
		return nil
	}
	role, ok := accessLevels[m.AccessType.Tag]
	if !ok {
		return nil
	}

	perm := &model.Permission{Role: role, Inherited: m.IsInherited}
	switch {
	case m.User != nil:
		perm.ID = m.User.AccountID
		perm.Identity = model.Identity{
			Kind:         model.IdentityUser,
			ID:           m.User.AccountID,
			DisplayName:  m.User.DisplayName,
			EmailAddress: m.User.Email,
		}
	case m.Group != nil:
		perm.ID = m.Group.GroupID
		perm.Identity = model.Identity{
			Kind:        model.IdentityGroup,
			ID:          m.Group.GroupID,
			DisplayName: m.Group.GroupName,
		}
	case m.Invitee != nil && m.Invitee.Email != "":
		perm.ID = m.Invitee.Email
		perm.Identity = model.Identity{
			Kind:         model.IdentityUser,
			EmailAddress: m.Invitee.Email,
		}
	default:
		return nil
	}
	return perm
}

// toMemberSelector builds the native recipient selector. Dropbox cannot
// address a group by e-mail; groups require an object-id recipient.
func toMemberSelector(req model.CreatePermission) (memberSelector, error) {
	switch req.Kind {
	case model.RecipientUser:
		return memberSelector{Tag: "email", Email: req.Email}, nil
	case model.RecipientObjectID:
		return memberSelector{Tag: "dropbox_id", DropboxID: req.ObjectID}, nil
	case model.RecipientGroup:
		return memberSelector{}, &api.NotSupportedError{
			Operation:   "CreatePermission for a group by e-mail on Dropbox",
			Alternative: "a WithObjectId recipient carrying the group's id",
		}
	default:
		return memberSelector{}, &api.NotSupportedError{
			Operation: "CreatePermission with recipient kind " + string(req.Kind) + " on Dropbox",
		}
	}
}

// selectorForPermissionID rebuilds a member selector from a unified
// permission id produced by toPermission.
func selectorForPermissionID(permissionID string) memberSelector {
	if strings.Contains(permissionID, "@") {
		return memberSelector{Tag: "email", Email: permissionID}
	}
	return memberSelector{Tag: "dropbox_id", DropboxID: permissionID}
}

// toVersions maps a revision listing, newest first.
func toVersions(fileID string, entries []entryMetadata) []model.FileVersion {
	versions := make([]model.FileVersion, 0, len(entries))
	for _, e := range entries {
		if e.Rev == "" {
			continue
		}
		v := model.FileVersion{FileID: fileID, VersionID: e.Rev}
		if t := parseTime(e.ServerModified); t != nil {
			v.LastModified = *t
		}
		if e.Size > 0 {
			v.Size = model.Int64(e.Size)
		}
		versions = append(versions, v)
	}
	model.SortVersions(versions)
	return versions
}

// exportFormats maps requested mime types onto Dropbox export formats.
var exportFormats = map[string]string{
	"application/pdf": "pdf",
	"text/html":       "html",
	"text/markdown":   "markdown",
}
