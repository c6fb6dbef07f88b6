package microsoft

import (
	"cloudgate/internal/api"
	"cloudgate/internal/model"

	"github.com/microsoftgraph/msgraph-sdk-go/drives"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// toEntity maps a Graph drive item to the unified entity. Items that are
// neither a file nor a folder facet (packages, remote items) map to nil
// and are filtered out of listings.
func toEntity(item models.DriveItemable) *model.Entity {
	if item == nil || item.GetId() == nil || item.GetName() == nil {
		return nil
	}
	if *item.GetId() == "" || *item.GetName() == "" {
		return nil
	}

	e := &model.Entity{
		ID:           *item.GetId(),
		Name:         *item.GetName(),
		CreatedTime:  item.GetCreatedDateTime(),
		ModifiedTime: item.GetLastModifiedDateTime(),
	}
	if ref := item.GetParentReference(); ref != nil && ref.GetId() != nil {
		e.ParentID = *ref.GetId()
	}

	switch {
	case item.GetFolder() != nil:
		e.Type = model.EntityFolder
		return e
	case item.GetFile() != nil:
		e.Type = model.EntityFile
	default:
		return nil
	}

	if mime := item.GetFile().GetMimeType(); mime != nil {
		e.MimeType = *mime
	}
	e.Extension = model.ExtensionOf(e.Name)
	if size := item.GetSize(); size != nil {
		e.Size = model.Int64(*size)
	}
	return e
}

// entityFromRaw maps the raw JSON shape the transfer engine receives
// from upload endpoints. Same rules as toEntity.
func entityFromRaw(d *driveItem) *model.Entity {
	if d == nil || d.ID == "" || d.Name == "" {
		return nil
	}

	e := &model.Entity{
		ID:           d.ID,
		Name:         d.Name,
		CreatedTime:  d.CreatedDateTime,
		ModifiedTime: d.LastModifiedDateTime,
	}
	if d.ParentReference != nil {
		e.ParentID = d.ParentReference.ID
	}

	switch {
	case d.Folder != nil:
		e.Type = model.EntityFolder
		return e
	case d.File != nil:
		e.Type = model.EntityFile
	default:
		return nil
	}

	e.MimeType = d.File.MimeType
	e.Extension = model.ExtensionOf(d.Name)
	e.Size = model.Int64(d.Size)
	return e
}

// rolePriority orders Graph roles strongest first; a permission carries
// a role list and the strongest one wins.
var rolePriority = []struct {
	native  string
	unified model.Role
}{
	{"owner", model.RoleOwner},
	{"write", model.RoleWriter},
	{"read", model.RoleReader},
}

func roleFromNative(roles []string) (model.Role, bool) {
	for _, entry := range rolePriority {
		for _, r := range roles {
			if r == entry.native {
				return entry.unified, true
			}
		}
	}
	return "", false
}

// roleToNative maps a unified role onto Graph's vocabulary for grant
// writes. OneDrive has no API for transferring ownership.
func roleToNative(role model.Role) (string, error) {
	switch role {
	case model.RoleWriter:
		return "write", nil
	case model.RoleReader:
		return "read", nil
	case model.RoleOwner:
		return "", &api.NotSupportedError{Operation: "ownership transfer on OneDrive"}
	default:
		return "", &api.NotSupportedError{Operation: "role " + string(role) + " on OneDrive"}
	}
}

// toPermission maps one Graph permission. Anonymous sharing links map to
// an "anyone" grant; other link-only permissions without a resolved
// identity are dropped. Graph always reports inheritedFrom on inherited
// grants, so Inherited is known in both directions.
func toPermission(p models.Permissionable) *model.Permission {
	if p == nil || p.GetId() == nil || *p.GetId() == "" {
		return nil
	}
	role, ok := roleFromNative(p.GetRoles())
	if !ok {
		return nil
	}

	perm := &model.Permission{
		ID:        *p.GetId(),
		Role:      role,
		Inherited: model.Bool(p.GetInheritedFrom() != nil),
	}

	if link := p.GetLink(); link != nil && link.GetScope() != nil && *link.GetScope() == "anonymous" {
		perm.Identity = model.Identity{Kind: model.IdentityAnyone}
		perm.Identity.ExpirationTime = p.GetExpirationDateTime()
		return perm
	}

	granted := p.GetGrantedToV2()
	if granted == nil {
		return nil
	}
	var ident model.Identity
	switch {
	case granted.GetUser() != nil:
		ident = identityFrom(granted.GetUser(), model.IdentityUser)
	case granted.GetGroup() != nil:
		ident = identityFrom(granted.GetGroup(), model.IdentityGroup)
	case granted.GetApplication() != nil:
		ident = identityFrom(granted.GetApplication(), model.IdentityApplication)
	case granted.GetDevice() != nil:
		ident = identityFrom(granted.GetDevice(), model.IdentityDevice)
	default:
		return nil
	}
	ident.ExpirationTime = p.GetExpirationDateTime()
	perm.Identity = ident
	return perm
}

func identityFrom(native models.Identityable, kind model.IdentityKind) model.Identity {
	ident := model.Identity{Kind: kind}
	if native.GetId() != nil {
		ident.ID = *native.GetId()
	}
	if native.GetDisplayName() != nil {
		ident.DisplayName = *native.GetDisplayName()
	}
	ident.EmailAddress = identityEmail(native)
	return ident
}

// identityEmail digs the e-mail out of the identity's additional data;
// Graph models it as an untyped extension property.
func identityEmail(native models.Identityable) string {
	v, ok := native.GetAdditionalData()["email"]
	if !ok {
		return ""
	}
	switch email := v.(type) {
	case string:
		return email
	case *string:
		if email != nil {
			return *email
		}
	}
	return ""
}

// toInviteRequest builds the native invite body. Recipient kinds Graph
// cannot address fail loudly instead of silently downgrading.
func toInviteRequest(req model.CreatePermission) (*drives.ItemItemsItemInvitePostRequestBody, error) {
	role, err := roleToNative(req.Role)
	if err != nil {
		return nil, err
	}

	recipient := models.NewDriveRecipient()
	switch req.Kind {
	case model.RecipientUser, model.RecipientGroup:
		email := req.Email
		recipient.SetEmail(&email)
	case model.RecipientObjectID:
		objectID := req.ObjectID
		recipient.SetObjectId(&objectID)
	case model.RecipientAlias:
		alias := req.Alias
		recipient.SetAlias(&alias)
	default:
		return nil, &api.NotSupportedError{
			Operation:   "CreatePermission with recipient kind " + string(req.Kind) + " on OneDrive",
			Alternative: "a user, group, objectId, or alias recipient",
		}
	}

	body := drives.NewItemItemsItemInvitePostRequestBody()
	body.SetRecipients([]models.DriveRecipientable{recipient})
	body.SetRoles([]string{role})
	requireSignIn := true
	body.SetRequireSignIn(&requireSignIn)
	send := req.SendNotificationEmail
	body.SetSendInvitation(&send)
	return body, nil
}

// toVersions maps a version listing, newest first.
func toVersions(fileID string, items []models.DriveItemVersionable) []model.FileVersion {
	versions := make([]model.FileVersion, 0, len(items))
	for _, item := range items {
		if item == nil || item.GetId() == nil || *item.GetId() == "" {
			continue
		}
		v := model.FileVersion{FileID: fileID, VersionID: *item.GetId()}
		if t := item.GetLastModifiedDateTime(); t != nil {
			v.LastModified = *t
		}
		if size := item.GetSize(); size != nil {
			v.Size = model.Int64(*size)
		}
		versions = append(versions, v)
	}
	model.SortVersions(versions)
	return versions
}
