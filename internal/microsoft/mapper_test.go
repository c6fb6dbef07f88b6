package microsoft

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloudgate/internal/api"
	"cloudgate/internal/model"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func driveFile(id, name, mime string) models.DriveItemable {
	item := models.NewDriveItem()
	item.SetId(strPtr(id))
	item.SetName(strPtr(name))
	file := models.NewFile()
	file.SetMimeType(strPtr(mime))
	item.SetFile(file)
	return item
}

func TestToEntityFile(t *testing.T) {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 2, 20, 8, 30, 0, 0, time.UTC)

	item := driveFile("item-1", "testfile.jpg", "image/jpeg")
	item.SetSize(int64Ptr(2048))
	item.SetCreatedDateTime(&created)
	item.SetLastModifiedDateTime(&modified)
	ref := models.NewItemReference()
	ref.SetId(strPtr("parent-1"))
	item.SetParentReference(ref)

	e := toEntity(item)
	require.NotNil(t, e)

	assert.Equal(t, "item-1", e.ID)
	assert.Equal(t, model.EntityFile, e.Type)
	assert.Equal(t, "image/jpeg", e.MimeType)
	assert.Equal(t, "jpg", e.Extension)
	assert.Equal(t, "parent-1", e.ParentID)
	require.NotNil(t, e.Size)
	assert.EqualValues(t, 2048, *e.Size)
	require.NotNil(t, e.CreatedTime)
	require.NotNil(t, e.ModifiedTime)
}

func TestToEntityFolder(t *testing.T) {
	item := models.NewDriveItem()
	item.SetId(strPtr("dir-1"))
	item.SetName(strPtr("Documents"))
	item.SetFolder(models.NewFolder())

	e := toEntity(item)
	require.NotNil(t, e)
	assert.Equal(t, model.EntityFolder, e.Type)
	assert.Empty(t, e.MimeType)
	assert.Nil(t, e.Size)
}

func TestToEntityFacetlessItemDropped(t *testing.T) {
	item := models.NewDriveItem()
	item.SetId(strPtr("pkg-1"))
	item.SetName(strPtr("Notebook"))
	assert.Nil(t, toEntity(item))

	assert.Nil(t, toEntity(nil))
	assert.Nil(t, toEntity(models.NewDriveItem()))
}

func TestEntityFromRaw(t *testing.T) {
	var item driveItem
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "item-9",
		"name": "report.pdf",
		"size": 512,
		"createdDateTime": "2024-01-15T10:00:00Z",
		"lastModifiedDateTime": "2024-02-20T08:30:00Z",
		"file": {"mimeType": "application/pdf"},
		"parentReference": {"id": "parent-2"}
	}`), &item))

	e := entityFromRaw(&item)
	require.NotNil(t, e)
	assert.Equal(t, "item-9", e.ID)
	assert.Equal(t, "application/pdf", e.MimeType)
	assert.Equal(t, "parent-2", e.ParentID)
	require.NotNil(t, e.Size)
	assert.EqualValues(t, 512, *e.Size)
	require.NotNil(t, e.CreatedTime)
}

func TestEntityFromRawMissingTimestampsStayNil(t *testing.T) {
	var item driveItem
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","name":"y","folder":{}}`), &item))

	e := entityFromRaw(&item)
	require.NotNil(t, e)
	assert.Equal(t, model.EntityFolder, e.Type)
	assert.Nil(t, e.CreatedTime)
	assert.Nil(t, e.ModifiedTime)
}

func TestRoleFromNativePicksStrongest(t *testing.T) {
	role, ok := roleFromNative([]string{"read", "write"})
	require.True(t, ok)
	assert.Equal(t, model.RoleWriter, role)

	role, ok = roleFromNative([]string{"owner"})
	require.True(t, ok)
	assert.Equal(t, model.RoleOwner, role)

	_, ok = roleFromNative([]string{"sp.full control"})
	assert.False(t, ok)
}

func TestRoleToNativeOwnerNotSupported(t *testing.T) {
	native, err := roleToNative(model.RoleReader)
	require.NoError(t, err)
	assert.Equal(t, "read", native)

	_, err = roleToNative(model.RoleOwner)
	var notSupported *api.NotSupportedError
	require.True(t, errors.As(err, &notSupported))

	_, err = roleToNative(model.RoleCommenter)
	assert.True(t, errors.As(err, &notSupported))
}

func newUserPermission(id, role string) models.Permissionable {
	p := models.NewPermission()
	p.SetId(strPtr(id))
	p.SetRoles([]string{role})
	user := models.NewIdentity()
	user.SetId(strPtr("user-1"))
	user.SetDisplayName(strPtr("A User"))
	user.SetAdditionalData(map[string]any{"email": "user@example.com"})
	granted := models.NewSharePointIdentitySet()
	granted.SetUser(user)
	p.SetGrantedToV2(granted)
	return p
}

func TestToPermissionUser(t *testing.T) {
	perm := toPermission(newUserPermission("perm-1", "write"))
	require.NotNil(t, perm)

	assert.Equal(t, "perm-1", perm.ID)
	assert.Equal(t, model.RoleWriter, perm.Role)
	assert.Equal(t, model.IdentityUser, perm.Identity.Kind)
	assert.Equal(t, "user@example.com", perm.Identity.EmailAddress)
	// No inheritedFrom reference means direct, and that is known.
	require.NotNil(t, perm.Inherited)
	assert.False(t, *perm.Inherited)
}

func TestToPermissionInherited(t *testing.T) {
	p := newUserPermission("perm-2", "read")
	p.SetInheritedFrom(models.NewItemReference())

	perm := toPermission(p)
	require.NotNil(t, perm)
	require.NotNil(t, perm.Inherited)
	assert.True(t, *perm.Inherited)
}

func TestToPermissionAnonymousLink(t *testing.T) {
	p := models.NewPermission()
	p.SetId(strPtr("link-1"))
	p.SetRoles([]string{"read"})
	link := models.NewSharingLink()
	link.SetScope(strPtr("anonymous"))
	p.SetLink(link)

	perm := toPermission(p)
	require.NotNil(t, perm)
	assert.Equal(t, model.IdentityAnyone, perm.Identity.Kind)
}

func TestToPermissionUnresolvableDropped(t *testing.T) {
	p := models.NewPermission()
	p.SetId(strPtr("org-link"))
	p.SetRoles([]string{"read"})
	link := models.NewSharingLink()
	link.SetScope(strPtr("organization"))
	p.SetLink(link)
	assert.Nil(t, toPermission(p))

	unknownRole := newUserPermission("p", "sp.full control")
	assert.Nil(t, toPermission(unknownRole))
}

func TestToInviteRequest(t *testing.T) {
	body, err := toInviteRequest(model.CreatePermission{
		Kind:                  model.RecipientUser,
		Email:                 "new@example.com",
		Role:                  model.RoleWriter,
		SendNotificationEmail: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"write"}, body.GetRoles())
	require.NotNil(t, body.GetSendInvitation())
	assert.True(t, *body.GetSendInvitation())
	require.Len(t, body.GetRecipients(), 1)
	assert.Equal(t, "new@example.com", *body.GetRecipients()[0].GetEmail())
}

func TestToInviteRequestRejectsUnaddressableKinds(t *testing.T) {
	var notSupported *api.NotSupportedError

	_, err := toInviteRequest(model.CreatePermission{Kind: model.RecipientDomain, Domain: "example.com", Role: model.RoleReader})
	require.True(t, errors.As(err, &notSupported))

	_, err = toInviteRequest(model.CreatePermission{Kind: model.RecipientUser, Email: "x@example.com", Role: model.RoleOwner})
	require.True(t, errors.As(err, &notSupported))
	assert.Contains(t, notSupported.Operation, "ownership")
}

func TestToVersionsNewestFirst(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	v1 := models.NewDriveItemVersion()
	v1.SetId(strPtr("1.0"))
	v1.SetLastModifiedDateTime(&older)
	v1.SetSize(int64Ptr(10))

	v2 := models.NewDriveItemVersion()
	v2.SetId(strPtr("2.0"))
	v2.SetLastModifiedDateTime(&newer)
	v2.SetSize(int64Ptr(20))

	versions := toVersions("item-1", []models.DriveItemVersionable{v1, v2, nil})
	require.Len(t, versions, 2)
	assert.Equal(t, "2.0", versions[0].VersionID)
	assert.Equal(t, "1.0", versions[1].VersionID)
	assert.Equal(t, "item-1", versions[0].FileID)
}
