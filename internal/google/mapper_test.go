package google

import (
	"errors"
	"testing"

	"cloudgate/internal/api"
	"cloudgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
)

func TestToEntityFile(t *testing.T) {
	e := toEntity(&drive.File{
		Id:           "f1",
		Name:         "testfile.jpg",
		MimeType:     "image/jpeg",
		Size:         2048,
		CreatedTime:  "2024-01-15T10:00:00Z",
		ModifiedTime: "2024-02-20T08:30:00Z",
		Parents:      []string{"parent-1"},
	})
	require.NotNil(t, e)

	assert.Equal(t, "f1", e.ID)
	assert.Equal(t, model.EntityFile, e.Type)
	assert.Equal(t, "image/jpeg", e.MimeType)
	assert.Equal(t, "jpg", e.Extension)
	assert.Equal(t, "parent-1", e.ParentID)
	require.NotNil(t, e.Size)
	assert.EqualValues(t, 2048, *e.Size)
	require.NotNil(t, e.CreatedTime)
	require.NotNil(t, e.ModifiedTime)
	assert.True(t, e.ModifiedTime.After(*e.CreatedTime))
}

func TestToEntityFolderHasNoFileFields(t *testing.T) {
	e := toEntity(&drive.File{
		Id:       "d1",
		Name:     "Documents",
		MimeType: folderMimeType,
	})
	require.NotNil(t, e)

	assert.Equal(t, model.EntityFolder, e.Type)
	assert.Empty(t, e.MimeType)
	assert.Empty(t, e.Extension)
	assert.Nil(t, e.Size)
}

func TestToEntityMissingMandatoryFields(t *testing.T) {
	assert.Nil(t, toEntity(nil))
	assert.Nil(t, toEntity(&drive.File{Name: "no-id"}))
	assert.Nil(t, toEntity(&drive.File{Id: "no-name"}))
}

func TestToEntityAbsentTimestampsStayNil(t *testing.T) {
	e := toEntity(&drive.File{Id: "f1", Name: "x.txt", MimeType: "text/plain"})
	require.NotNil(t, e)
	assert.Nil(t, e.CreatedTime)
	assert.Nil(t, e.ModifiedTime)
}

func TestToEntityProprietaryFormatHasNoSize(t *testing.T) {
	e := toEntity(&drive.File{
		Id:       "doc1",
		Name:     "Quarterly Report",
		MimeType: "application/vnd.google-apps.document",
	})
	require.NotNil(t, e)
	assert.Equal(t, model.EntityFile, e.Type)
	assert.Nil(t, e.Size)
}

func TestToPermissionRoundTrip(t *testing.T) {
	p := toPermission(&drive.Permission{
		Id:           "perm-1",
		Type:         "user",
		Role:         "writer",
		EmailAddress: "user@example.com",
		DisplayName:  "A User",
	})
	require.NotNil(t, p)

	assert.Equal(t, model.RoleWriter, p.Role)
	assert.Equal(t, model.IdentityUser, p.Identity.Kind)
	assert.Equal(t, "user@example.com", p.Identity.EmailAddress)
	// Without permissionDetails the inheritance fact is unknown.
	assert.Nil(t, p.Inherited)
}

func TestToPermissionUnknownRoleOrTypeDropped(t *testing.T) {
	assert.Nil(t, toPermission(&drive.Permission{Id: "p", Type: "user", Role: "published-reader"}))
	assert.Nil(t, toPermission(&drive.Permission{Id: "p", Type: "view", Role: "reader"}))
}

func TestToPermissionInheritedFromDetails(t *testing.T) {
	p := toPermission(&drive.Permission{
		Id: "p", Type: "user", Role: "reader",
		PermissionDetails: []*drive.PermissionPermissionDetails{{Inherited: true}},
	})
	require.NotNil(t, p)
	require.NotNil(t, p.Inherited)
	assert.True(t, *p.Inherited)
}

func TestRoleMappingIsSymmetric(t *testing.T) {
	for native, unified := range nativeRoles {
		got, err := roleToNative(unified)
		require.NoError(t, err)
		assert.Equal(t, native, got)
	}
}

func TestToPermissionRequestRecipients(t *testing.T) {
	perm, err := toPermissionRequest(model.CreatePermission{
		Kind: model.RecipientDomain, Domain: "example.com", Role: model.RoleReader,
	})
	require.NoError(t, err)
	assert.Equal(t, "domain", perm.Type)
	assert.Equal(t, "example.com", perm.Domain)

	_, err = toPermissionRequest(model.CreatePermission{
		Kind: model.RecipientObjectID, ObjectID: "obj-1", Role: model.RoleReader,
	})
	var notSupported *api.NotSupportedError
	require.True(t, errors.As(err, &notSupported))
	assert.NotEmpty(t, notSupported.Alternative)
}

func TestToVersionsNewestFirst(t *testing.T) {
	versions := toVersions("f1", []*drive.Revision{
		{Id: "r1", ModifiedTime: "2024-01-01T00:00:00Z", Size: 10},
		{Id: "r2", ModifiedTime: "2024-02-01T00:00:00Z", Size: 20},
		{Id: "r3", ModifiedTime: "2024-03-01T00:00:00Z", Size: 30},
		{Id: ""},
	})

	require.Len(t, versions, 3)
	assert.Equal(t, "r3", versions[0].VersionID)
	assert.Equal(t, "r1", versions[2].VersionID)
	assert.Equal(t, "f1", versions[0].FileID)
}
