package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"cloudgate/internal/api"
	"cloudgate/internal/logger"
	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const rootSentinel = "root"

const listPageSize = 1000

// Config configures a Google Drive client.
type Config struct {
	TokenSource oauth2.TokenSource

	// Endpoint overrides the API base URL; tests point it at a local
	// server. Empty means the production endpoint.
	Endpoint string

	// HTTPClient is used by the transfer engine. Nil selects the default
	// client.
	HTTPClient *http.Client

	Transfer transfer.Options
	Logger   *logger.Logger
}

// Client is the Google Drive adapter. It composes the drive/v3 service
// for metadata operations with the transfer engine for content moves.
// Safe for concurrent use; each call builds its own request.
type Client struct {
	service *drive.Service
	engine  *transfer.Engine
	proto   *uploadProtocol
	log     *logger.Logger

	// The email is cached after the first successful lookup; failures
	// are not sticky.
	emailMu sync.Mutex
	email   string
}

var _ api.Client = (*Client)(nil)

// NewClient creates a Google Drive adapter.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("google: token source is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(string(model.ProviderGoogle))

	opts := []option.ClientOption{option.WithTokenSource(cfg.TokenSource)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	proto := newUploadProtocol(cfg.Endpoint, cfg.TokenSource, cfg.HTTPClient)
	engine := transfer.NewEngine(cfg.HTTPClient, proto, cfg.Transfer, log)

	return &Client{service: service, engine: engine, proto: proto, log: log}, nil
}

func (c *Client) Provider() model.Provider { return model.ProviderGoogle }

// ProviderSDK returns the underlying *drive.Service.
func (c *Client) ProviderSDK() any { return c.service }

func (c *Client) GetUserEmail(ctx context.Context) (string, error) {
	c.emailMu.Lock()
	defer c.emailMu.Unlock()
	if c.email != "" {
		return c.email, nil
	}

	about, err := c.service.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return "", wrapErr(err)
	}
	if about.User == nil || about.User.EmailAddress == "" {
		return "", &api.APIError{Message: "about response carried no user email"}
	}
	c.email = about.User.EmailAddress
	return c.email, nil
}

func (c *Client) ListFiles(ctx context.Context, parentID string) ([]model.Entity, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(resolveParent(parentID)))
	return c.query(ctx, query)
}

func (c *Client) Search(ctx context.Context, query string) ([]model.Entity, error) {
	q := fmt.Sprintf("name contains '%s' and trashed=false", escapeQuery(query))
	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q string) ([]model.Entity, error) {
	var entities []model.Entity
	pageToken := ""
	for {
		call := c.service.Files.List().Q(q).
			Fields(googleapi.Field("nextPageToken, files(" + entityFields + ")")).
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		list, err := call.Do()
		if err != nil {
			return nil, wrapErr(err)
		}
		for _, f := range list.Files {
			if e := toEntity(f); e != nil {
				entities = append(entities, *e)
			}
		}
		if list.NextPageToken == "" {
			return entities, nil
		}
		pageToken = list.NextPageToken
	}
}

func (c *Client) CreateFileWithMimeType(ctx context.Context, parentID, name, mimeType string) (*model.Entity, error) {
	return c.createEntity(ctx, &drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{resolveParent(parentID)},
	})
}

func (c *Client) CreateFileWithExtension(ctx context.Context, parentID, name, extension string) (*model.Entity, error) {
	filename := name
	if extension != "" && !strings.HasSuffix(name, "."+extension) {
		filename = name + "." + extension
	}
	return c.createEntity(ctx, &drive.File{
		Name:     filename,
		MimeType: model.MimeTypeByName(filename),
		Parents:  []string{resolveParent(parentID)},
	})
}

func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*model.Entity, error) {
	return c.createEntity(ctx, &drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{resolveParent(parentID)},
	})
}

func (c *Client) createEntity(ctx context.Context, f *drive.File) (*model.Entity, error) {
	created, err := c.service.Files.Create(f).Fields(entityFields).Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	entity := toEntity(created)
	if entity == nil {
		return nil, &api.APIError{Message: "create response carried no usable entity"}
	}
	c.log.Info("created %s %q (%s)", entity.Type, entity.Name, entity.ID)
	return entity, nil
}

// DeleteFile marks the file as trashed; Drive's recoverable delete.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	_, err := c.service.Files.Update(fileID, &drive.File{Trashed: true}).Context(ctx).Do()
	return wrapErr(err)
}

// PermanentlyDeleteFile removes the file beyond recovery.
func (c *Client) PermanentlyDeleteFile(ctx context.Context, fileID string) error {
	return wrapErr(c.service.Files.Delete(fileID).Context(ctx).Do())
}

func (c *Client) UploadFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (*model.Entity, error) {
	dst := transfer.Destination{
		ParentID: resolveParent(parentID),
		Name:     name,
		MimeType: model.MimeTypeByName(name),
	}
	entity, err := c.engine.Upload(ctx, dst, content, size)
	if err != nil {
		return nil, err
	}
	c.log.Info("uploaded %q (%d bytes) as %s", name, size, entity.ID)
	return entity, nil
}

func (c *Client) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	return c.engine.Download(ctx, fileID)
}

// ExportFile converts a proprietary-format document to mimeType. This is
// a distinct path from DownloadFile and not interchangeable with it.
func (c *Client) ExportFile(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	u := c.proto.base + "/drive/v3/files/" + fileID + "/export?mimeType=" + url.QueryEscape(mimeType)
	req, err := c.proto.authedRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return c.engine.Stream(req, fileID)
}

func (c *Client) UpdateFile(ctx context.Context, fileID string, content io.Reader, size int64) (*model.Entity, error) {
	return c.engine.UpdateContent(ctx, fileID, content, size)
}

func (c *Client) GetFileVersions(ctx context.Context, fileID string) ([]model.FileVersion, error) {
	list, err := c.service.Revisions.List(fileID).
		Fields("revisions(id, modifiedTime, size)").
		Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	return toVersions(fileID, list.Revisions), nil
}

func (c *Client) DownloadFileVersion(ctx context.Context, fileID, versionID string) (io.ReadCloser, error) {
	u := c.proto.base + "/drive/v3/files/" + fileID + "/revisions/" + versionID + "?alt=media"
	req, err := c.proto.authedRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return c.engine.Stream(req, fileID)
}

func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*model.Metadata, error) {
	f, err := c.service.Files.Get(fileID).Fields(entityFields + ", webViewLink, owners").Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	entity := toEntity(f)
	if entity == nil {
		return nil, &api.APIError{Message: "metadata response carried no usable entity"}
	}
	return &model.Metadata{Entity: *entity, Original: f}, nil
}

const permissionFields = "id, type, role, emailAddress, displayName, domain, photoLink, expirationTime, deleted, pendingOwner, permissionDetails"

func (c *Client) GetFilePermissions(ctx context.Context, fileID string) ([]model.Permission, error) {
	list, err := c.service.Permissions.List(fileID).
		Fields(googleapi.Field("permissions(" + permissionFields + ")")).
		Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	perms := make([]model.Permission, 0, len(list.Permissions))
	for _, p := range list.Permissions {
		if mapped := toPermission(p); mapped != nil {
			perms = append(perms, *mapped)
		}
	}
	return perms, nil
}

func (c *Client) CreatePermission(ctx context.Context, fileID string, req model.CreatePermission) (*model.Permission, error) {
	native, err := toPermissionRequest(req)
	if err != nil {
		return nil, err
	}

	call := c.service.Permissions.Create(fileID, native).
		Fields(permissionFields).
		Context(ctx)
	if req.Role == model.RoleOwner {
		// Drive rejects an ownership transfer that is not also a notified
		// email send, so the two flags travel together regardless of what
		// the caller asked for.
		call = call.TransferOwnership(true).SendNotificationEmail(true)
	} else {
		call = call.SendNotificationEmail(req.SendNotificationEmail)
	}

	created, err := call.Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	mapped := toPermission(created)
	if mapped == nil {
		return nil, &api.APIError{Message: "permission create response was unmappable"}
	}
	c.log.Info("granted %s on %s to %s", req.Role, fileID, mapped.Identity.EmailAddress)
	return mapped, nil
}

func (c *Client) UpdatePermission(ctx context.Context, fileID, permissionID string, role model.Role) (*model.Permission, error) {
	native, err := roleToNative(role)
	if err != nil {
		return nil, err
	}

	call := c.service.Permissions.Update(fileID, permissionID, &drive.Permission{Role: native}).
		Fields(permissionFields).
		Context(ctx)
	if role == model.RoleOwner {
		call = call.TransferOwnership(true)
	}

	updated, err := call.Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	mapped := toPermission(updated)
	if mapped == nil {
		return nil, &api.APIError{Message: "permission update response was unmappable"}
	}
	return mapped, nil
}

func (c *Client) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	return wrapErr(c.service.Permissions.Delete(fileID, permissionID).Context(ctx).Do())
}

func (c *Client) GetWebURL(ctx context.Context, fileID string) (string, error) {
	f, err := c.service.Files.Get(fileID).Fields("webViewLink").Context(ctx).Do()
	if err != nil {
		return "", wrapErr(err)
	}
	return f.WebViewLink, nil
}

func (c *Client) ResolvePath(ctx context.Context, path string) (*model.Entity, error) {
	return api.ResolvePath(ctx, c, rootSentinel, path)
}

func (c *Client) GetStorageUsage(ctx context.Context) (int64, error) {
	quota, err := c.GetStorageQuota(ctx)
	if err != nil {
		return 0, err
	}
	return quota.UsedBytes, nil
}

func (c *Client) GetStorageQuota(ctx context.Context) (*model.StorageQuota, error) {
	about, err := c.service.About.Get().Fields("storageQuota, user").Context(ctx).Do()
	if err != nil {
		return nil, wrapErr(err)
	}
	if about.StorageQuota == nil {
		return nil, &api.APIError{Message: "about response carried no storage quota"}
	}
	quota := &model.StorageQuota{
		TotalBytes: about.StorageQuota.Limit,
		UsedBytes:  about.StorageQuota.Usage,
		Provider:   model.ProviderGoogle,
	}
	if quota.TotalBytes > 0 {
		quota.RemainingBytes = quota.TotalBytes - quota.UsedBytes
	}
	if about.User != nil {
		quota.OwnerEmail = about.User.EmailAddress
	}
	return quota, nil
}

// resolveParent maps the caller's "unset parent means root" to Drive's
// root alias before anything hits the wire.
func resolveParent(parentID string) string {
	if strings.TrimSpace(parentID) == "" {
		return rootSentinel
	}
	return parentID
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

// wrapErr translates drive SDK failures into the closed taxonomy;
// googleapi errors never cross the adapter boundary.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized {
			return &api.InvalidCredentialsError{Message: gerr.Message, Err: err}
		}
		return &api.APIError{StatusCode: gerr.Code, Message: gerr.Message, Err: err}
	}
	return &api.APIError{Message: err.Error(), Err: err}
}
