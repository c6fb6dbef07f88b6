package microsoft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"cloudgate/internal/api"
	"cloudgate/internal/auth"
	"cloudgate/internal/logger"
	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	kiotaauthentication "github.com/microsoft/kiota-authentication-azure-go"
	msgraph "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/drives"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"golang.org/x/oauth2"
)

const rootSentinel = "root"

// Config configures a Microsoft OneDrive client.
type Config struct {
	TokenSource oauth2.TokenSource

	// Endpoint overrides the Graph base URL; tests point it at a local
	// server. Empty means the production endpoint.
	Endpoint string

	// HTTPClient is used by the transfer engine. Nil selects the default
	// client.
	HTTPClient *http.Client

	Transfer transfer.Options
	Logger   *logger.Logger
}

// Client is the OneDrive adapter. Metadata goes through the Graph SDK;
// content moves through the transfer engine because Graph upload
// sessions are plain HTTP against a pre-authenticated URL.
type Client struct {
	graph  *msgraph.GraphServiceClient
	engine *transfer.Engine
	proto  *uploadProtocol
	log    *logger.Logger

	// The drive id is needed for every item route but only discoverable
	// at runtime. It is cached after the first successful lookup;
	// failures are not sticky. Same for the account email.
	driveMu sync.Mutex
	driveID string

	emailMu sync.Mutex
	email   string
}

var _ api.Client = (*Client)(nil)

// NewClient creates a OneDrive adapter.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("microsoft: token source is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(string(model.ProviderMicrosoft))

	credential := auth.NewAzureCredential(cfg.TokenSource)
	authProvider, err := kiotaauthentication.NewAzureIdentityAuthenticationProviderWithScopes(
		credential, []string{"https://graph.microsoft.com/.default"})
	if err != nil {
		return nil, fmt.Errorf("failed to create graph auth provider: %w", err)
	}
	adapter, err := msgraph.NewGraphRequestAdapter(authProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph request adapter: %w", err)
	}
	if cfg.Endpoint != "" {
		adapter.SetBaseUrl(cfg.Endpoint)
	}

	proto := newUploadProtocol(cfg.Endpoint, cfg.TokenSource, cfg.HTTPClient)
	engine := transfer.NewEngine(cfg.HTTPClient, proto, cfg.Transfer, log)

	return &Client{
		graph:  msgraph.NewGraphServiceClient(adapter),
		engine: engine,
		proto:  proto,
		log:    log,
	}, nil
}

func (c *Client) Provider() model.Provider { return model.ProviderMicrosoft }

// ProviderSDK returns the underlying *msgraph.GraphServiceClient.
func (c *Client) ProviderSDK() any { return c.graph }

func (c *Client) GetUserEmail(ctx context.Context) (string, error) {
	c.emailMu.Lock()
	defer c.emailMu.Unlock()
	if c.email != "" {
		return c.email, nil
	}

	user, err := c.graph.Me().Get(ctx, nil)
	if err != nil {
		return "", wrapErr(err)
	}
	switch {
	case user.GetMail() != nil && *user.GetMail() != "":
		c.email = *user.GetMail()
	case user.GetUserPrincipalName() != nil:
		c.email = *user.GetUserPrincipalName()
	default:
		return "", &api.APIError{Message: "profile response carried no email"}
	}
	return c.email, nil
}

// items routes to a drive item by id.
func (c *Client) items(ctx context.Context, itemID string) (*drives.ItemItemsDriveItemItemRequestBuilder, error) {
	driveID, err := c.resolveDriveID(ctx)
	if err != nil {
		return nil, err
	}
	return c.graph.Drives().ByDriveId(driveID).Items().ByDriveItemId(itemID), nil
}

// resolveDriveID fetches the default drive's id on first use.
func (c *Client) resolveDriveID(ctx context.Context) (string, error) {
	c.driveMu.Lock()
	defer c.driveMu.Unlock()
	if c.driveID != "" {
		return c.driveID, nil
	}

	drive, err := c.graph.Me().Drive().Get(ctx, nil)
	if err != nil {
		return "", wrapErr(err)
	}
	if drive.GetId() == nil || *drive.GetId() == "" {
		return "", &api.APIError{Message: "drive response carried no id"}
	}
	c.driveID = *drive.GetId()
	return c.driveID, nil
}

func (c *Client) ListFiles(ctx context.Context, parentID string) ([]model.Entity, error) {
	builder, err := c.items(ctx, resolveParent(parentID))
	if err != nil {
		return nil, err
	}

	children := builder.Children()
	page, err := children.Get(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}

	var entities []model.Entity
	for {
		for _, item := range page.GetValue() {
			if e := toEntity(item); e != nil {
				entities = append(entities, *e)
			}
		}
		next := page.GetOdataNextLink()
		if next == nil || *next == "" {
			return entities, nil
		}
		page, err = children.WithUrl(*next).Get(ctx, nil)
		if err != nil {
			return nil, wrapErr(err)
		}
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]model.Entity, error) {
	if _, err := c.items(ctx, rootSentinel); err != nil {
		return nil, err
	}

	result, err := c.graph.Drives().ByDriveId(c.driveID).
		SearchWithQ(&query).
		GetAsSearchWithQGetResponse(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}

	entities := make([]model.Entity, 0, len(result.GetValue()))
	for _, item := range result.GetValue() {
		if e := toEntity(item); e != nil {
			entities = append(entities, *e)
		}
	}
	return entities, nil
}

// CreateFileWithMimeType is unsupported: Graph derives the mime type
// from the filename and offers no way to set one on create.
func (c *Client) CreateFileWithMimeType(ctx context.Context, parentID, name, mimeType string) (*model.Entity, error) {
	return nil, &api.NotSupportedError{
		Operation:   "CreateFileWithMimeType on OneDrive",
		Alternative: "CreateFileWithExtension",
	}
}

// CreateFileWithExtension creates an empty file; Graph has no metadata
// route for that, so it is a zero-byte content upload.
func (c *Client) CreateFileWithExtension(ctx context.Context, parentID, name, extension string) (*model.Entity, error) {
	filename := name
	if extension != "" && !strings.HasSuffix(name, "."+extension) {
		filename = name + "." + extension
	}
	dst := transfer.Destination{ParentID: resolveParent(parentID), Name: filename}
	entity, err := c.engine.Upload(ctx, dst, bytes.NewReader(nil), 0)
	if err != nil {
		return nil, err
	}
	c.log.Info("created file %q (%s)", entity.Name, entity.ID)
	return entity, nil
}

func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*model.Entity, error) {
	builder, err := c.items(ctx, resolveParent(parentID))
	if err != nil {
		return nil, err
	}

	item := models.NewDriveItem()
	item.SetName(&name)
	item.SetFolder(models.NewFolder())
	item.SetAdditionalData(map[string]any{"@microsoft.graph.conflictBehavior": "rename"})

	created, err := builder.Children().Post(ctx, item, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	entity := toEntity(created)
	if entity == nil {
		return nil, &api.APIError{Message: "create response carried no usable entity"}
	}
	c.log.Info("created folder %q (%s)", entity.Name, entity.ID)
	return entity, nil
}

// DeleteFile moves the item to the recycle bin; Graph's recoverable
// delete.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return err
	}
	return wrapErr(builder.Delete(ctx, nil))
}

// PermanentlyDeleteFile is unsupported: the v1.0 Graph API only deletes
// into the recycle bin.
func (c *Client) PermanentlyDeleteFile(ctx context.Context, fileID string) error {
	return &api.NotSupportedError{Operation: "PermanentlyDeleteFile on OneDrive"}
}

func (c *Client) UploadFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (*model.Entity, error) {
	dst := transfer.Destination{ParentID: resolveParent(parentID), Name: name}
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

// ExportFile converts via the content endpoint's format parameter. Graph
// only converts a handful of source types (to PDF, mostly).
func (c *Client) ExportFile(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	format, ok := exportFormats[mimeType]
	if !ok {
		return nil, &api.NotSupportedError{
			Operation:   "export to " + mimeType + " on OneDrive",
			Alternative: "application/pdf",
		}
	}
	u := c.proto.itemURL(fileID, "/content") + "?format=" + url.QueryEscape(format)
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
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return nil, err
	}
	list, err := builder.Versions().Get(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	return toVersions(fileID, list.GetValue()), nil
}

func (c *Client) DownloadFileVersion(ctx context.Context, fileID, versionID string) (io.ReadCloser, error) {
	u := c.proto.itemURL(fileID, "/versions/"+versionID+"/content")
	req, err := c.proto.authedRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return c.engine.Stream(req, fileID)
}

func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*model.Metadata, error) {
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return nil, err
	}
	item, err := builder.Get(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	entity := toEntity(item)
	if entity == nil {
		return nil, &api.APIError{Message: "metadata response carried no usable entity"}
	}
	return &model.Metadata{Entity: *entity, Original: item}, nil
}

func (c *Client) GetFilePermissions(ctx context.Context, fileID string) ([]model.Permission, error) {
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return nil, err
	}
	list, err := builder.Permissions().Get(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	perms := make([]model.Permission, 0, len(list.GetValue()))
	for _, p := range list.GetValue() {
		if mapped := toPermission(p); mapped != nil {
			perms = append(perms, *mapped)
		}
	}
	return perms, nil
}

func (c *Client) CreatePermission(ctx context.Context, fileID string, req model.CreatePermission) (*model.Permission, error) {
	body, err := toInviteRequest(req)
	if err != nil {
		return nil, err
	}
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return nil, err
	}

	result, err := builder.Invite().PostAsInvitePostResponse(ctx, body, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	for _, p := range result.GetValue() {
		if mapped := toPermission(p); mapped != nil {
			c.log.Info("granted %s on %s to %s", req.Role, fileID, mapped.Identity.EmailAddress)
			return mapped, nil
		}
	}
	return nil, &api.APIError{Message: "invite response carried no mappable permission"}
}

func (c *Client) UpdatePermission(ctx context.Context, fileID, permissionID string, role model.Role) (*model.Permission, error) {
	native, err := roleToNative(role)
	if err != nil {
		return nil, err
	}
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return nil, err
	}

	patch := models.NewPermission()
	patch.SetRoles([]string{native})
	updated, err := builder.Permissions().ByPermissionId(permissionID).Patch(ctx, patch, nil)
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
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return err
	}
	return wrapErr(builder.Permissions().ByPermissionId(permissionID).Delete(ctx, nil))
}

func (c *Client) GetWebURL(ctx context.Context, fileID string) (string, error) {
	builder, err := c.items(ctx, fileID)
	if err != nil {
		return "", err
	}
	item, err := builder.Get(ctx, nil)
	if err != nil {
		return "", wrapErr(err)
	}
	if item.GetWebUrl() == nil {
		return "", &api.APIError{Message: "item carried no web url"}
	}
	return *item.GetWebUrl(), nil
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
	drive, err := c.graph.Me().Drive().Get(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	native := drive.GetQuota()
	if native == nil {
		return nil, &api.APIError{Message: "drive response carried no quota"}
	}

	quota := &model.StorageQuota{Provider: model.ProviderMicrosoft}
	if native.GetTotal() != nil {
		quota.TotalBytes = *native.GetTotal()
	}
	if native.GetUsed() != nil {
		quota.UsedBytes = *native.GetUsed()
	}
	if native.GetRemaining() != nil {
		quota.RemainingBytes = *native.GetRemaining()
	} else if quota.TotalBytes > 0 {
		quota.RemainingBytes = quota.TotalBytes - quota.UsedBytes
	}
	if owner := drive.GetOwner(); owner != nil && owner.GetUser() != nil {
		quota.OwnerEmail = identityEmail(owner.GetUser())
	}
	return quota, nil
}

// exportFormats maps requested mime types onto Graph's format values.
var exportFormats = map[string]string{
	"application/pdf": "pdf",
}

// resolveParent maps the caller's "unset parent means root" to Graph's
// root alias before anything hits the wire.
func resolveParent(parentID string) string {
	if strings.TrimSpace(parentID) == "" {
		return rootSentinel
	}
	return parentID
}

// wrapErr translates Graph SDK failures into the closed taxonomy; OData
// errors never cross the adapter boundary.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var oerr *odataerrors.ODataError
	if errors.As(err, &oerr) {
		code, message := "", oerr.Error()
		if main := oerr.GetErrorEscaped(); main != nil {
			if main.GetCode() != nil {
				code = *main.GetCode()
			}
			if main.GetMessage() != nil {
				message = *main.GetMessage()
			}
		}
		if oerr.ResponseStatusCode == http.StatusUnauthorized || code == "InvalidAuthenticationToken" {
			return &api.InvalidCredentialsError{Message: message, Err: err}
		}
		return &api.APIError{StatusCode: oerr.ResponseStatusCode, Message: message, Err: err}
	}
	return &api.APIError{Message: err.Error(), Err: err}
}
