package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"cloudgate/internal/api"
	"cloudgate/internal/logger"
	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
)

// Dropbox addresses everything by path or native id; the root is the
// empty path.
const rootSentinel = ""

// Config configures a Dropbox client.
type Config struct {
	TokenSource oauth2.TokenSource

	// APIEndpoint / ContentEndpoint override the production hosts; tests
	// point them at a local server.
	APIEndpoint     string
	ContentEndpoint string

	HTTPClient *http.Client
	Transfer   transfer.Options
	Logger     *logger.Logger
}

// Client is the Dropbox adapter. The corpus ships no Dropbox Go SDK, so
// it speaks the HTTP API directly: RPC calls against api.dropboxapi.com
// and content moves against content.dropboxapi.com through the transfer
// engine. Safe for concurrent use.
type Client struct {
	apiBase string
	tokens  oauth2.TokenSource
	client  *http.Client
	engine  *transfer.Engine
	log     *logger.Logger

	accountOnce sync.Once
	account     currentAccountResult
	accountErr  error
}

var _ api.Client = (*Client)(nil)

// NewClient creates a Dropbox adapter. It performs no network calls;
// the first operation does.
func NewClient(cfg Config) (*Client, error) {
	if cfg.TokenSource == nil {
		return nil, fmt.Errorf("dropbox: token source is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With(string(model.ProviderDropbox))

	apiBase := cfg.APIEndpoint
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	proto := newUploadProtocol(cfg.ContentEndpoint, cfg.TokenSource, httpClient)
	engine := transfer.NewEngine(httpClient, proto, cfg.Transfer, log)

	return &Client{
		apiBase: apiBase,
		tokens:  cfg.TokenSource,
		client:  httpClient,
		engine:  engine,
		log:     log,
	}, nil
}

func (c *Client) Provider() model.Provider { return model.ProviderDropbox }

// ProviderSDK returns the client itself; there is no separate native
// SDK object for Dropbox.
func (c *Client) ProviderSDK() any { return c }

// rpc performs one JSON RPC call against the API host and decodes the
// reply when out is non-nil.
func (c *Client) rpc(ctx context.Context, endpoint string, args, out any) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return &api.APIError{Message: err.Error(), Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+endpoint, bytes.NewReader(payload))
	if err != nil {
		return &api.APIError{Message: err.Error(), Err: err}
	}
	token, err := c.tokens.Token()
	if err != nil {
		return &api.InvalidCredentialsError{Message: "failed to get access token", Err: err}
	}
	token.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &api.APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &api.InvalidCredentialsError{Message: endpoint + " rejected the access token"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(body))
		var apiErr apiErrorBody
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorSummary != "" {
			msg = apiErr.ErrorSummary
		}
		return &api.APIError{StatusCode: resp.StatusCode, Message: endpoint + ": " + msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &api.APIError{Message: "failed to decode " + endpoint + " response", Err: err}
	}
	return nil
}

func (c *Client) currentAccount(ctx context.Context) (currentAccountResult, error) {
	c.accountOnce.Do(func() {
		c.accountErr = c.rpc(ctx, "/2/users/get_current_account", nil, &c.account)
	})
	return c.account, c.accountErr
}

func (c *Client) GetUserEmail(ctx context.Context) (string, error) {
	account, err := c.currentAccount(ctx)
	if err != nil {
		return "", err
	}
	return account.Email, nil
}

func (c *Client) ListFiles(ctx context.Context, parentID string) ([]model.Entity, error) {
	var entities []model.Entity

	var result listFolderResult
	if err := c.rpc(ctx, "/2/files/list_folder", listFolderArgs{Path: resolveParent(parentID)}, &result); err != nil {
		return nil, err
	}
	for {
		for i := range result.Entries {
			if e := toEntity(&result.Entries[i]); e != nil {
				entities = append(entities, *e)
			}
		}
		if !result.HasMore {
			return entities, nil
		}
		next := listFolderResult{}
		if err := c.rpc(ctx, "/2/files/list_folder/continue", listFolderContinueArgs{Cursor: result.Cursor}, &next); err != nil {
			return nil, err
		}
		result = next
	}
}

func (c *Client) Search(ctx context.Context, query string) ([]model.Entity, error) {
	var result searchResult
	if err := c.rpc(ctx, "/2/files/search_v2", searchArgs{Query: query}, &result); err != nil {
		return nil, err
	}
	entities := make([]model.Entity, 0, len(result.Matches))
	for i := range result.Matches {
		if e := toEntity(&result.Matches[i].Metadata.Metadata); e != nil {
			entities = append(entities, *e)
		}
	}
	return entities, nil
}

// CreateFileWithMimeType has no meaning on Dropbox: the backend infers
// types from extensions and ignores mime hints entirely.
func (c *Client) CreateFileWithMimeType(ctx context.Context, parentID, name, mimeType string) (*model.Entity, error) {
	return nil, &api.NotSupportedError{
		Operation:   "CreateFileWithMimeType on Dropbox",
		Alternative: "CreateFileWithExtension",
	}
}

func (c *Client) CreateFileWithExtension(ctx context.Context, parentID, name, extension string) (*model.Entity, error) {
	filename := name
	if extension != "" && !strings.HasSuffix(name, "."+extension) {
		filename = name + "." + extension
	}
	return c.UploadFile(ctx, parentID, filename, bytes.NewReader(nil), 0)
}

func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*model.Entity, error) {
	path := strings.TrimSuffix(resolveParent(parentID), "/") + "/" + name
	var result createFolderResult
	if err := c.rpc(ctx, "/2/files/create_folder_v2", createFolderArgs{Path: path}, &result); err != nil {
		return nil, err
	}
	result.Metadata.Tag = tagFolder
	entity := toEntity(&result.Metadata)
	if entity == nil {
		return nil, &api.APIError{Message: "create_folder response carried no usable entity"}
	}
	c.log.Info("created folder %q (%s)", entity.Name, entity.ID)
	return entity, nil
}

// DeleteFile moves the file to the Dropbox trash (recoverable).
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.rpc(ctx, "/2/files/delete_v2", pathArgs{Path: fileID}, nil)
}

// PermanentlyDeleteFile is a Dropbox Business-only capability; personal
// accounts can only trash.
func (c *Client) PermanentlyDeleteFile(ctx context.Context, fileID string) error {
	return &api.NotSupportedError{
		Operation:   "PermanentlyDeleteFile on Dropbox",
		Alternative: "DeleteFile",
	}
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

func (c *Client) ExportFile(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	format, ok := exportFormats[mimeType]
	if !ok {
		return nil, &api.NotSupportedError{
			Operation:   "ExportFile to " + mimeType + " on Dropbox",
			Alternative: "DownloadFile for verbatim content",
		}
	}
	proto := c.engine.Protocol().(*uploadProtocol)
	req, err := proto.contentRequest(ctx, "/2/files/export", exportArgs{Path: fileID, ExportFormat: format}, nil)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return c.engine.Stream(req, fileID)
}

func (c *Client) UpdateFile(ctx context.Context, fileID string, content io.Reader, size int64) (*model.Entity, error) {
	return c.engine.UpdateContent(ctx, fileID, content, size)
}

func (c *Client) GetFileVersions(ctx context.Context, fileID string) ([]model.FileVersion, error) {
	var result listRevisionsResult
	if err := c.rpc(ctx, "/2/files/list_revisions", listRevisionsArgs{Path: fileID, Limit: 100}, &result); err != nil {
		return nil, err
	}
	return toVersions(fileID, result.Entries), nil
}

func (c *Client) DownloadFileVersion(ctx context.Context, fileID, versionID string) (io.ReadCloser, error) {
	proto := c.engine.Protocol().(*uploadProtocol)
	req, err := proto.contentRequest(ctx, "/2/files/download", pathArgs{Path: "rev:" + versionID}, nil)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return c.engine.Stream(req, fileID)
}

func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*model.Metadata, error) {
	var entry entryMetadata
	if err := c.rpc(ctx, "/2/files/get_metadata", pathArgs{Path: fileID}, &entry); err != nil {
		return nil, err
	}
	entity := toEntity(&entry)
	if entity == nil {
		return nil, &api.APIError{Message: "get_metadata response carried no usable entity"}
	}
	return &model.Metadata{Entity: *entity, Original: entry}, nil
}

func (c *Client) GetFilePermissions(ctx context.Context, fileID string) ([]model.Permission, error) {
	var result listFileMembersResult
	if err := c.rpc(ctx, "/2/sharing/list_file_members", listFileMembersArgs{File: fileID}, &result); err != nil {
		return nil, err
	}

	var perms []model.Permission
	for _, group := range [][]membershipInfo{result.Users, result.Groups, result.Invitees} {
		for i := range group {
			if p := toPermission(&group[i]); p != nil {
				perms = append(perms, *p)
			}
		}
	}
	return perms, nil
}

func (c *Client) CreatePermission(ctx context.Context, fileID string, req model.CreatePermission) (*model.Permission, error) {
	selector, err := toMemberSelector(req)
	if err != nil {
		return nil, err
	}
	level, err := roleToAccessLevel(req.Role)
	if err != nil {
		return nil, err
	}

	args := addFileMemberArgs{
		File:        fileID,
		Members:     []memberSelector{selector},
		AccessLevel: level,
		Quiet:       !req.SendNotificationEmail,
	}
	if err := c.rpc(ctx, "/2/sharing/add_file_member", args, nil); err != nil {
		return nil, err
	}
	c.log.Info("granted %s on %s", req.Role, fileID)

	// add_file_member echoes no grant object; rebuild it from the request.
	perm := &model.Permission{Role: req.Role}
	if selector.Email != "" {
		perm.ID = selector.Email
		perm.Identity = model.Identity{Kind: model.IdentityUser, EmailAddress: selector.Email}
	} else {
		perm.ID = selector.DropboxID
		perm.Identity = model.Identity{Kind: model.IdentityUser, ID: selector.DropboxID}
	}
	return perm, nil
}

func (c *Client) UpdatePermission(ctx context.Context, fileID, permissionID string, role model.Role) (*model.Permission, error) {
	level, err := roleToAccessLevel(role)
	if err != nil {
		return nil, err
	}
	args := updateFileMemberArgs{
		File:        fileID,
		Member:      selectorForPermissionID(permissionID),
		AccessLevel: level,
	}
	if err := c.rpc(ctx, "/2/sharing/update_file_member", args, nil); err != nil {
		return nil, err
	}
	return &model.Permission{
		ID:       permissionID,
		Role:     role,
		Identity: identityForPermissionID(permissionID),
	}, nil
}

func (c *Client) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	args := removeFileMemberArgs{
		File:   fileID,
		Member: selectorForPermissionID(permissionID),
	}
	return c.rpc(ctx, "/2/sharing/remove_file_member_2", args, nil)
}

func (c *Client) GetWebURL(ctx context.Context, fileID string) (string, error) {
	var link sharedLinkResult
	err := c.rpc(ctx, "/2/sharing/create_shared_link_with_settings", sharedLinkArgs{Path: fileID}, &link)
	if err == nil {
		return link.URL, nil
	}

	// A link may already exist (409 shared_link_already_exists); list it.
	var existing listSharedLinksResult
	if listErr := c.rpc(ctx, "/2/sharing/list_shared_links", listSharedLinksArgs{Path: fileID, DirectOnly: true}, &existing); listErr == nil && len(existing.Links) > 0 {
		return existing.Links[0].URL, nil
	}
	return "", err
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
	var usage spaceUsageResult
	if err := c.rpc(ctx, "/2/users/get_space_usage", nil, &usage); err != nil {
		return nil, err
	}
	quota := &model.StorageQuota{
		TotalBytes: usage.Allocation.Allocated,
		UsedBytes:  usage.Used,
		Provider:   model.ProviderDropbox,
	}
	if quota.TotalBytes > 0 {
		quota.RemainingBytes = quota.TotalBytes - quota.UsedBytes
	}
	if account, err := c.currentAccount(ctx); err == nil {
		quota.OwnerEmail = account.Email
	}
	return quota, nil
}

func identityForPermissionID(permissionID string) model.Identity {
	if strings.Contains(permissionID, "@") {
		return model.Identity{Kind: model.IdentityUser, EmailAddress: permissionID}
	}
	return model.Identity{Kind: model.IdentityUser, ID: permissionID}
}

// resolveParent maps "unset parent means root" to Dropbox's root, which
// is the empty path.
func resolveParent(parentID string) string {
	if strings.TrimSpace(parentID) == "" {
		return rootSentinel
	}
	return parentID
}
