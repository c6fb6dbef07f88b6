package api

import (
	"context"
	"io"

	"cloudgate/internal/model"
)

// Client is the provider-agnostic storage contract. Every backend
// adapter implements it and every caller consumes it; backend-native
// types never cross this boundary except through Metadata.Original and
// ProviderSDK.
//
// All methods are safe for concurrent use: adapters hold no mutable
// per-call state. Failures surface as the typed errors in errors.go;
// nil results without an error are reserved for well-defined "not
// found" semantics (ResolvePath only).
type Client interface {
	// Provider reports which backend this client talks to.
	Provider() model.Provider

	// GetUserEmail returns the e-mail of the authenticated account.
	GetUserEmail(ctx context.Context) (string, error)

	// ListFiles returns the immediate children (files and folders) of
	// parentID. An empty parentID means the backend-defined root.
	ListFiles(ctx context.Context, parentID string) ([]model.Entity, error)

	// Search returns entities matching the query. Results have the same
	// shape as ListFiles.
	Search(ctx context.Context, query string) ([]model.Entity, error)

	// CreateFileWithMimeType creates an empty file with an explicit mime
	// type. Backends that cannot honor a mime type on create return
	// *NotSupportedError naming CreateFileWithExtension instead.
	CreateFileWithMimeType(ctx context.Context, parentID, name, mimeType string) (*model.Entity, error)

	// CreateFileWithExtension creates an empty file named name.extension,
	// inferring the mime type where the backend wants one.
	CreateFileWithExtension(ctx context.Context, parentID, name, extension string) (*model.Entity, error)

	// CreateFolder creates a folder under parentID.
	CreateFolder(ctx context.Context, parentID, name string) (*model.Entity, error)

	// DeleteFile removes a file using the backend's default (usually
	// recoverable) delete.
	DeleteFile(ctx context.Context, fileID string) error

	// PermanentlyDeleteFile removes a file beyond recovery. Adapters that
	// cannot hard-delete return *NotSupportedError rather than silently
	// soft-deleting.
	PermanentlyDeleteFile(ctx context.Context, fileID string) error

	// UploadFile writes size bytes from content as a new file. Payloads
	// above the small-file threshold go through the backend's resumable
	// session protocol.
	UploadFile(ctx context.Context, parentID, name string, content io.Reader, size int64) (*model.Entity, error)

	// DownloadFile streams the file's content. Proprietary formats that
	// cannot be downloaded verbatim require ExportFile instead.
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)

	// ExportFile streams the file converted to mimeType.
	ExportFile(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)

	// UpdateFile replaces the file's content.
	UpdateFile(ctx context.Context, fileID string, content io.Reader, size int64) (*model.Entity, error)

	// GetFileVersions returns the version history, newest first.
	GetFileVersions(ctx context.Context, fileID string) ([]model.FileVersion, error)

	// DownloadFileVersion streams the content of one historic version.
	DownloadFileVersion(ctx context.Context, fileID, versionID string) (io.ReadCloser, error)

	// GetFileMetadata returns the mapped entity together with the
	// verbatim backend response.
	GetFileMetadata(ctx context.Context, fileID string) (*model.Metadata, error)

	// GetFilePermissions lists the grants on a file. Grants the unified
	// model cannot represent are dropped, not errors.
	GetFilePermissions(ctx context.Context, fileID string) ([]model.Permission, error)

	// CreatePermission grants access. Recipient/role combinations the
	// backend cannot express fail with *NotSupportedError.
	CreatePermission(ctx context.Context, fileID string, req model.CreatePermission) (*model.Permission, error)

	// UpdatePermission changes the role of an existing grant.
	UpdatePermission(ctx context.Context, fileID, permissionID string, role model.Role) (*model.Permission, error)

	// DeletePermission revokes a grant.
	DeletePermission(ctx context.Context, fileID, permissionID string) error

	// GetWebURL returns a browser link for the file.
	GetWebURL(ctx context.Context, fileID string) (string, error)

	// ResolvePath walks a slash-separated path one level at a time and
	// returns the leaf entity, or (nil, nil) as soon as any segment is
	// missing. Only transport failures are errors.
	ResolvePath(ctx context.Context, path string) (*model.Entity, error)

	// GetStorageUsage returns the bytes currently used by the account.
	GetStorageUsage(ctx context.Context) (int64, error)

	// GetStorageQuota returns the account's full quota information.
	GetStorageQuota(ctx context.Context) (*model.StorageQuota, error)

	// ProviderSDK exposes the backend-native client for power users.
	ProviderSDK() any
}
