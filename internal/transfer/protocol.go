package transfer

import (
	"context"
	"net/http"

	"cloudgate/internal/model"
)

// Destination describes where uploaded bytes should land. For a new
// file, ParentID/Name (and optionally MimeType) are set and ParentID is
// already resolved to the backend's root sentinel when the caller meant
// "root". For a content update, FileID is set instead.
type Destination struct {
	FileID   string
	ParentID string
	Name     string
	MimeType string
}

// ChunkState classifies a backend's response to one chunk of a
// resumable upload.
type ChunkState int

const (
	// ChunkFailed: the chunk was rejected; the whole upload fails.
	ChunkFailed ChunkState = iota
	// ChunkIncomplete: the chunk was durably received, send the next one.
	ChunkIncomplete
	// ChunkComplete: terminal success; the response body carries the
	// final entity.
	ChunkComplete
)

// Protocol is the capability descriptor a backend hands to the Engine.
// It knows the backend's native transfer mechanics (endpoints, headers,
// status codes, body shapes) while the Engine owns the strategy: the
// small-file cutoff, the sequential chunk loop and the error taxonomy.
type Protocol interface {
	// Initialize starts a resumable upload session and returns its
	// continuation URL (or backend-native session handle). Failure here
	// is fatal for the whole upload; there is no partial state to resume.
	Initialize(ctx context.Context, dst Destination, size int64) (session string, err error)

	// ChunkRequest builds the range-annotated request for one chunk
	// starting at offset start of a total-byte upload.
	ChunkRequest(ctx context.Context, session string, chunk []byte, start, total int64) (*http.Request, error)

	// ChunkState classifies the backend's response to a chunk request.
	ChunkState(resp *http.Response) ChunkState

	// Finalize closes a session for backends whose chunk responses are
	// never terminal (the final entity comes from a separate call).
	// Backends whose last chunk response is terminal return an error
	// here: reaching Finalize means the backend never acknowledged
	// completion.
	Finalize(ctx context.Context, session string, dst Destination, total int64) (*model.Entity, error)

	// SimpleUploadRequest builds the single atomic request used below the
	// small-file threshold.
	SimpleUploadRequest(ctx context.Context, dst Destination, data []byte) (*http.Request, error)

	// DownloadRequest builds the media-endpoint request for a file's
	// content.
	DownloadRequest(ctx context.Context, fileID string) (*http.Request, error)

	// ParseEntity maps a terminal upload response body to the unified
	// entity.
	ParseEntity(body []byte) (*model.Entity, error)
}
