package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloudgate/internal/api"
	"cloudgate/internal/logger"
	"cloudgate/internal/model"
)

const (
	// DefaultSmallFileThreshold is the payload size above which uploads
	// switch from the single-request path to the resumable session
	// protocol. Tunable via Options; not a protocol invariant.
	DefaultSmallFileThreshold = 1 << 20 // 1 MiB

	// DefaultChunkSize is the fixed chunk size of the resumable loop.
	DefaultChunkSize = 10 << 20 // 10 MiB
)

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	SmallFileThreshold int64
	ChunkSize          int64
}

func (o Options) withDefaults() Options {
	if o.SmallFileThreshold <= 0 {
		o.SmallFileThreshold = DefaultSmallFileThreshold
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	return o
}

// Engine moves file bytes to and from one backend through its native
// transfer mechanics. The chunk loop is strictly sequential within one
// upload; distinct uploads are independent and may run concurrently.
// The engine never retries and never cleans up a remote session on
// cancellation; backends expire stale sessions on their own schedule.
type Engine struct {
	client *http.Client
	proto  Protocol
	opts   Options
	log    *logger.Logger
}

// NewEngine builds an engine for one backend protocol. A nil httpClient
// selects http.DefaultClient.
func NewEngine(httpClient *http.Client, proto Protocol, opts Options, log *logger.Logger) *Engine {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{client: httpClient, proto: proto, opts: opts.withDefaults(), log: log}
}

// Protocol returns the backend descriptor the engine drives. Adapters
// use it to build media requests for Stream.
func (e *Engine) Protocol() Protocol { return e.proto }

// Upload writes size bytes from content as a new file at dst. Payloads
// at or below the small-file threshold are sent as one atomic request;
// larger ones go through the resumable session protocol.
func (e *Engine) Upload(ctx context.Context, dst Destination, content io.Reader, size int64) (*model.Entity, error) {
	if size <= e.opts.SmallFileThreshold {
		return e.simpleUpload(ctx, dst, content, size)
	}
	return e.resumableUpload(ctx, dst, content, size)
}

// UpdateContent replaces the content of an existing file. Failures are
// reported as *api.UpdateError so callers keep the operation context.
func (e *Engine) UpdateContent(ctx context.Context, fileID string, content io.Reader, size int64) (*model.Entity, error) {
	entity, err := e.Upload(ctx, Destination{FileID: fileID}, content, size)
	if err != nil {
		var creds *api.InvalidCredentialsError
		if errors.As(err, &creds) {
			return nil, err
		}
		return nil, &api.UpdateError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return entity, nil
}

// Download streams a file's content from the backend's media endpoint.
// The caller owns the returned reader and must close it.
func (e *Engine) Download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	req, err := e.proto.DownloadRequest(ctx, fileID)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	return e.Stream(req, fileID)
}

// Stream executes an adapter-built media request and returns the body on
// 2xx. Export and version downloads reuse this for uniform error
// translation.
func (e *Engine) Stream(req *http.Request, fileID string) (io.ReadCloser, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &api.DownloadError{FileID: fileID, Message: err.Error(), Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, &api.InvalidCredentialsError{Message: "media endpoint rejected the access token"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &api.DownloadError{
			FileID:  fileID,
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}
	return resp.Body, nil
}

// simpleUpload sends the whole payload in one request. Success and
// failure are atomic; there are no chunk offsets. Zero-byte files take
// this path too.
func (e *Engine) simpleUpload(ctx context.Context, dst Destination, content io.Reader, size int64) (*model.Entity, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(content, data); err != nil {
		return nil, fmt.Errorf("failed to read upload payload: %w", err)
	}

	req, err := e.proto.SimpleUploadRequest(ctx, dst, data)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := e.checkStatus(resp, "upload"); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}
	return e.proto.ParseEntity(body)
}

// resumableUpload runs the session protocol: initialize, then send
// fixed-size range-annotated chunks sequentially. Chunk N+1 is not sent
// until chunk N's response is known because each range depends on the
// confirmed offset. A failed chunk is not retried here; restart policy
// belongs to the caller.
func (e *Engine) resumableUpload(ctx context.Context, dst Destination, content io.Reader, size int64) (*model.Entity, error) {
	session, err := e.proto.Initialize(ctx, dst, size)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload session: %w", err)
	}
	if session == "" {
		return nil, fmt.Errorf("backend returned no upload session URL")
	}

	buf := make([]byte, e.opts.ChunkSize)
	var offset int64

	for offset < size {
		want := e.opts.ChunkSize
		if remaining := size - offset; remaining < want {
			want = remaining
		}
		if _, err := io.ReadFull(content, buf[:want]); err != nil {
			return nil, fmt.Errorf("failed to read chunk at offset %d: %w", offset, err)
		}

		req, err := e.proto.ChunkRequest(ctx, session, buf[:want], offset, size)
		if err != nil {
			return nil, err
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("chunk %d-%d failed: %w", offset, offset+want-1, err)
		}

		switch e.proto.ChunkState(resp) {
		case ChunkComplete:
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, fmt.Errorf("failed to read final upload response: %w", readErr)
			}
			e.log.Debug("upload complete after %d bytes", offset+want)
			return e.proto.ParseEntity(body)

		case ChunkIncomplete:
			resp.Body.Close()
			offset += want
			e.log.Debug("chunk accepted, %d/%d bytes confirmed", offset, size)

		default:
			err := e.chunkError(resp, offset, want)
			resp.Body.Close()
			return nil, err
		}
	}

	// Every byte was accepted but no chunk response was terminal; ask the
	// protocol to close the session (Dropbox-style finish call).
	return e.proto.Finalize(ctx, session, dst, size)
}

func (e *Engine) checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return &api.InvalidCredentialsError{Message: op + " rejected the access token"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &api.APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s failed: %s", op, bytes.TrimSpace(body)),
		}
	}
	return nil
}

// chunkError reports a rejected chunk. The confirmed byte count is
// surfaced best-effort from the backend's Range header when present;
// otherwise the failure requires a restart from byte zero.
func (e *Engine) chunkError(resp *http.Response, offset, length int64) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return &api.InvalidCredentialsError{Message: "upload session rejected the access token"}
	}
	msg := fmt.Sprintf("chunk %d-%d rejected", offset, offset+length-1)
	if rng := resp.Header.Get("Range"); rng != "" {
		msg += fmt.Sprintf(" (backend confirmed range %q)", rng)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(body)) > 0 {
		msg += ": " + string(bytes.TrimSpace(body))
	}
	return &api.APIError{StatusCode: resp.StatusCode, Message: msg}
}

// ContentRange formats the vendor-fixed range header value for a chunk.
func ContentRange(start, length, total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, start+length-1, total)
}
