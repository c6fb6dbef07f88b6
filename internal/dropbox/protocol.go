package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
)

const (
	defaultAPIBase     = "https://api.dropboxapi.com"
	defaultContentBase = "https://content.dropboxapi.com"
)

// uploadProtocol implements the Dropbox upload-session wire protocol:
// start returns a session id, append_v2 carries the running offset in
// the Dropbox-API-Arg header, and a separate finish call commits the
// file. No chunk response is terminal, so the engine always reaches
// Finalize.
type uploadProtocol struct {
	contentBase string
	tokens      oauth2.TokenSource
	client      *http.Client
}

func newUploadProtocol(contentBase string, tokens oauth2.TokenSource, client *http.Client) *uploadProtocol {
	if contentBase == "" {
		contentBase = defaultContentBase
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &uploadProtocol{contentBase: contentBase, tokens: tokens, client: client}
}

// contentRequest builds a content-endpoint request with the call
// arguments serialized into the vendor-fixed Dropbox-API-Arg header.
func (p *uploadProtocol) contentRequest(ctx context.Context, endpoint string, args any, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.contentBase+endpoint, body)
	if err != nil {
		return nil, err
	}
	token, err := p.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	token.SetAuthHeader(req)

	argJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", string(argJSON))
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

// destPath resolves the commit path: the native file id for updates,
// otherwise parent path + name ("" parent means the Dropbox root).
func destPath(dst transfer.Destination) string {
	if dst.FileID != "" {
		return dst.FileID
	}
	parent := strings.TrimSuffix(dst.ParentID, "/")
	return parent + "/" + dst.Name
}

func commitMode(dst transfer.Destination) string {
	if dst.FileID != "" {
		return "overwrite"
	}
	return "add"
}

func (p *uploadProtocol) Initialize(ctx context.Context, dst transfer.Destination, size int64) (string, error) {
	req, err := p.contentRequest(ctx, "/2/files/upload_session/start", map[string]bool{"close": false}, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload session start failed with status %d", resp.StatusCode)
	}

	var result uploadSessionStartResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode session start response: %w", err)
	}
	if result.SessionID == "" {
		return "", fmt.Errorf("upload session start returned no session id")
	}
	return result.SessionID, nil
}

func (p *uploadProtocol) ChunkRequest(ctx context.Context, session string, chunk []byte, start, total int64) (*http.Request, error) {
	args := uploadSessionAppendArgs{
		Cursor: uploadSessionCursor{SessionID: session, Offset: start},
		Close:  false,
	}
	return p.contentRequest(ctx, "/2/files/upload_session/append_v2", args, bytes.NewReader(chunk))
}

// ChunkState: append_v2 acknowledges with a bare 200 and is never
// terminal; completion comes from the finish call.
func (p *uploadProtocol) ChunkState(resp *http.Response) transfer.ChunkState {
	if resp.StatusCode == http.StatusOK {
		return transfer.ChunkIncomplete
	}
	return transfer.ChunkFailed
}

func (p *uploadProtocol) Finalize(ctx context.Context, session string, dst transfer.Destination, total int64) (*model.Entity, error) {
	args := uploadSessionFinishArgs{
		Cursor: uploadSessionCursor{SessionID: session, Offset: total},
		Commit: uploadCommitInfo{Path: destPath(dst), Mode: commitMode(dst)},
	}
	req, err := p.contentRequest(ctx, "/2/files/upload_session/finish", args, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upload session finish failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return p.ParseEntity(body)
}

func (p *uploadProtocol) SimpleUploadRequest(ctx context.Context, dst transfer.Destination, data []byte) (*http.Request, error) {
	args := map[string]any{
		"path":       destPath(dst),
		"mode":       commitMode(dst),
		"autorename": false,
	}
	return p.contentRequest(ctx, "/2/files/upload", args, bytes.NewReader(data))
}

func (p *uploadProtocol) DownloadRequest(ctx context.Context, fileID string) (*http.Request, error) {
	return p.contentRequest(ctx, "/2/files/download", pathArgs{Path: fileID}, nil)
}

// ParseEntity decodes an upload result. Upload responses are file
// metadata without the ".tag" discriminator, so it is filled in before
// mapping.
func (p *uploadProtocol) ParseEntity(body []byte) (*model.Entity, error) {
	var e entryMetadata
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if e.Tag == "" {
		e.Tag = tagFile
	}
	entity := toEntity(&e)
	if entity == nil {
		return nil, fmt.Errorf("upload response carried no usable entity")
	}
	return entity, nil
}
