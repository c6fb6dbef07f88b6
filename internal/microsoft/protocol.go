package microsoft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// uploadProtocol implements the Graph upload-session wire protocol: the
// session URL arrives in the createUploadSession response body, chunks
// go to that pre-authenticated URL with a Content-Range header, and the
// final chunk's response is the finished drive item.
type uploadProtocol struct {
	base   string
	tokens oauth2.TokenSource
	client *http.Client
}

func newUploadProtocol(base string, tokens oauth2.TokenSource, client *http.Client) *uploadProtocol {
	if base == "" {
		base = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &uploadProtocol{base: base, tokens: tokens, client: client}
}

func (p *uploadProtocol) authedRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	token, err := p.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	token.SetAuthHeader(req)
	return req, nil
}

// itemURL addresses an existing item by id; pathURL addresses a child of
// parentID by name, with a trailing action after the path colon.
func (p *uploadProtocol) itemURL(itemID, action string) string {
	return p.base + "/me/drive/items/" + itemID + action
}

func (p *uploadProtocol) pathURL(parentID, name, action string) string {
	return p.base + "/me/drive/items/" + parentID + ":/" + url.PathEscape(name) + ":" + action
}

func (p *uploadProtocol) Initialize(ctx context.Context, dst transfer.Destination, size int64) (string, error) {
	var sessionURL string
	var payload map[string]any
	if dst.FileID != "" {
		sessionURL = p.itemURL(dst.FileID, "/createUploadSession")
		payload = map[string]any{
			"item": map[string]any{"@microsoft.graph.conflictBehavior": "replace"},
		}
	} else {
		sessionURL = p.pathURL(dst.ParentID, dst.Name, "/createUploadSession")
		payload = map[string]any{
			"item": map[string]any{
				"@microsoft.graph.conflictBehavior": "rename",
				"name":                              dst.Name,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := p.authedRequest(ctx, http.MethodPost, sessionURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload session create failed with status %d", resp.StatusCode)
	}

	var session uploadSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode upload session response: %w", err)
	}
	if session.UploadURL == "" {
		return "", fmt.Errorf("upload session response carried no uploadUrl")
	}
	return session.UploadURL, nil
}

// ChunkRequest targets the session URL directly; it is pre-authenticated
// and must not carry a bearer token.
func (p *uploadProtocol) ChunkRequest(ctx context.Context, session string, chunk []byte, start, total int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Range", transfer.ContentRange(start, int64(len(chunk)), total))
	return req, nil
}

// ChunkState: 202 acknowledges an intermediate chunk; the final chunk
// answers 200 or 201 with the finished item.
func (p *uploadProtocol) ChunkState(resp *http.Response) transfer.ChunkState {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return transfer.ChunkComplete
	case http.StatusAccepted:
		return transfer.ChunkIncomplete
	}
	return transfer.ChunkFailed
}

// Finalize is unreachable for Graph sessions: the last chunk's response
// is terminal. Reaching it means the backend broke protocol.
func (p *uploadProtocol) Finalize(ctx context.Context, session string, dst transfer.Destination, total int64) (*model.Entity, error) {
	return nil, fmt.Errorf("upload session ended without a terminal response")
}

func (p *uploadProtocol) SimpleUploadRequest(ctx context.Context, dst transfer.Destination, data []byte) (*http.Request, error) {
	var target string
	if dst.FileID != "" {
		target = p.itemURL(dst.FileID, "/content")
	} else {
		target = p.pathURL(dst.ParentID, dst.Name, "/content") + "?@microsoft.graph.conflictBehavior=rename"
	}
	req, err := p.authedRequest(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

// DownloadRequest hits the content endpoint; Graph answers with a 302 to
// a pre-authenticated download URL, which the HTTP client follows.
func (p *uploadProtocol) DownloadRequest(ctx context.Context, fileID string) (*http.Request, error) {
	return p.authedRequest(ctx, http.MethodGet, p.itemURL(fileID, "/content"), nil)
}

func (p *uploadProtocol) ParseEntity(body []byte) (*model.Entity, error) {
	var item driveItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	entity := entityFromRaw(&item)
	if entity == nil {
		return nil, fmt.Errorf("upload response carried no usable entity")
	}
	return entity, nil
}
