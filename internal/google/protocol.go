package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
)

const defaultBaseURL = "https://www.googleapis.com"

// entityFields is the field projection requested on every call that
// returns an entity.
const entityFields = "id, name, mimeType, size, createdTime, modifiedTime, parents"

// uploadProtocol implements the Drive resumable-upload wire protocol:
// a metadata-only initiation whose Location header carries the session
// URL, then range-annotated PUTs answered with 308 until the final 2xx.
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

func (p *uploadProtocol) metadataFor(dst transfer.Destination) map[string]any {
	meta := map[string]any{}
	if dst.FileID != "" {
		return meta
	}
	meta["name"] = dst.Name
	if dst.MimeType != "" {
		meta["mimeType"] = dst.MimeType
	}
	if dst.ParentID != "" {
		meta["parents"] = []string{dst.ParentID}
	}
	return meta
}

// Initialize posts the metadata-only request; the backend answers with
// the session URL in the Location header.
func (p *uploadProtocol) Initialize(ctx context.Context, dst transfer.Destination, size int64) (string, error) {
	method := http.MethodPost
	url := p.base + "/upload/drive/v3/files?uploadType=resumable"
	if dst.FileID != "" {
		method = http.MethodPatch
		url = p.base + "/upload/drive/v3/files/" + dst.FileID + "?uploadType=resumable"
	}

	body, err := json.Marshal(p.metadataFor(dst))
	if err != nil {
		return "", err
	}
	req, err := p.authedRequest(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload initiation failed with status %d", resp.StatusCode)
	}

	session := resp.Header.Get("Location")
	if session == "" {
		return "", fmt.Errorf("upload initiation returned no Location header")
	}
	return session, nil
}

func (p *uploadProtocol) ChunkRequest(ctx context.Context, session string, chunk []byte, start, total int64) (*http.Request, error) {
	req, err := p.authedRequest(ctx, http.MethodPut, session, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Range", transfer.ContentRange(start, int64(len(chunk)), total))
	return req, nil
}

func (p *uploadProtocol) ChunkState(resp *http.Response) transfer.ChunkState {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return transfer.ChunkComplete
	case 308: // Resume Incomplete
		return transfer.ChunkIncomplete
	default:
		return transfer.ChunkFailed
	}
}

// Finalize is unreachable for Drive: the final chunk response is
// terminal. Hitting it means the backend never acknowledged completion.
func (p *uploadProtocol) Finalize(ctx context.Context, session string, dst transfer.Destination, total int64) (*model.Entity, error) {
	return nil, fmt.Errorf("upload session ended without a terminal response")
}

// SimpleUploadRequest builds the atomic multipart/related request used
// below the small-file threshold.
func (p *uploadProtocol) SimpleUploadRequest(ctx context.Context, dst transfer.Destination, data []byte) (*http.Request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.Marshal(p.metadataFor(dst))
	if err != nil {
		return nil, err
	}
	if _, err := metaPart.Write(metaJSON); err != nil {
		return nil, err
	}

	mediaHeader := textproto.MIMEHeader{}
	mediaType := dst.MimeType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	mediaHeader.Set("Content-Type", mediaType)
	mediaPart, err := w.CreatePart(mediaHeader)
	if err != nil {
		return nil, err
	}
	if _, err := mediaPart.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	method := http.MethodPost
	url := p.base + "/upload/drive/v3/files?uploadType=multipart"
	if dst.FileID != "" {
		method = http.MethodPatch
		url = p.base + "/upload/drive/v3/files/" + dst.FileID + "?uploadType=multipart"
	}
	req, err := p.authedRequest(ctx, method, url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "multipart/related; boundary="+w.Boundary())
	return req, nil
}

func (p *uploadProtocol) DownloadRequest(ctx context.Context, fileID string) (*http.Request, error) {
	return p.authedRequest(ctx, http.MethodGet, p.base+"/drive/v3/files/"+fileID+"?alt=media", nil)
}

func (p *uploadProtocol) ParseEntity(body []byte) (*model.Entity, error) {
	var f drive.File
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	entity := toEntity(&f)
	if entity == nil {
		return nil, fmt.Errorf("upload response carried no usable entity")
	}
	return entity, nil
}
