package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloudgate/internal/api"
	"cloudgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProto speaks a minimal session protocol against an httptest
// server: 308 acknowledges a chunk, 200/201 is terminal.
type fakeProto struct {
	base     string
	sessions int
}

func (p *fakeProto) Initialize(ctx context.Context, dst Destination, size int64) (string, error) {
	p.sessions++
	return fmt.Sprintf("%s/session/%d", p.base, p.sessions), nil
}

func (p *fakeProto) ChunkRequest(ctx context.Context, session string, chunk []byte, start, total int64) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Range", ContentRange(start, int64(len(chunk)), total))
	return req, nil
}

func (p *fakeProto) ChunkState(resp *http.Response) ChunkState {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return ChunkComplete
	case http.StatusPermanentRedirect:
		return ChunkIncomplete
	}
	return ChunkFailed
}

func (p *fakeProto) Finalize(ctx context.Context, session string, dst Destination, total int64) (*model.Entity, error) {
	return nil, fmt.Errorf("unexpected finalize")
}

func (p *fakeProto) SimpleUploadRequest(ctx context.Context, dst Destination, data []byte) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/simple", bytes.NewReader(data))
}

func (p *fakeProto) DownloadRequest(ctx context.Context, fileID string) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/files/"+fileID, nil)
}

func (p *fakeProto) ParseEntity(body []byte) (*model.Entity, error) {
	var raw struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return &model.Entity{ID: raw.ID, Name: raw.Name, Type: model.EntityFile}, nil
}

type recorded struct {
	path   string
	ranges []string
	bodies []string
}

func newServer(t *testing.T, failChunk int, rec *recorded) *httptest.Server {
	t.Helper()
	chunk := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.path = r.URL.Path
		rec.bodies = append(rec.bodies, string(body))

		if r.URL.Path == "/simple" {
			fmt.Fprint(w, `{"id":"simple-1","name":"small.bin"}`)
			return
		}

		chunk++
		rec.ranges = append(rec.ranges, r.Header.Get("Content-Range"))
		if chunk == failChunk {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if strings.HasSuffix(r.Header.Get("Content-Range"), "/26") &&
			strings.Contains(r.Header.Get("Content-Range"), "20-25") {
			fmt.Fprint(w, `{"id":"big-1","name":"big.bin"}`)
			return
		}
		w.WriteHeader(http.StatusPermanentRedirect)
	}))
}

func newTestEngine(base string, proto *fakeProto) *Engine {
	proto.base = base
	return NewEngine(nil, proto, Options{SmallFileThreshold: 1, ChunkSize: 10}, nil)
}

func TestUploadSmallFileIsOneRequest(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, 0, rec)
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	entity, err := engine.Upload(context.Background(), Destination{Name: "small.bin"}, strings.NewReader("x"), 1)
	require.NoError(t, err)

	assert.Equal(t, "simple-1", entity.ID)
	assert.Equal(t, "/simple", rec.path)
	assert.Empty(t, rec.ranges)
}

func TestUploadZeroByteFile(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, 0, rec)
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	entity, err := engine.Upload(context.Background(), Destination{Name: "empty"}, bytes.NewReader(nil), 0)
	require.NoError(t, err)
	assert.Equal(t, "simple-1", entity.ID)
	assert.Equal(t, "", rec.bodies[0])
}

func TestResumableUploadSendsExactRanges(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, 0, rec)
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	payload := strings.Repeat("a", 26)
	entity, err := engine.Upload(context.Background(), Destination{Name: "big.bin"}, strings.NewReader(payload), 26)
	require.NoError(t, err)

	assert.Equal(t, "big-1", entity.ID)
	assert.Equal(t, []string{
		"bytes 0-9/26",
		"bytes 10-19/26",
		"bytes 20-25/26",
	}, rec.ranges)
}

func TestChunkFailureStopsTheLoop(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, 2, rec)
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	payload := strings.Repeat("a", 26)
	_, err := engine.Upload(context.Background(), Destination{Name: "big.bin"}, strings.NewReader(payload), 26)
	require.Error(t, err)

	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "10-19")
	// No chunk after the failed one.
	assert.Len(t, rec.ranges, 2)
}

func TestRestartAfterFailureUsesFreshSession(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, 1, rec)
	defer srv.Close()
	proto := &fakeProto{}
	engine := newTestEngine(srv.URL, proto)

	payload := strings.Repeat("a", 26)
	_, err := engine.Upload(context.Background(), Destination{Name: "big.bin"}, strings.NewReader(payload), 26)
	require.Error(t, err)
	require.Equal(t, 1, proto.sessions)

	// The caller restarts from byte zero with a fresh reader; the engine
	// initializes a new session rather than resuming the broken one.
	entity, err := engine.Upload(context.Background(), Destination{Name: "big.bin"}, strings.NewReader(payload), 26)
	require.NoError(t, err)
	assert.Equal(t, "big-1", entity.ID)
	assert.Equal(t, 2, proto.sessions)
}

func TestUploadUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	_, err := engine.Upload(context.Background(), Destination{Name: "x"}, strings.NewReader("x"), 1)
	var creds *api.InvalidCredentialsError
	assert.True(t, errors.As(err, &creds))
}

func TestUpdateContentWrapsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	_, err := engine.UpdateContent(context.Background(), "file-9", strings.NewReader("x"), 1)
	require.Error(t, err)

	var updateErr *api.UpdateError
	require.True(t, errors.As(err, &updateErr))
	assert.Equal(t, "file-9", updateErr.FileID)

	var apiErr *api.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestUpdateContentKeepsCredentialErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	_, err := engine.UpdateContent(context.Background(), "file-9", strings.NewReader("x"), 1)
	var creds *api.InvalidCredentialsError
	assert.True(t, errors.As(err, &creds))
	var updateErr *api.UpdateError
	assert.False(t, errors.As(err, &updateErr))
}

func TestDownloadStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "file content")
	}))
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	body, err := engine.Download(context.Background(), "f1")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "file content", string(data))
}

func TestDownloadErrorCarriesFileID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	engine := newTestEngine(srv.URL, &fakeProto{})

	_, err := engine.Download(context.Background(), "f1")
	var dlErr *api.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "f1", dlErr.FileID)
}

func TestContentRange(t *testing.T) {
	assert.Equal(t, "bytes 0-10485759/26214400", ContentRange(0, 10485760, 26214400))
	assert.Equal(t, "bytes 10485760-20971519/26214400", ContentRange(10485760, 10485760, 26214400))
	assert.Equal(t, "bytes 20971520-26214399/26214400", ContentRange(20971520, 5242880, 26214400))
}
