package microsoft

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudgate/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func staticTokens() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
}

func TestInitializeNewFileSession(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"uploadUrl":"http://session.example/u1","expirationDateTime":"2026-09-01T00:00:00Z"}`)
	}))
	defer srv.Close()

	p := newUploadProtocol(srv.URL, staticTokens(), nil)
	session, err := p.Initialize(context.Background(), transfer.Destination{
		ParentID: "parent-1", Name: "big file.bin",
	}, 26214400)
	require.NoError(t, err)

	assert.Equal(t, "http://session.example/u1", session)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/me/drive/items/parent-1:/big%20file.bin:/createUploadSession", got.URL.EscapedPath())
	assert.Equal(t, "Bearer test-token", got.Header.Get("Authorization"))
	assert.Contains(t, string(body), `"rename"`)
	assert.Contains(t, string(body), `"name":"big file.bin"`)
}

func TestInitializeUpdateReplacesContent(t *testing.T) {
	var path string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"uploadUrl":"http://session.example/u2"}`)
	}))
	defer srv.Close()

	p := newUploadProtocol(srv.URL, staticTokens(), nil)
	_, err := p.Initialize(context.Background(), transfer.Destination{FileID: "f1"}, 100)
	require.NoError(t, err)

	assert.Equal(t, "/me/drive/items/f1/createUploadSession", path)
	assert.Contains(t, string(body), `"replace"`)
}

func TestInitializeWithoutUploadURLFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	p := newUploadProtocol(srv.URL, staticTokens(), nil)
	_, err := p.Initialize(context.Background(), transfer.Destination{Name: "x"}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploadUrl")
}

func TestChunkRequestIsPreAuthenticated(t *testing.T) {
	p := newUploadProtocol("", staticTokens(), nil)
	req, err := p.ChunkRequest(context.Background(), "http://session.example/u1", make([]byte, 6), 20, 26)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "bytes 20-25/26", req.Header.Get("Content-Range"))
	// The session URL embeds its own authorization.
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestChunkStates(t *testing.T) {
	p := newUploadProtocol("", staticTokens(), nil)
	assert.Equal(t, transfer.ChunkComplete, p.ChunkState(&http.Response{StatusCode: 200}))
	assert.Equal(t, transfer.ChunkComplete, p.ChunkState(&http.Response{StatusCode: 201}))
	assert.Equal(t, transfer.ChunkIncomplete, p.ChunkState(&http.Response{StatusCode: 202}))
	assert.Equal(t, transfer.ChunkFailed, p.ChunkState(&http.Response{StatusCode: 500}))
	assert.Equal(t, transfer.ChunkFailed, p.ChunkState(&http.Response{StatusCode: 401}))
}

func TestFinalizeIsProtocolViolation(t *testing.T) {
	p := newUploadProtocol("", staticTokens(), nil)
	_, err := p.Finalize(context.Background(), "s", transfer.Destination{}, 10)
	require.Error(t, err)
}

func TestSimpleUploadRequestTargets(t *testing.T) {
	p := newUploadProtocol("http://base.example", staticTokens(), nil)

	req, err := p.SimpleUploadRequest(context.Background(), transfer.Destination{
		ParentID: "parent-1", Name: "small.txt",
	}, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Contains(t, req.URL.String(), "/me/drive/items/parent-1:/small.txt:/content")
	assert.Contains(t, req.URL.String(), "conflictBehavior=rename")
	assert.Equal(t, "Bearer test-token", req.Header.Get("Authorization"))

	update, err := p.SimpleUploadRequest(context.Background(), transfer.Destination{FileID: "f1"}, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "/me/drive/items/f1/content", update.URL.Path)
	assert.NotContains(t, update.URL.String(), "conflictBehavior")
}

func TestParseEntity(t *testing.T) {
	p := newUploadProtocol("", staticTokens(), nil)

	entity, err := p.ParseEntity([]byte(`{"id":"f1","name":"x.bin","size":5,"file":{"mimeType":"application/octet-stream"}}`))
	require.NoError(t, err)
	assert.Equal(t, "f1", entity.ID)

	_, err = p.ParseEntity([]byte(`{"id":"f1"}`))
	assert.Error(t, err)

	_, err = p.ParseEntity([]byte(`not json`))
	assert.Error(t, err)
}
