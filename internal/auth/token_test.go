package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTokenEndpoint(t *testing.T, refreshes *atomic.Int64) *oauth2.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"at-%d","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-%d"}`, n, n)
	}))
	t.Cleanup(srv.Close)

	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL},
	}
}

func TestTokenConcurrentCallers(t *testing.T) {
	var refreshes atomic.Int64
	ts := NewTokenSource(newTokenEndpoint(t, &refreshes), "rt-0")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := ts.Token()
			assert.NoError(t, err)
			assert.Equal(t, "at-1", token.AccessToken)
		}()
	}
	wg.Wait()

	// One refresh serves every caller; the cached token stays valid.
	assert.EqualValues(t, 1, refreshes.Load())
}

func TestTokenCachesUntilExpiry(t *testing.T) {
	var refreshes atomic.Int64
	ts := NewTokenSource(newTokenEndpoint(t, &refreshes), "rt-0")

	first, err := ts.Token()
	require.NoError(t, err)
	second, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, first.AccessToken, second.AccessToken)
	assert.EqualValues(t, 1, refreshes.Load())
}

func TestGetRefreshTokenTracksRotation(t *testing.T) {
	var refreshes atomic.Int64
	ts := NewTokenSource(newTokenEndpoint(t, &refreshes), "rt-0")

	assert.Equal(t, "rt-0", ts.GetRefreshToken())
	_, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "rt-1", ts.GetRefreshToken())
}
