package storage

import (
	"context"
	"testing"

	"cloudgate/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewDispatchesPerProvider(t *testing.T) {
	opts := Options{
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}),
	}

	for _, provider := range []model.Provider{
		model.ProviderGoogle,
		model.ProviderMicrosoft,
		model.ProviderDropbox,
	} {
		client, err := New(context.Background(), provider, opts)
		require.NoError(t, err, provider)
		assert.NotNil(t, client, provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), model.Provider("box"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
