// Package storage constructs backend adapters behind the unified client
// contract. Callers pick a provider; everything else about the backend
// stays behind api.Client.
package storage

import (
	"context"
	"fmt"
	"net/http"

	"cloudgate/internal/api"
	"cloudgate/internal/dropbox"
	"cloudgate/internal/google"
	"cloudgate/internal/logger"
	"cloudgate/internal/microsoft"
	"cloudgate/internal/model"
	"cloudgate/internal/transfer"

	"golang.org/x/oauth2"
)

// Options configures an adapter independent of its provider.
type Options struct {
	TokenSource oauth2.TokenSource

	// Endpoint overrides the provider's API base URL; tests point it at
	// a local server. ContentEndpoint additionally overrides the Dropbox
	// content host, which is a separate domain in production.
	Endpoint        string
	ContentEndpoint string

	// HTTPClient is used for content transfers. Nil selects the default
	// client.
	HTTPClient *http.Client

	Transfer transfer.Options
	Logger   *logger.Logger
}

// New builds the adapter for provider. The returned client is safe for
// concurrent use.
func New(ctx context.Context, provider model.Provider, opts Options) (api.Client, error) {
	switch provider {
	case model.ProviderGoogle:
		return google.NewClient(ctx, google.Config{
			TokenSource: opts.TokenSource,
			Endpoint:    opts.Endpoint,
			HTTPClient:  opts.HTTPClient,
			Transfer:    opts.Transfer,
			Logger:      opts.Logger,
		})
	case model.ProviderMicrosoft:
		return microsoft.NewClient(ctx, microsoft.Config{
			TokenSource: opts.TokenSource,
			Endpoint:    opts.Endpoint,
			HTTPClient:  opts.HTTPClient,
			Transfer:    opts.Transfer,
			Logger:      opts.Logger,
		})
	case model.ProviderDropbox:
		return dropbox.NewClient(dropbox.Config{
			TokenSource:     opts.TokenSource,
			APIEndpoint:     opts.Endpoint,
			ContentEndpoint: opts.ContentEndpoint,
			HTTPClient:      opts.HTTPClient,
			Transfer:        opts.Transfer,
			Logger:          opts.Logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
