package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenSource wraps an oauth2 refresh token with lazy refresh. The core
// only ever reads access tokens from it; expiry and refresh semantics
// stay opaque to the adapters. One source is shared by every request an
// adapter makes, so access is serialized.
type TokenSource struct {
	config       *oauth2.Config
	refreshToken string

	mu           sync.Mutex
	currentToken *oauth2.Token
}

// NewTokenSource creates a TokenSource from a stored refresh token.
func NewTokenSource(config *oauth2.Config, refreshToken string) *TokenSource {
	return &TokenSource{config: config, refreshToken: refreshToken}
}

// Token returns a valid access token, refreshing if necessary.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.currentToken != nil && ts.currentToken.Valid() {
		return ts.currentToken, nil
	}

	seed := &oauth2.Token{RefreshToken: ts.refreshToken}
	newToken, err := ts.config.TokenSource(context.Background(), seed).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	ts.currentToken = newToken
	return newToken, nil
}

// GetRefreshToken returns the most recent refresh token, which some
// providers rotate on refresh.
func (ts *TokenSource) GetRefreshToken() string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.currentToken != nil && ts.currentToken.RefreshToken != "" {
		return ts.currentToken.RefreshToken
	}
	return ts.refreshToken
}

// ValidateToken checks whether a stored refresh token can still be
// exchanged for an access token.
func ValidateToken(config *oauth2.Config, refreshToken string) error {
	_, err := NewTokenSource(config, refreshToken).Token()
	return err
}

// StaticTokenSource wraps a fixed access token. Used in tests and for
// short-lived tokens supplied by an external credential provider.
func StaticTokenSource(accessToken string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
}
