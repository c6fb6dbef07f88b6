package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"cloudgate/internal/logger"
	"cloudgate/internal/model"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const (
	// RedirectURL is the local callback used during interactive OAuth.
	RedirectURL = "http://localhost:8080/callback"

	GoogleDriveScope = "https://www.googleapis.com/auth/drive"
	GoogleEmailScope = "https://www.googleapis.com/auth/userinfo.email"

	MicrosoftFilesScope   = "files.readwrite.all"
	MicrosoftUserScope    = "user.read"
	MicrosoftOfflineScope = "offline_access"

	DropboxScope = "files.content.write files.content.read sharing.write account_info.read"
)

// dropboxEndpoint is the Dropbox OAuth2 endpoint; x/oauth2 ships no
// preset for it.
var dropboxEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.dropbox.com/oauth2/authorize",
	TokenURL: "https://api.dropboxapi.com/oauth2/token",
}

// OAuthConfig creates the oauth2 configuration for a provider.
func OAuthConfig(provider model.Provider, clientID, clientSecret string) (*oauth2.Config, error) {
	switch provider {
	case model.ProviderGoogle:
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  RedirectURL,
			Scopes:       []string{GoogleDriveScope, GoogleEmailScope},
			Endpoint:     google.Endpoint,
		}, nil

	case model.ProviderMicrosoft:
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  RedirectURL,
			Scopes:       []string{MicrosoftFilesScope, MicrosoftUserScope, MicrosoftOfflineScope},
			// "common" supports both personal and organizational accounts.
			Endpoint: microsoft.AzureADEndpoint("common"),
		}, nil

	case model.ProviderDropbox:
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  RedirectURL,
			Scopes:       []string{DropboxScope},
			Endpoint:     dropboxEndpoint,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// PerformOAuthFlow runs the interactive authorization-code flow with a
// local callback server and returns the refresh token.
func PerformOAuthFlow(ctx context.Context, config *oauth2.Config, log *logger.Logger) (string, error) {
	state := randomState()
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	log.Info("Please visit this URL to authorize the application:")
	log.Info("%s", authURL)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	server := &http.Server{Addr: ":8080", Handler: mux}

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("state mismatch")
			fmt.Fprint(w, "Error: state mismatch. You can close this window.")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			fmt.Fprint(w, "Error: no authorization code received. You can close this window.")
			return
		}
		codeChan <- code
		fmt.Fprint(w, "Authorization successful! You can close this window and return to the terminal.")
	})

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		server.Shutdown(ctx)
		return "", err
	case <-time.After(5 * time.Minute):
		server.Shutdown(ctx)
		return "", fmt.Errorf("OAuth flow timed out after 5 minutes")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	if token.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token received (user may have already authorized)")
	}
	return token.RefreshToken, nil
}

func randomState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
