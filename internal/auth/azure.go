package auth

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"golang.org/x/oauth2"
)

// AzureCredential adapts an oauth2.TokenSource to the azcore
// TokenCredential the Microsoft Graph SDK expects.
type AzureCredential struct {
	ts oauth2.TokenSource
}

// NewAzureCredential wraps ts for use with the Graph SDK.
func NewAzureCredential(ts oauth2.TokenSource) *AzureCredential {
	return &AzureCredential{ts: ts}
}

// GetToken implements azcore.TokenCredential.
func (c *AzureCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	token, err := c.ts.Token()
	if err != nil {
		return azcore.AccessToken{}, err
	}
	return azcore.AccessToken{Token: token.AccessToken, ExpiresOn: token.Expiry}, nil
}
