package idp

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Provider names accepted on the callback path and by the exchange endpoint.
const (
	Google = "google"
	GitHub = "github"
)

// Identity is what the login flow needs from a provider: who the user is.
type Identity struct {
	ProviderType  string `json:"provider_type"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Provider abstracts one OAuth identity provider.
type Provider interface {
	// Type returns the provider name ("google" or "github").
	Type() string

	// AuthURL builds the authorization URL the browser is sent to.
	AuthURL(state string) string

	// ExchangeCode trades an authorization code for provider tokens.
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)

	// Identity resolves the signed in user from the exchanged token.
	Identity(ctx context.Context, token *oauth2.Token) (*Identity, error)
}

// NewProvider builds a provider by name. clientSecret may be empty when only
// AuthURL is needed.
func NewProvider(name, clientID, clientSecret, redirectURI string) (Provider, error) {
	switch name {
	case Google:
		return NewGoogleProvider(clientID, clientSecret, redirectURI), nil
	case GitHub:
		return NewGitHubProvider(clientID, clientSecret, redirectURI), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", name)
	}
}

// Valid reports whether name is a supported provider.
func Valid(name string) bool {
	return name == Google || name == GitHub
}

// CallbackPath is the path on this site a provider redirects back to.
func CallbackPath(provider string) string {
	return "/auth/" + provider + "/callback"
}

// RedirectURI is the absolute callback URL registered with the provider.
func RedirectURI(siteURL, provider string) string {
	return strings.TrimSuffix(siteURL, "/") + CallbackPath(provider)
}
