package idp

import (
	"context"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
)

const googleIssuer = "https://accounts.google.com"

// GoogleProvider signs users in with Google. The identity comes from the ID
// token, verified against Google's published keys.
type GoogleProvider struct {
	config    oauth2.Config
	issuerURL string

	mu        sync.RWMutex
	verifier  *oidc.IDTokenVerifier
	discovery singleflight.Group
}

func NewGoogleProvider(clientID, clientSecret, redirectURI string) *GoogleProvider {
	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		issuerURL: googleIssuer,
	}
}

func (p *GoogleProvider) Type() string {
	return Google
}

func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

func (p *GoogleProvider) Identity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("no ID token in google response")
	}

	verifier, err := p.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}

	var claims struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to extract claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("google account has no email")
	}

	return &Identity{
		ProviderType:  Google,
		Subject:       claims.Sub,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// idTokenVerifier runs discovery once and caches the verifier.
func (p *GoogleProvider) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	p.mu.RLock()
	v := p.verifier
	p.mu.RUnlock()
	if v != nil {
		return v, nil
	}

	// Concurrent first logins share one discovery request.
	res, err, _ := p.discovery.Do(p.issuerURL, func() (any, error) {
		provider, err := oidc.NewProvider(ctx, p.issuerURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
		}
		verifier := provider.Verifier(&oidc.Config{ClientID: p.config.ClientID})

		p.mu.Lock()
		p.verifier = verifier
		p.mu.Unlock()
		return verifier, nil
	})
	if err != nil {
		return nil, err
	}
	v = res.(*oidc.IDTokenVerifier)
	return v, nil
}
