package config

import "strings"

// Exchange modes for the OAuth code exchange used by the login pages.
const (
	ExchangeMock    = "mock"
	ExchangeBackend = "backend"
)

type FrontendConfig interface {
	GetAPIBaseURL() string
	GetSiteURL() string
	GetHostAppURL() string
	GetOAuthClient(provider string) OAuthClient
	GetExchangeMode() string
}

// OAuthClient holds one identity provider registration. The secret is only
// needed for the backend exchange.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type Frontend struct {
	APIBaseURL         string `env:"API_BASE_URL" envDefault:"http://localhost:3001/api"`
	SiteURL            string `env:"SITE_URL" envDefault:"http://localhost:3001"`
	HostAppURL         string `env:"HOST_APP_URL" envDefault:"https://learn.example.com"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	ExchangeMode       string `env:"OAUTH_EXCHANGE" envDefault:"mock"`
}

var _ FrontendConfig = Frontend{}

func (f Frontend) GetAPIBaseURL() string {
	return strings.TrimSuffix(f.APIBaseURL, "/")
}

func (f Frontend) GetSiteURL() string {
	return strings.TrimSuffix(f.SiteURL, "/")
}

func (f Frontend) GetHostAppURL() string {
	return strings.TrimSuffix(f.HostAppURL, "/")
}

func (f Frontend) GetOAuthClient(provider string) OAuthClient {
	switch provider {
	case "google":
		return OAuthClient{ClientID: f.GoogleClientID, ClientSecret: f.GoogleClientSecret}
	case "github":
		return OAuthClient{ClientID: f.GitHubClientID, ClientSecret: f.GitHubClientSecret}
	}
	return OAuthClient{}
}

func (f Frontend) GetExchangeMode() string {
	if strings.EqualFold(f.ExchangeMode, ExchangeBackend) {
		return ExchangeBackend
	}
	return ExchangeMock
}
