package loginflow

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/course-sso/idp"
	"github.com/rs/zerolog/log"
)

// OAuthStarter sends the browser to a provider's consent page.
type OAuthStarter struct {
	store     Storage
	nav       Navigator
	siteURL   string
	clientIDs map[string]string
}

// NewOAuthStarter takes the public client id per provider name. Providers
// with an empty id fail Start with ErrMissingClientID.
func NewOAuthStarter(store Storage, nav Navigator, siteURL string, clientIDs map[string]string) *OAuthStarter {
	return &OAuthStarter{store: store, nav: nav, siteURL: siteURL, clientIDs: clientIDs}
}

// Start stores the return path and an anti-forgery state, then navigates to
// the provider. Nothing is stored or navigated on error.
func (o *OAuthStarter) Start(provider, returnPath string) error {
	if !idp.Valid(provider) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	clientID := o.clientIDs[provider]
	if clientID == "" {
		return fmt.Errorf("%s: %w", ProviderDisplayName(provider), ErrMissingClientID)
	}

	p, err := idp.NewProvider(provider, clientID, "", idp.RedirectURI(o.siteURL, provider))
	if err != nil {
		return err
	}

	if returnPath == "" {
		returnPath = DefaultReturnPath
	}
	state := uuid.NewString()
	o.store.Set(KeyReturnURL, returnPath)
	o.store.Set(KeyState, state)

	log.Debug().Str("provider", provider).Str("return_path", returnPath).Msg("[loginflow] starting oauth")
	o.nav.Navigate(p.AuthURL(state))
	return nil
}

// ProviderDisplayName is the provider name as shown to users.
func ProviderDisplayName(provider string) string {
	switch provider {
	case idp.Google:
		return "Google"
	case idp.GitHub:
		return "GitHub"
	default:
		return provider
	}
}

// MissingClientIDMessage is the inline error for an unconfigured provider.
func MissingClientIDMessage(provider string) string {
	return ProviderDisplayName(provider) + " Client ID is not configured. Please check environment variables."
}
