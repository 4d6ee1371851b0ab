package loginflow

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/course-sso/authclient"
	"github.com/jrsteele09/course-sso/idp"
	"github.com/rs/zerolog/log"
)

// CallbackError is a failed OAuth callback. Message is shown to the user.
type CallbackError struct {
	Provider string
	Message  string
}

func (e *CallbackError) Error() string { return e.Message }

// Callback completes an OAuth sign-in when the provider redirects back.
type Callback struct {
	exchanger authclient.Exchanger
	store     Storage
	nav       Navigator
	hostURL   string
}

func NewCallback(exchanger authclient.Exchanger, store Storage, nav Navigator, hostURL string) *Callback {
	return &Callback{exchanger: exchanger, store: store, nav: nav, hostURL: hostURL}
}

// ProviderFromPath infers the provider from a callback path such as
// /auth/google/callback. It returns "" when neither provider matches.
func ProviderFromPath(path string) string {
	switch {
	case strings.Contains(path, "/"+idp.Google+"/"):
		return idp.Google
	case strings.Contains(path, "/"+idp.GitHub+"/"):
		return idp.GitHub
	default:
		return ""
	}
}

// Process handles the redirect back from the provider. On success the token
// is stored and the browser sent to the host application; any failure is
// returned as a *CallbackError and nothing is navigated.
func (c *Callback) Process(ctx context.Context, path string, query url.Values) error {
	provider := ProviderFromPath(path)
	if provider == "" {
		return &CallbackError{Message: "Could not determine OAuth provider from callback URL."}
	}

	code := query.Get("code")
	if code == "" {
		reason := query.Get("error")
		if reason == "" {
			reason = "No authorization code received."
		}
		msg := "OAuth failed: " + reason
		if desc := query.Get("error_description"); desc != "" {
			msg += " - " + desc
		}
		return &CallbackError{Provider: provider, Message: msg}
	}

	expected, ok := c.store.Get(KeyState)
	c.store.Remove(KeyState)
	if !ok || expected == "" || query.Get("state") != expected {
		log.Warn().Str("provider", provider).Msg("[loginflow] oauth state mismatch")
		return &CallbackError{Provider: provider, Message: "OAuth failed: state mismatch. Please try signing in again."}
	}

	res := c.exchanger.ExchangeCodeForToken(ctx, code, provider)
	if !res.Success || res.SessionToken == "" {
		msg := res.Message
		if msg == "" {
			msg = "OAuth failed with " + ProviderDisplayName(provider) + "."
		}
		return &CallbackError{Provider: provider, Message: msg}
	}

	returnPath := TakeReturnPath(c.store)
	c.store.Set(KeySessionToken, res.SessionToken)
	log.Info().Str("provider", provider).Str("return_path", returnPath).Msg("[loginflow] oauth login complete")
	c.nav.Navigate(RedirectTarget(c.hostURL, returnPath, res.SessionToken))
	return nil
}
