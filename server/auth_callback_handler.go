package server

import (
	"net/http"

	"github.com/jrsteele09/course-sso/idp"
	"github.com/jrsteele09/course-sso/internal/errors"
	"github.com/jrsteele09/course-sso/loginflow"
	"github.com/rs/zerolog"
)

// CallbackPageData contains data for rendering a failed OAuth callback
type CallbackPageData struct {
	AppName  string
	Provider string
	Error    string
	HomeURL  string
}

// OAuthStartHandler sends the browser to the provider (GET /auth/{provider}/start)
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		returnURL := r.URL.Query().Get(paramReturnURL)

		nav := &httpNavigator{w: w, r: r}
		starter := loginflow.NewOAuthStarter(newCookieStorage(w, r), nav, s.config.GetSiteURL(), s.oauthClientIDs())

		err := starter.Start(provider, returnURL)
		switch {
		case err == nil:
			return
		case errors.Is(err, loginflow.ErrMissingClientID):
			zerolog.Ctx(r.Context()).Warn().Str("provider", provider).Msg("oauth client id not configured")
			redirectWithError(w, r, RouteLogin, returnURLParams(returnURL), loginflow.MissingClientIDMessage(provider))
		case errors.Is(err, loginflow.ErrUnknownProvider):
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).Str("provider", provider).Msg("oauth start failed")
			redirectWithError(w, r, RouteLogin, returnURLParams(returnURL), "Unknown OAuth provider.")
		}
	}
}

// OAuthCallbackHandler completes the sign in when the provider redirects back
// (GET /auth/{provider}/callback)
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := &httpNavigator{w: w, r: r}
		cb := loginflow.NewCallback(s.exchanger, newCookieStorage(w, r), nav, s.config.GetHostAppURL())

		err := cb.Process(r.Context(), r.URL.Path, r.URL.Query())
		if err == nil {
			return
		}

		data := CallbackPageData{
			AppName: s.config.GetAppName(),
			Error:   err.Error(),
			HomeURL: RouteLogin,
		}
		var cbErr *loginflow.CallbackError
		if errors.As(err, &cbErr) {
			data.Provider = loginflow.ProviderDisplayName(cbErr.Provider)
		}
		zerolog.Ctx(r.Context()).Warn().Str("provider", data.Provider).Str("error", data.Error).Msg("oauth callback failed")
		s.renderPage(w, r, http.StatusBadRequest, s.callbackTmpl, data)
	}
}

func (s *Server) oauthClientIDs() map[string]string {
	return map[string]string{
		idp.Google: s.config.GetOAuthClient(idp.Google).ClientID,
		idp.GitHub: s.config.GetOAuthClient(idp.GitHub).ClientID,
	}
}
