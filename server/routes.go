package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteRoot, s.LivenessHandler())

	// JSON API
	s.RegisterRouteHandler("POST "+RouteAPIOtpSend, ChainMiddleware(s.OtpSendHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIOtpLogin, ChainMiddleware(s.OtpLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIOAuthExchange, ChainMiddleware(s.OAuthExchangeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteLoginOtpSend, ChainMiddleware(s.OtpSendSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLoginVerify, ChainMiddleware(s.OtpVerifySubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLoginResend, ChainMiddleware(s.OtpResendSubmissionHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteLoginCancel, ChainMiddleware(s.OtpCancelHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOAuthStart, ChainMiddleware(s.OAuthStartHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))

	if s.fakeVendor != nil {
		log.Warn().Msg("[Server initRoutes] stand-in vendor mounted at " + RouteFakeVendor)
		s.RegisterRouteHandler(RouteFakeVendor, http.StripPrefix(strings.TrimSuffix(RouteFakeVendor, "/"), s.fakeVendor))
	}

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.serveFileHandler(), s.HTMLMiddleWare(s.CacheMiddleware, s.CompressionMiddleware)...))
}

func (s *Server) serveFileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := strings.TrimPrefix(r.URL.Path, "/")
		if filePath == "" {
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
		err := StreamFile(w, r, filePath)
		if err != nil {
			logError("GET", filePath, err.Error())
			http.Error(w, "404 - Page Not Found", http.StatusNotFound)
			return
		}
	}
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	errorString := Red + error + ResetColor
	log.Error().Msgf("[%-19s] %s %s", displayMethod, path, errorString)
}
