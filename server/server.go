package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/course-sso/authclient"
	"github.com/jrsteele09/course-sso/internal/config"
	"github.com/jrsteele09/course-sso/loginflow"
	"github.com/jrsteele09/course-sso/proxy"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	proxy      *proxy.Service
	otpClient  loginflow.OtpClient
	exchanger  authclient.Exchanger
	fakeVendor http.Handler
	limiter    *rateLimiter

	loginTmpl    *template.Template
	otpTmpl      *template.Template
	callbackTmpl *template.Template
}

type Option func(*Server)

// WithOtpClient replaces the client the login pages use to reach the JSON
// API. By default they call API_BASE_URL over HTTP.
func WithOtpClient(c loginflow.OtpClient) Option {
	return func(s *Server) { s.otpClient = c }
}

// WithExchanger replaces the OAuth code exchange used by the callback page.
func WithExchanger(e authclient.Exchanger) Option {
	return func(s *Server) { s.exchanger = e }
}

// WithFakeVendor mounts a stand-in vendor under RouteFakeVendor.
func WithFakeVendor(h http.Handler) Option {
	return func(s *Server) { s.fakeVendor = h }
}

func New(cfg config.Config, svc *proxy.Service, opts ...Option) (*Server, error) {
	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		proxy:  svc,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.otpClient == nil || s.exchanger == nil {
		client := authclient.New(cfg.GetAPIBaseURL(), nil)
		if s.otpClient == nil {
			s.otpClient = client
		}
		if s.exchanger == nil {
			s.exchanger = authclient.Exchanger(client)
			if cfg.GetExchangeMode() == config.ExchangeMock {
				log.Warn().Msg("[Server New] OAuth callback uses the mock code exchange; tokens will not be accepted by the host application")
				s.exchanger = authclient.NewMockExchanger()
			}
		}
	}

	if cfg.GetEnableRateLimiting() {
		s.limiter = newRateLimiter(cfg.GetRateLimitPerMinute())
	}

	var err error
	if s.loginTmpl, err = ParseTemplate("login.html"); err != nil {
		return nil, fmt.Errorf("[Server New] parse login template: %w", err)
	}
	if s.otpTmpl, err = ParseTemplate("otp.html"); err != nil {
		return nil, fmt.Errorf("[Server New] parse otp template: %w", err)
	}
	if s.callbackTmpl, err = ParseTemplate("callback_error.html"); err != nil {
		return nil, fmt.Errorf("[Server New] parse callback template: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
