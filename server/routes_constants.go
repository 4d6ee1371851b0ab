package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Liveness
	RouteRoot = "/{$}"

	// JSON API
	RouteAPIOtpSend       = "/api/otp/send"
	RouteAPIOtpLogin      = "/api/otp/login-signup"
	RouteAPIOAuthExchange = "/api/oauth/exchange"
	RouteAPIPreflight     = "/api/"

	// Login pages
	RouteLogin         = "/login"
	RouteLoginOtpSend  = "/login/otp/send"
	RouteLoginVerify   = "/login/otp/verify"
	RouteLoginResend   = "/login/otp/resend"
	RouteLoginCancel   = "/login/otp/cancel"
	RouteLogout        = "/logout"
	RouteOAuthStart    = "/auth/{provider}/start"
	RouteOAuthCallback = "/auth/{provider}/callback"

	// Stand-in vendor for local development
	RouteFakeVendor = "/fake-vendor/"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
