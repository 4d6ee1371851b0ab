package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jrsteele09/course-sso/idp"
	"github.com/jrsteele09/course-sso/internal/config"
	apperrors "github.com/jrsteele09/course-sso/internal/errors"
	"github.com/jrsteele09/course-sso/sso"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// User facing messages. Vendor supplied messages take precedence where one
// exists.
const (
	MsgEmailRequired       = "Email is required."
	MsgEmailAndOTPRequired = "Email and OTP are required."
	MsgCodeRequired        = "Authorization code is required."
	MsgUnknownProvider     = "Unknown OAuth provider."
	MsgConfiguration       = "Backend configuration error."
	MsgSendDefault         = "OTP request processed."
	MsgSendFailed          = "An error occurred while trying to send OTP."
	MsgLoginDefault        = "Successfully logged in."
	MsgLoginInvalid        = "Login failed. Invalid OTP or other issue."
	MsgLoginFailed         = "An error occurred during OTP login/signup."
	MsgExchangeFailed      = "An error occurred during OAuth sign-in."
)

// VendorClient is the part of sso.Client the service uses.
type VendorClient interface {
	SendOTP(ctx context.Context, req sso.SendOTPRequest) (*sso.Response, error)
	Login(ctx context.Context, req sso.LoginRequest) (*sso.Response, error)
}

// Signer mints SSO tokens for identities verified by an OAuth provider.
type Signer interface {
	Sign(id sso.Identity) (string, error)
}

type SendResult struct {
	Message string
}

type LoginResult struct {
	SessionToken string
	Message      string
	User         json.RawMessage
}

// Service relays OTP calls to the vendor with the server held credentials.
// It keeps no state between calls.
type Service struct {
	vendor    VendorClient
	creds     config.Credentials
	providers map[string]idp.Provider
	signer    Signer
}

type Option func(*Service)

// WithProviders enables ExchangeOAuthCode for the given providers. Each
// provider must be built with its client secret.
func WithProviders(providers ...idp.Provider) Option {
	return func(s *Service) {
		for _, p := range providers {
			s.providers[p.Type()] = p
		}
	}
}

func WithSigner(signer Signer) Option {
	return func(s *Service) { s.signer = signer }
}

func NewService(vendor VendorClient, creds config.Credentials, opts ...Option) *Service {
	s := &Service{
		vendor:    vendor,
		creds:     creds,
		providers: make(map[string]idp.Provider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SendOtp(ctx context.Context, email, name string) (SendResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return SendResult{}, apperrors.Validation(MsgEmailRequired)
	}
	if err := s.requireCredentials("SendOtp"); err != nil {
		return SendResult{}, err
	}

	log.Info().Str("email", email).Msg("[proxy SendOtp] calling vendor")
	resp, err := s.vendor.SendOTP(ctx, sso.SendOTPRequest{
		Email:      email,
		MerchantID: s.creds.MerchantID,
		Name:       strings.TrimSpace(name),
	})
	if err != nil {
		return SendResult{}, upstreamFailure("SendOtp", err, MsgSendFailed)
	}

	log.Info().Str("email", email).Int("status", resp.StatusCode).Msg("[proxy SendOtp] vendor accepted")
	return SendResult{Message: messageOr(resp.Message, MsgSendDefault)}, nil
}

// LoginWithOtp treats a 2xx reply as a login only when it carries
// data.ssoToken; anything else is an *apperrors.UpstreamShapeError.
func (s *Service) LoginWithOtp(ctx context.Context, email, otp, name string, courseIDs []string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return LoginResult{}, apperrors.Validation(MsgEmailAndOTPRequired)
	}
	if err := s.requireCredentials("LoginWithOtp"); err != nil {
		return LoginResult{}, err
	}

	req := sso.LoginRequest{
		Email:      email,
		OTP:        otp,
		MerchantID: s.creds.MerchantID,
		Name:       strings.TrimSpace(name),
	}
	if len(courseIDs) > 0 {
		req.CourseIDs = courseIDs
	}

	log.Info().Str("email", email).Int("courses", len(req.CourseIDs)).Msg("[proxy LoginWithOtp] calling vendor")
	resp, err := s.vendor.Login(ctx, req)
	if err != nil {
		return LoginResult{}, upstreamFailure("LoginWithOtp", err, MsgLoginFailed)
	}

	token := resp.SessionToken()
	if token == "" {
		reason := apperrors.ShapeMissingToken
		if resp.Malformed {
			reason = apperrors.ShapeMalformedBody
		}
		log.Error().Str("email", email).Str("reason", string(reason)).RawJSON("vendor", rawOrNull(resp.Raw)).
			Msg("[proxy LoginWithOtp] vendor reply has no session token")
		return LoginResult{}, &apperrors.UpstreamShapeError{
			Reason:  reason,
			Message: messageOr(resp.Message, MsgLoginInvalid),
			Details: resp.Raw,
		}
	}

	return LoginResult{
		SessionToken: token,
		Message:      messageOr(resp.Message, MsgLoginDefault),
		User:         resp.Data.User,
	}, nil
}

// ExchangeOAuthCode completes an OAuth round trip on the server: the code is
// exchanged with the provider, the identity resolved, and an SSO token minted
// for it.
func (s *Service) ExchangeOAuthCode(ctx context.Context, provider, code string) (LoginResult, error) {
	if strings.TrimSpace(code) == "" {
		return LoginResult{}, apperrors.Validation(MsgCodeRequired)
	}
	if !idp.Valid(provider) {
		return LoginResult{}, apperrors.Validation(MsgUnknownProvider)
	}
	p, ok := s.providers[provider]
	if !ok {
		log.Error().Str("provider", provider).Msg("[proxy ExchangeOAuthCode] provider has no client secret configured")
		return LoginResult{}, fmt.Errorf("[proxy ExchangeOAuthCode] %s not configured: %w", provider, apperrors.ErrConfiguration)
	}
	if err := s.requireCredentials("ExchangeOAuthCode"); err != nil {
		return LoginResult{}, err
	}
	if s.signer == nil {
		return LoginResult{}, fmt.Errorf("[proxy ExchangeOAuthCode] no token signer: %w", apperrors.ErrConfiguration)
	}

	token, err := p.ExchangeCode(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("[proxy ExchangeOAuthCode] code exchange failed")
		return LoginResult{}, providerFailure(err)
	}
	identity, err := p.Identity(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("[proxy ExchangeOAuthCode] identity lookup failed")
		return LoginResult{}, &apperrors.UpstreamError{StatusCode: 502, Message: MsgExchangeFailed}
	}

	ssoToken, err := s.signer.Sign(sso.Identity{Email: identity.Email, Name: identity.Name})
	if err != nil {
		return LoginResult{}, fmt.Errorf("[proxy ExchangeOAuthCode] %w", err)
	}
	user, err := json.Marshal(identity)
	if err != nil {
		return LoginResult{}, fmt.Errorf("[proxy ExchangeOAuthCode] encode identity: %w", err)
	}

	log.Info().Str("provider", provider).Str("email", identity.Email).Msg("[proxy ExchangeOAuthCode] signed in")
	return LoginResult{
		SessionToken: ssoToken,
		Message:      fmt.Sprintf("Signed in with %s.", provider),
		User:         user,
	}, nil
}

func (s *Service) requireCredentials(op string) error {
	if s.creds.Present() {
		return nil
	}
	log.Error().Str("op", op).Msg("[proxy] missing vendor credentials on backend")
	return fmt.Errorf("[proxy %s] missing vendor credentials: %w", op, apperrors.ErrConfiguration)
}

// upstreamFailure fills in a default message on vendor errors so callers can
// forward them as they are.
func upstreamFailure(op string, err error, fallback string) error {
	var ue *apperrors.UpstreamError
	if apperrors.As(err, &ue) {
		log.Error().Int("status", ue.StatusCode).RawJSON("vendor", rawOrNull(ue.Details)).Msgf("[proxy %s] vendor rejected call", op)
		return &apperrors.UpstreamError{
			StatusCode: ue.StatusCode,
			Message:    messageOr(ue.Message, fallback),
			Details:    ue.Details,
		}
	}
	log.Error().Err(err).Msgf("[proxy %s] vendor unreachable", op)
	return apperrors.Wrapf(err, "[proxy %s]", op)
}

func providerFailure(err error) error {
	var re *oauth2.RetrieveError
	if apperrors.As(err, &re) && re.Response != nil {
		msg := MsgExchangeFailed
		if re.ErrorDescription != "" {
			msg = re.ErrorDescription
		}
		var details json.RawMessage
		if json.Valid(re.Body) {
			details = re.Body
		}
		return &apperrors.UpstreamError{StatusCode: re.Response.StatusCode, Message: msg, Details: details}
	}
	return &apperrors.UpstreamError{StatusCode: 502, Message: MsgExchangeFailed}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func rawOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
