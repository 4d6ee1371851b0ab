package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/course-sso/internal/errors"
	"github.com/jrsteele09/course-sso/proxy"
	"github.com/rs/zerolog"
)

const (
	msgLiveness       = "SSO backend is running!"
	msgInvalidBody    = "Invalid request body."
	maxRequestBodyLen = 1 << 20
)

// envelope is the JSON shape of every API response.
type envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	SessionToken string          `json:"sessionToken,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
	ErrorDetails json.RawMessage `json:"errorDetails,omitempty"`
}

type otpSendRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type otpLoginRequest struct {
	Email     string   `json:"email"`
	OTP       string   `json:"otp"`
	Name      string   `json:"name"`
	CourseIDs []string `json:"course_ids"`
}

type oauthExchangeRequest struct {
	Code     string `json:"code"`
	Provider string `json:"provider"`
}

func (s *Server) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeText)
		_, _ = w.Write([]byte(msgLiveness))
	}
}

// PreflightHandler only runs for preflights without an Origin header; the
// CORS middleware answers the rest.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) OtpSendHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpSendRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := s.proxy.SendOtp(r.Context(), req.Email, req.Name)
		if err != nil {
			writeServiceError(w, r, err, proxy.MsgSendFailed)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Message: res.Message})
	}
}

func (s *Server) OtpLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req otpLoginRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := s.proxy.LoginWithOtp(r.Context(), req.Email, req.OTP, req.Name, req.CourseIDs)
		if err != nil {
			writeServiceError(w, r, err, proxy.MsgLoginFailed)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			Success:      true,
			Message:      res.Message,
			SessionToken: res.SessionToken,
			User:         res.User,
		})
	}
}

func (s *Server) OAuthExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthExchangeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		res, err := s.proxy.ExchangeOAuthCode(r.Context(), req.Provider, req.Code)
		if err != nil {
			writeServiceError(w, r, err, proxy.MsgExchangeFailed)
			return
		}
		writeJSON(w, http.StatusOK, envelope{
			Success:      true,
			Message:      res.Message,
			SessionToken: res.SessionToken,
			User:         res.User,
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyLen)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("invalid request body")
		writeJSON(w, http.StatusBadRequest, envelope{Message: msgInvalidBody})
		return false
	}
	return true
}

// writeServiceError maps proxy errors to HTTP. fallback is the message for
// failures that carry none of their own, such as an unreachable vendor.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		ve    *apperrors.ValidationError
		ue    *apperrors.UpstreamError
		shape *apperrors.UpstreamShapeError
	)
	switch {
	case apperrors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{Message: ve.Message})
	case apperrors.Is(err, apperrors.ErrConfiguration):
		writeJSON(w, http.StatusInternalServerError, envelope{Message: proxy.MsgConfiguration})
	case apperrors.As(err, &ue):
		writeJSON(w, ue.StatusCode, envelope{Message: ue.Message, ErrorDetails: ue.Details})
	case apperrors.As(err, &shape):
		writeJSON(w, http.StatusUnauthorized, envelope{Message: shape.Message, ErrorDetails: shape.Details})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, envelope{Message: fallback})
	}
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
