package ssofake

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/course-sso/sso"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
)

// Vendor is an in-memory stand in for the SSO vendor's OTP API. Codes are real
// six digit TOTP values derived from a per email secret, so a code stays valid
// for the current and adjacent 30 second windows.
type Vendor struct {
	apiToken   string
	merchantID string
	signer     *sso.TokenSigner
	now        func() time.Time

	mu      sync.Mutex
	secrets map[string]string
	users   map[string]user

	// OnIssue is called with every code sent. Defaults to logging it.
	OnIssue func(email, code string)
}

type user struct {
	Email     string   `json:"email"`
	Name      string   `json:"name,omitempty"`
	CourseIDs []string `json:"course_ids,omitempty"`
}

var validateOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

func New(apiToken, merchantID string) *Vendor {
	return &Vendor{
		apiToken:   apiToken,
		merchantID: merchantID,
		signer:     sso.NewTokenSigner(apiToken, 5*time.Minute),
		now:        time.Now,
		secrets:    make(map[string]string),
		users:      make(map[string]user),
		OnIssue: func(email, code string) {
			log.Info().Str("email", email).Str("otp", code).Msg("[ssofake] OTP issued")
		},
	}
}

func (v *Vendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "Method not allowed"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+v.apiToken {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API token"})
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, sso.SendOTPPath):
		v.sendOTP(w, r)
	case strings.HasSuffix(r.URL.Path, sso.LoginPath):
		v.login(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	}
}

// CurrentCode returns the code a user would receive now, or "" when no code
// was ever sent to email.
func (v *Vendor) CurrentCode(email string) string {
	v.mu.Lock()
	secret, ok := v.secrets[email]
	v.mu.Unlock()
	if !ok {
		return ""
	}
	code, err := totp.GenerateCodeCustom(secret, v.now(), validateOpts)
	if err != nil {
		return ""
	}
	return code
}

func (v *Vendor) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req sso.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed request"})
		return
	}
	if req.MerchantID != v.merchantID {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Unknown merchant"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email is required"})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "course-sso-fake",
		AccountName: req.Email,
		Period:      validateOpts.Period,
		Digits:      validateOpts.Digits,
		Algorithm:   validateOpts.Algorithm,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Could not generate OTP"})
		return
	}

	v.mu.Lock()
	v.secrets[req.Email] = key.Secret()
	if _, ok := v.users[req.Email]; !ok || req.Name != "" {
		v.users[req.Email] = user{Email: req.Email, Name: req.Name}
	}
	v.mu.Unlock()

	if v.OnIssue != nil {
		v.OnIssue(req.Email, v.CurrentCode(req.Email))
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "OTP sent successfully"})
}

// login answers a wrong code with 200 and no token, which is what the vendor
// does for expired or mistyped OTPs.
func (v *Vendor) login(w http.ResponseWriter, r *http.Request) {
	var req sso.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed request"})
		return
	}
	if req.MerchantID != v.merchantID {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Unknown merchant"})
		return
	}

	v.mu.Lock()
	secret, ok := v.secrets[req.Email]
	u := v.users[req.Email]
	v.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "No OTP was requested for this email"})
		return
	}
	valid, err := totp.ValidateCustom(req.OTP, secret, v.now(), validateOpts)
	if err != nil || !valid {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid OTP"})
		return
	}

	if req.Name != "" {
		u.Name = req.Name
	}
	u.Email = req.Email
	u.CourseIDs = append(u.CourseIDs, req.CourseIDs...)

	token, err := v.signer.Sign(sso.Identity{Email: u.Email, Name: u.Name})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Could not issue token"})
		return
	}

	v.mu.Lock()
	delete(v.secrets, req.Email)
	v.users[req.Email] = u
	v.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"data": map[string]any{
			"ssoToken": token,
			"user":     u,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
