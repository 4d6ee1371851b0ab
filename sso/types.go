package sso

import "encoding/json"

// Vendor endpoint paths, relative to the configured base URL.
const (
	SendOTPPath = "/v2/otp/send"
	LoginPath   = "/v2/otp/login"
)

// SendOTPRequest is the vendor payload for issuing an OTP email.
type SendOTPRequest struct {
	Email      string `json:"email"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name,omitempty"`
}

// LoginRequest is the vendor payload for verifying an OTP. The vendor signs the
// user up when the email is unknown and enrols them in CourseIDs.
type LoginRequest struct {
	Email      string   `json:"email"`
	OTP        string   `json:"otp"`
	MerchantID string   `json:"merchant_id"`
	Name       string   `json:"name,omitempty"`
	CourseIDs  []string `json:"course_ids,omitempty"`
}

// LoginData is the nested "data" object of a login reply.
type LoginData struct {
	SSOToken string          `json:"ssoToken"`
	User     json.RawMessage `json:"user,omitempty"`
}

// Response is a 2xx vendor reply. Raw always holds the body as received so it
// can be forwarded for diagnostics.
type Response struct {
	StatusCode int
	Message    string
	Data       *LoginData
	Raw        json.RawMessage
	// Malformed is set when the body was not a JSON object.
	Malformed bool
}

// SessionToken returns data.ssoToken, or "" when the reply has none.
func (r *Response) SessionToken() string {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.SSOToken
}

type envelope struct {
	Message any             `json:"message"`
	Data    json.RawMessage `json:"data"`
}
