package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Result is the one shape every auth call resolves to, success or not, so
// callers only ever branch on Success and show Message.
type Result struct {
	Success      bool            `json:"success"`
	SessionToken string          `json:"sessionToken,omitempty"`
	Message      string          `json:"message"`
	User         json.RawMessage `json:"user,omitempty"`
}

// Client talks to the proxy's JSON API. It never returns errors: HTTP failures
// and network exceptions both come back as a failed Result.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Exchanger = (*Client)(nil)

// New returns a client for the API rooted at baseURL (for example
// "http://localhost:3001/api"). A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

type sendPayload struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type loginPayload struct {
	Email     string   `json:"email"`
	OTP       string   `json:"otp"`
	Name      string   `json:"name,omitempty"`
	CourseIDs []string `json:"course_ids,omitempty"`
}

type exchangePayload struct {
	Code     string `json:"code"`
	Provider string `json:"provider"`
}

func (c *Client) GenerateOtp(ctx context.Context, email, name string) Result {
	log.Debug().Str("email", email).Msg("[authclient] requesting OTP")
	return c.post(ctx, "/otp/send", sendPayload{Email: email, Name: name},
		"Failed to send OTP.",
		"An unexpected error occurred while sending OTP.")
}

func (c *Client) LoginSignupWithOtp(ctx context.Context, email, otp, name string, courseIDs []string) Result {
	log.Debug().Str("email", email).Msg("[authclient] verifying OTP")
	return c.post(ctx, "/otp/login-signup", loginPayload{Email: email, OTP: otp, Name: name, CourseIDs: courseIDs},
		"OTP Login/Signup failed.",
		"An unexpected error occurred during OTP login/signup.")
}

// ExchangeCodeForToken asks the backend to complete the OAuth exchange.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code, provider string) Result {
	return c.post(ctx, "/oauth/exchange", exchangePayload{Code: code, Provider: provider},
		fmt.Sprintf("OAuth failed with %s.", provider),
		fmt.Sprintf("An error occurred during OAuth with %s.", provider))
}

func (c *Client) post(ctx context.Context, path string, payload any, failed, unexpected string) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Err(err).Str("path", path).Msg("[authclient] encode request")
		return Result{Message: unexpected}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		log.Err(err).Str("path", path).Msg("[authclient] build request")
		return Result{Message: unexpected}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Err(err).Str("path", path).Msg("[authclient] request failed")
		return Result{Message: unexpected}
	}
	defer resp.Body.Close()

	var out Result
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("%s Status: %d", failed, resp.StatusCode)
		}
		log.Warn().Str("path", path).Int("status", resp.StatusCode).Str("message", msg).Msg("[authclient] backend rejected request")
		return Result{Message: msg}
	}
	if decodeErr != nil {
		log.Err(decodeErr).Str("path", path).Msg("[authclient] decode response")
		return Result{Message: unexpected}
	}
	return out
}
