package sso

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/course-sso/internal/errors"
	"golang.org/x/oauth2"
)

// Client calls the vendor OTP endpoints. Every request carries the API token
// as a bearer credential. There is no retry and no timeout beyond the
// underlying http.Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*clientOptions)

type clientOptions struct {
	base *http.Client
}

// WithHTTPClient sets the client used underneath the bearer transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.base = c }
}

func NewClient(baseURL, apiToken string, opts ...Option) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	if o.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiToken, TokenType: "Bearer"})

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: oauth2.NewClient(ctx, src),
	}
}

func (c *Client) SendOTP(ctx context.Context, req SendOTPRequest) (*Response, error) {
	return c.post(ctx, SendOTPPath, req)
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*Response, error) {
	return c.post(ctx, LoginPath, req)
}

// post returns a Response for 2xx replies, an *apperrors.UpstreamError for any
// other status and an error wrapping apperrors.ErrTransport when the vendor
// could not be reached.
func (c *Client) post(ctx context.Context, path string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("[sso post] marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("[sso post] build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[sso post] POST %s: %w: %w", path, apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("[sso post] read %s reply: %w: %w", path, apperrors.ErrTransport, err)
	}

	out := decode(resp.StatusCode, raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    out.Message,
			Details:    out.Raw,
		}
	}
	return out, nil
}

func decode(status int, raw []byte) *Response {
	out := &Response{StatusCode: status, Raw: detailsJSON(raw)}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		out.Malformed = true
		return out
	}
	if msg, ok := env.Message.(string); ok {
		out.Message = msg
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		var data LoginData
		if err := json.Unmarshal(env.Data, &data); err == nil {
			out.Data = &data
		}
	}
	return out
}

// detailsJSON keeps a JSON body as is and quotes anything else so it can be
// embedded in a JSON envelope.
func detailsJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
