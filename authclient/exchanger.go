package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/course-sso/idp"
	"github.com/rs/zerolog/log"
)

// Exchanger turns an OAuth authorization code into a session token.
type Exchanger interface {
	ExchangeCodeForToken(ctx context.Context, code, provider string) Result
}

// MockErrorCode makes MockExchanger fail, for exercising the error page.
const MockErrorCode = "error_code"

// MockExchanger is a local placeholder for the OAuth code exchange. It never
// contacts the provider; the token it returns is meaningless to the host
// application. Use the backend exchanger (Client) in production.
type MockExchanger struct {
	Delay time.Duration
}

func NewMockExchanger() *MockExchanger {
	return &MockExchanger{Delay: 500 * time.Millisecond}
}

func (m *MockExchanger) ExchangeCodeForToken(ctx context.Context, code, provider string) Result {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Result{Message: "OAuth sign-in was cancelled."}
		case <-timer.C:
		}
	}

	if code == "" || !idp.Valid(provider) {
		return mockFailure("Missing authorization code or provider (mocked error).")
	}
	if code == MockErrorCode {
		return mockFailure(fmt.Sprintf("Failed to exchange code with %s (mocked error).", provider))
	}

	user, _ := json.Marshal(map[string]string{
		"id":    "mock-user",
		"email": fmt.Sprintf("mockuser_%s@example.com", provider),
		"name":  "Mock OAuth User",
	})
	return Result{
		Success:      true,
		SessionToken: "mock-" + uuid.NewString(),
		Message:      "OAuth flow successful (mocked). Token received.",
		User:         user,
	}
}

func mockFailure(msg string) Result {
	log.Warn().Msg("[authclient] mock exchange failed: " + msg)
	return Result{Message: msg}
}
