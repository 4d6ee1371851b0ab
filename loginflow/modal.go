package loginflow

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jrsteele09/course-sso/authclient"
	"github.com/rs/zerolog/log"
)

// Messages shown in the login widget.
const (
	MsgEnterEmail       = "Please enter your email address."
	MsgEnterOTP         = "Please enter the 6-digit OTP."
	MsgSendFailed       = "Failed to send OTP."
	MsgResendFailed     = "Failed to resend OTP."
	MsgVerifyFailed     = "OTP verification failed."
	MsgVerifiedRedirect = "OTP Verified! Redirecting..."
)

type Stage int

const (
	StageIdle Stage = iota
	StageOtpSent
	StageRedirecting
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageOtpSent:
		return "otp_sent"
	case StageRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// OtpClient is the part of authclient.Client the widget calls.
type OtpClient interface {
	GenerateOtp(ctx context.Context, email, name string) authclient.Result
	LoginSignupWithOtp(ctx context.Context, email, otp, name string, courseIDs []string) authclient.Result
}

// Modal is the email OTP login widget. Methods return an error only when the
// action is not allowed right now; the outcome of an allowed action is
// reported through Stage and Message.
type Modal struct {
	client     OtpClient
	store      Storage
	nav        Navigator
	hostURL    string
	returnPath string
	courseIDs  []string

	mu      sync.Mutex
	stage   Stage
	busy    bool
	email   string
	name    string
	message string
	failed  bool
	otp     OtpInput
}

type ModalOption func(*Modal)

// WithCourseIDs enrols the user in these courses on login.
func WithCourseIDs(ids ...string) ModalOption {
	return func(m *Modal) { m.courseIDs = ids }
}

// NewModal returns a widget in the Idle step. returnPath is where the host
// application should land after login; empty means DefaultReturnPath.
func NewModal(client OtpClient, store Storage, nav Navigator, hostURL, returnPath string, opts ...ModalOption) *Modal {
	if returnPath == "" {
		returnPath = DefaultReturnPath
	}
	m := &Modal{
		client:     client,
		store:      store,
		nav:        nav,
		hostURL:    hostURL,
		returnPath: returnPath,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resume puts the widget back into the OtpSent step for an email whose code
// was already sent, as when the OTP page is reloaded.
func (m *Modal) Resume(email, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stage == StageRedirecting {
		return ErrFlowEnded
	}
	m.email = strings.TrimSpace(email)
	m.name = name
	m.stage = StageOtpSent
	return nil
}

func (m *Modal) Stage() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

func (m *Modal) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

// Failed reports whether Message describes a failure.
func (m *Modal) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

func (m *Modal) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

func (m *Modal) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

func (m *Modal) ReturnPath() string { return m.returnPath }

// Enter and Backspace forward to the OTP boxes.
func (m *Modal) Enter(i int, ch string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otp.Enter(i, ch)
}

func (m *Modal) Backspace(i int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.otp.Backspace(i)
}

func (m *Modal) Otp() OtpInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.otp
}

// SubmitEmail requests a code for email. On success the widget moves to
// OtpSent; on failure it stays Idle with the failure message.
func (m *Modal) SubmitEmail(ctx context.Context, email, name string) error {
	email = strings.TrimSpace(email)

	m.mu.Lock()
	if err := m.begin(StageIdle); err != nil {
		m.mu.Unlock()
		return err
	}
	m.message, m.failed = "", false
	if email == "" {
		m.message, m.failed = MsgEnterEmail, true
		m.busy = false
		m.mu.Unlock()
		return nil
	}
	m.email, m.name = email, name
	m.mu.Unlock()

	res := m.client.GenerateOtp(ctx, email, name)

	m.mu.Lock()
	defer m.end()
	if !res.Success {
		m.message, m.failed = messageOr(res.Message, MsgSendFailed), true
		return nil
	}
	m.stage = StageOtpSent
	m.otp.Reset()
	m.message = "OTP sent to " + MaskEmail(email)
	return nil
}

// Resend requests a fresh code for the email already submitted.
func (m *Modal) Resend(ctx context.Context) error {
	m.mu.Lock()
	if err := m.begin(StageOtpSent); err != nil {
		m.mu.Unlock()
		return err
	}
	m.message, m.failed = "", false
	email, name := m.email, m.name
	m.mu.Unlock()

	res := m.client.GenerateOtp(ctx, email, name)

	m.mu.Lock()
	defer m.end()
	if !res.Success {
		m.message, m.failed = messageOr(res.Message, MsgResendFailed), true
		return nil
	}
	m.message = "OTP resent to " + MaskEmail(email)
	return nil
}

// Verify submits the entered code. A successful login stores the session
// token, navigates to the host application and ends the flow.
func (m *Modal) Verify(ctx context.Context) error {
	m.mu.Lock()
	if err := m.begin(StageOtpSent); err != nil {
		m.mu.Unlock()
		return err
	}
	m.message, m.failed = "", false
	if !m.otp.Complete() {
		m.message, m.failed = MsgEnterOTP, true
		m.busy = false
		m.mu.Unlock()
		return nil
	}
	email, name, code := m.email, m.name, m.otp.Code()
	m.mu.Unlock()

	res := m.client.LoginSignupWithOtp(ctx, email, code, name, m.courseIDs)

	m.mu.Lock()
	if !res.Success || res.SessionToken == "" {
		m.message, m.failed = messageOr(res.Message, MsgVerifyFailed), true
		m.end()
		return nil
	}
	m.stage = StageRedirecting
	m.message = MsgVerifiedRedirect
	m.end()

	m.store.Set(KeySessionToken, res.SessionToken)
	log.Info().Str("email", email).Str("return_path", m.returnPath).Msg("[loginflow] otp login complete")
	m.nav.Navigate(RedirectTarget(m.hostURL, m.returnPath, res.SessionToken))
	return nil
}

// Cancel abandons the OTP step. Nothing is revoked with the vendor.
func (m *Modal) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.stage == StageRedirecting:
		return ErrFlowEnded
	case m.busy:
		return ErrBusy
	case m.stage != StageOtpSent:
		return ErrWrongStage
	}
	m.otp.Reset()
	m.message, m.failed = "", false
	m.stage = StageIdle
	return nil
}

// begin must be called with mu held.
func (m *Modal) begin(want Stage) error {
	switch {
	case m.stage == StageRedirecting:
		return ErrFlowEnded
	case m.busy:
		return ErrBusy
	case m.stage != want:
		return ErrWrongStage
	}
	m.busy = true
	return nil
}

// end clears busy and releases mu.
func (m *Modal) end() {
	m.busy = false
	m.mu.Unlock()
}

// MaskEmail hides all but the first character of the local part:
// jane@example.com becomes j***@example.com.
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	first, _ := utf8.DecodeRuneInString(local)
	masked := string(first) + "***"
	if found {
		masked += "@" + domain
	}
	return masked
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
