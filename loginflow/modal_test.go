package loginflow_test

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jrsteele09/course-sso/authclient"
	"github.com/jrsteele09/course-sso/loginflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const host = "https://learn.example.com"

type fakeOtpClient struct {
	send    authclient.Result
	login   authclient.Result
	sends   []string
	logins  []string
	courses []string
	blockOn chan struct{}
	entered chan struct{}
}

func (f *fakeOtpClient) GenerateOtp(_ context.Context, email, _ string) authclient.Result {
	f.sends = append(f.sends, email)
	if f.blockOn != nil {
		close(f.entered)
		<-f.blockOn
	}
	return f.send
}

func (f *fakeOtpClient) LoginSignupWithOtp(_ context.Context, email, otp, _ string, courseIDs []string) authclient.Result {
	f.logins = append(f.logins, email+":"+otp)
	f.courses = courseIDs
	return f.login
}

type recordingNav struct{ targets []string }

func (n *recordingNav) Navigate(target string) { n.targets = append(n.targets, target) }

func enterCode(m *loginflow.Modal, code string) {
	for i, ch := range code {
		m.Enter(i, string(ch))
	}
}

func TestModalOtpLoginEndToEnd(t *testing.T) {
	ctx := context.Background()
	client := &fakeOtpClient{
		send:  authclient.Result{Success: true, Message: "OTP request processed."},
		login: authclient.Result{Success: true, SessionToken: "T", Message: "Successfully logged in."},
	}
	store := loginflow.NewMemoryStorage()
	nav := &recordingNav{}
	m := loginflow.NewModal(client, store, nav, host, "/courses", loginflow.WithCourseIDs("c1"))

	require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
	assert.Equal(t, loginflow.StageOtpSent, m.Stage())
	assert.Equal(t, "OTP sent to a***@b.com", m.Message())

	enterCode(m, "123456")
	require.NoError(t, m.Verify(ctx))

	assert.Equal(t, loginflow.StageRedirecting, m.Stage())
	assert.Equal(t, []string{host + "/courses?ssoToken=T"}, nav.targets)
	assert.Equal(t, []string{"a@b.com:123456"}, client.logins)
	assert.Equal(t, []string{"c1"}, client.courses)
	token, _ := store.Get(loginflow.KeySessionToken)
	assert.Equal(t, "T", token)

	assert.ErrorIs(t, m.Verify(ctx), loginflow.ErrFlowEnded)
	assert.ErrorIs(t, m.Resend(ctx), loginflow.ErrFlowEnded)
	assert.ErrorIs(t, m.Cancel(), loginflow.ErrFlowEnded)
	assert.Len(t, nav.targets, 1)
}

func TestModalSubmitEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("empty email stays idle", func(t *testing.T) {
		client := &fakeOtpClient{}
		m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "   ", ""))
		assert.Equal(t, loginflow.StageIdle, m.Stage())
		assert.Equal(t, loginflow.MsgEnterEmail, m.Message())
		assert.Empty(t, client.sends)
		assert.False(t, m.Busy())
	})

	t.Run("backend failure stays idle with message", func(t *testing.T) {
		client := &fakeOtpClient{send: authclient.Result{Message: "Email is required."}}
		m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
		assert.Equal(t, loginflow.StageIdle, m.Stage())
		assert.Equal(t, "Email is required.", m.Message())
	})

	t.Run("failure without message", func(t *testing.T) {
		m := loginflow.NewModal(&fakeOtpClient{}, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
		assert.Equal(t, loginflow.MsgSendFailed, m.Message())
	})

	t.Run("not allowed once otp sent", func(t *testing.T) {
		client := &fakeOtpClient{send: authclient.Result{Success: true}}
		m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
		assert.ErrorIs(t, m.SubmitEmail(ctx, "x@y.com", ""), loginflow.ErrWrongStage)
	})
}

func TestModalVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete code is blocked", func(t *testing.T) {
		client := &fakeOtpClient{send: authclient.Result{Success: true}}
		m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
		enterCode(m, "12345")

		require.NoError(t, m.Verify(ctx))
		assert.Equal(t, loginflow.MsgEnterOTP, m.Message())
		assert.Empty(t, client.logins)
		assert.Equal(t, loginflow.StageOtpSent, m.Stage())
	})

	t.Run("success without token does not redirect", func(t *testing.T) {
		client := &fakeOtpClient{
			send:  authclient.Result{Success: true},
			login: authclient.Result{Success: true, Message: "Invalid OTP"},
		}
		nav := &recordingNav{}
		store := loginflow.NewMemoryStorage()
		m := loginflow.NewModal(client, store, nav, host, "")
		require.NoError(t, m.SubmitEmail(ctx, "a@b.com", ""))
		enterCode(m, "000000")

		require.NoError(t, m.Verify(ctx))
		assert.Equal(t, "Invalid OTP", m.Message())
		assert.Equal(t, loginflow.StageOtpSent, m.Stage())
		assert.Empty(t, nav.targets)
		_, ok := store.Get(loginflow.KeySessionToken)
		assert.False(t, ok)
	})

	t.Run("not allowed before email", func(t *testing.T) {
		m := loginflow.NewModal(&fakeOtpClient{}, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")
		assert.ErrorIs(t, m.Verify(ctx), loginflow.ErrWrongStage)
	})

	t.Run("default return path", func(t *testing.T) {
		client := &fakeOtpClient{login: authclient.Result{Success: true, SessionToken: "T"}}
		nav := &recordingNav{}
		m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), nav, host, "")
		require.NoError(t, m.Resume("a@b.com", ""))
		enterCode(m, "123456")
		require.NoError(t, m.Verify(ctx))
		assert.Equal(t, []string{host + "/dashboard?ssoToken=T"}, nav.targets)
	})
}

func TestModalCancelAndResend(t *testing.T) {
	ctx := context.Background()
	client := &fakeOtpClient{send: authclient.Result{Success: true}}
	m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")

	assert.ErrorIs(t, m.Resend(ctx), loginflow.ErrWrongStage)
	assert.ErrorIs(t, m.Cancel(), loginflow.ErrWrongStage)

	require.NoError(t, m.SubmitEmail(ctx, "jane@example.com", ""))
	require.NoError(t, m.Resend(ctx))
	assert.Equal(t, "OTP resent to j***@example.com", m.Message())
	assert.Equal(t, []string{"jane@example.com", "jane@example.com"}, client.sends)

	enterCode(m, "12")
	require.NoError(t, m.Cancel())
	assert.Equal(t, loginflow.StageIdle, m.Stage())
	assert.Empty(t, m.Message())
	assert.Equal(t, "", m.Otp().Code())
}

func TestModalBusy(t *testing.T) {
	client := &fakeOtpClient{
		send:    authclient.Result{Success: true},
		blockOn: make(chan struct{}),
		entered: make(chan struct{}),
	}
	m := loginflow.NewModal(client, loginflow.NewMemoryStorage(), &recordingNav{}, host, "")

	done := make(chan error, 1)
	go func() { done <- m.SubmitEmail(context.Background(), "a@b.com", "") }()
	<-client.entered

	assert.True(t, m.Busy())
	assert.ErrorIs(t, m.SubmitEmail(context.Background(), "a@b.com", ""), loginflow.ErrBusy)

	close(client.blockOn)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SubmitEmail did not return")
	}
	assert.False(t, m.Busy())
	assert.Equal(t, loginflow.StageOtpSent, m.Stage())
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", loginflow.MaskEmail("jane@example.com"))
	assert.Equal(t, "a***@b.com", loginflow.MaskEmail("a@b.com"))
	assert.Equal(t, "n***", loginflow.MaskEmail("nodomain"))
	assert.Equal(t, "@x.com", loginflow.MaskEmail("@x.com"))

	masked := loginflow.MaskEmail("élodie@example.com")
	assert.Equal(t, "é***@example.com", masked)
	assert.True(t, utf8.ValidString(masked))
}
