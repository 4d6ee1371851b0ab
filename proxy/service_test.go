package proxy_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/course-sso/idp"
	"github.com/jrsteele09/course-sso/internal/config"
	apperrors "github.com/jrsteele09/course-sso/internal/errors"
	"github.com/jrsteele09/course-sso/proxy"
	"github.com/jrsteele09/course-sso/sso"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testCreds = config.Credentials{APIToken: "api-token", MerchantID: "merchant-1"}

// fakeVendor records calls and replays canned replies.
type fakeVendor struct {
	sendCalls  []sso.SendOTPRequest
	loginCalls []sso.LoginRequest
	resp       *sso.Response
	err        error
}

func (f *fakeVendor) SendOTP(_ context.Context, req sso.SendOTPRequest) (*sso.Response, error) {
	f.sendCalls = append(f.sendCalls, req)
	return f.resp, f.err
}

func (f *fakeVendor) Login(_ context.Context, req sso.LoginRequest) (*sso.Response, error) {
	f.loginCalls = append(f.loginCalls, req)
	return f.resp, f.err
}

func TestSendOtp(t *testing.T) {
	t.Run("empty email never reaches vendor", func(t *testing.T) {
		for _, email := range []string{"", "   "} {
			vendor := &fakeVendor{}
			_, err := proxy.NewService(vendor, testCreds).SendOtp(context.Background(), email, "")
			require.True(t, apperrors.Is(err, apperrors.ErrValidation))
			require.Equal(t, proxy.MsgEmailRequired, err.Error())
			require.Empty(t, vendor.sendCalls)
		}
	})

	t.Run("missing credentials never reach vendor", func(t *testing.T) {
		vendor := &fakeVendor{}
		_, err := proxy.NewService(vendor, config.Credentials{APIToken: "x"}).SendOtp(context.Background(), "a@b.com", "")
		require.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
		require.Empty(t, vendor.sendCalls)
	})

	t.Run("vendor message forwarded", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{StatusCode: 200, Message: "ok"}}
		res, err := proxy.NewService(vendor, testCreds).SendOtp(context.Background(), " a@b.com ", "Ada")
		require.NoError(t, err)
		require.Equal(t, "ok", res.Message)
		require.Equal(t, []sso.SendOTPRequest{{Email: "a@b.com", MerchantID: "merchant-1", Name: "Ada"}}, vendor.sendCalls)
	})

	t.Run("default message", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{StatusCode: 201}}
		res, err := proxy.NewService(vendor, testCreds).SendOtp(context.Background(), "a@b.com", "")
		require.NoError(t, err)
		require.Equal(t, proxy.MsgSendDefault, res.Message)
	})

	t.Run("vendor rejection keeps status and details", func(t *testing.T) {
		vendor := &fakeVendor{err: &apperrors.UpstreamError{StatusCode: 429, Details: json.RawMessage(`{"retry":30}`)}}
		_, err := proxy.NewService(vendor, testCreds).SendOtp(context.Background(), "a@b.com", "")

		var ue *apperrors.UpstreamError
		require.True(t, apperrors.As(err, &ue))
		require.Equal(t, 429, ue.StatusCode)
		require.Equal(t, proxy.MsgSendFailed, ue.Message)
		require.JSONEq(t, `{"retry":30}`, string(ue.Details))
	})

	t.Run("transport failure", func(t *testing.T) {
		vendor := &fakeVendor{err: errors.Join(apperrors.ErrTransport, errors.New("dial tcp: refused"))}
		_, err := proxy.NewService(vendor, testCreds).SendOtp(context.Background(), "a@b.com", "")
		require.True(t, apperrors.Is(err, apperrors.ErrTransport))
		require.False(t, apperrors.Is(err, apperrors.ErrUpstream))
	})
}

func TestLoginWithOtp(t *testing.T) {
	t.Run("missing email or otp never reaches vendor", func(t *testing.T) {
		for _, tc := range []struct{ email, otp string }{{"", "123456"}, {"a@b.com", ""}, {"", ""}} {
			vendor := &fakeVendor{}
			_, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), tc.email, tc.otp, "", nil)
			require.True(t, apperrors.Is(err, apperrors.ErrValidation))
			require.Equal(t, proxy.MsgEmailAndOTPRequired, err.Error())
			require.Empty(t, vendor.loginCalls)
		}
	})

	t.Run("session token present", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{
			StatusCode: 200,
			Data:       &sso.LoginData{SSOToken: "abc", User: json.RawMessage(`{"id":"u1"}`)},
		}}
		res, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), "a@b.com", "123456", "", []string{"c1"})
		require.NoError(t, err)
		require.Equal(t, "abc", res.SessionToken)
		require.Equal(t, proxy.MsgLoginDefault, res.Message)
		require.JSONEq(t, `{"id":"u1"}`, string(res.User))
		require.Equal(t, []string{"c1"}, vendor.loginCalls[0].CourseIDs)
		require.Equal(t, "merchant-1", vendor.loginCalls[0].MerchantID)
	})

	t.Run("empty course ids not forwarded", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{StatusCode: 200, Data: &sso.LoginData{SSOToken: "abc"}}}
		_, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), "a@b.com", "123456", "", []string{})
		require.NoError(t, err)
		require.Nil(t, vendor.loginCalls[0].CourseIDs)
	})

	t.Run("2xx without token is a shape error", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{StatusCode: 200, Message: "Invalid OTP", Raw: json.RawMessage(`{"message":"Invalid OTP"}`)}}
		_, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), "a@b.com", "000000", "", nil)

		var se *apperrors.UpstreamShapeError
		require.True(t, apperrors.As(err, &se))
		require.Equal(t, apperrors.ShapeMissingToken, se.Reason)
		require.Equal(t, "Invalid OTP", se.Message)
		require.JSONEq(t, `{"message":"Invalid OTP"}`, string(se.Details))
	})

	t.Run("malformed 2xx reply is distinguishable", func(t *testing.T) {
		vendor := &fakeVendor{resp: &sso.Response{StatusCode: 200, Malformed: true, Raw: json.RawMessage(`"oops"`)}}
		_, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), "a@b.com", "000000", "", nil)

		var se *apperrors.UpstreamShapeError
		require.True(t, apperrors.As(err, &se))
		require.Equal(t, apperrors.ShapeMalformedBody, se.Reason)
		require.Equal(t, proxy.MsgLoginInvalid, se.Message)
	})

	t.Run("vendor rejection uses login fallback message", func(t *testing.T) {
		vendor := &fakeVendor{err: &apperrors.UpstreamError{StatusCode: 400}}
		_, err := proxy.NewService(vendor, testCreds).LoginWithOtp(context.Background(), "a@b.com", "1", "", nil)

		var ue *apperrors.UpstreamError
		require.True(t, apperrors.As(err, &ue))
		require.Equal(t, proxy.MsgLoginFailed, ue.Message)
	})
}

// fakeProvider is an idp.Provider with canned results.
type fakeProvider struct {
	name        string
	exchangeErr error
	identity    *idp.Identity
	identityErr error
}

func (p *fakeProvider) Type() string                { return p.name }
func (p *fakeProvider) AuthURL(state string) string { return "https://idp.example.com/auth?state=" + state }
func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*oauth2.Token, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code}, nil
}
func (p *fakeProvider) Identity(context.Context, *oauth2.Token) (*idp.Identity, error) {
	return p.identity, p.identityErr
}

type fakeSigner struct{ got sso.Identity }

func (s *fakeSigner) Sign(id sso.Identity) (string, error) {
	s.got = id
	return "signed-" + id.Email, nil
}

func TestExchangeOAuthCode(t *testing.T) {
	ada := &idp.Identity{ProviderType: idp.GitHub, Subject: "1", Email: "ada@example.com", Name: "Ada"}

	t.Run("success", func(t *testing.T) {
		signer := &fakeSigner{}
		svc := proxy.NewService(&fakeVendor{}, testCreds,
			proxy.WithProviders(&fakeProvider{name: idp.GitHub, identity: ada}),
			proxy.WithSigner(signer))

		res, err := svc.ExchangeOAuthCode(context.Background(), idp.GitHub, "code-1")
		require.NoError(t, err)
		require.Equal(t, "signed-ada@example.com", res.SessionToken)
		require.Equal(t, sso.Identity{Email: "ada@example.com", Name: "Ada"}, signer.got)
		require.Contains(t, string(res.User), `"email":"ada@example.com"`)
	})

	t.Run("validation", func(t *testing.T) {
		svc := proxy.NewService(&fakeVendor{}, testCreds)
		_, err := svc.ExchangeOAuthCode(context.Background(), idp.GitHub, "")
		require.True(t, apperrors.Is(err, apperrors.ErrValidation))
		_, err = svc.ExchangeOAuthCode(context.Background(), "myspace", "code")
		require.True(t, apperrors.Is(err, apperrors.ErrValidation))
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		svc := proxy.NewService(&fakeVendor{}, testCreds, proxy.WithSigner(&fakeSigner{}))
		_, err := svc.ExchangeOAuthCode(context.Background(), idp.Google, "code")
		require.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
	})

	t.Run("provider rejects code", func(t *testing.T) {
		retrieveErr := &oauth2.RetrieveError{
			Response:         &http.Response{StatusCode: http.StatusBadRequest},
			Body:             []byte(`{"error":"invalid_grant"}`),
			ErrorCode:        "invalid_grant",
			ErrorDescription: "Bad verification code.",
		}
		svc := proxy.NewService(&fakeVendor{}, testCreds,
			proxy.WithProviders(&fakeProvider{name: idp.GitHub, exchangeErr: retrieveErr}),
			proxy.WithSigner(&fakeSigner{}))

		_, err := svc.ExchangeOAuthCode(context.Background(), idp.GitHub, "stale")
		var ue *apperrors.UpstreamError
		require.True(t, apperrors.As(err, &ue))
		require.Equal(t, http.StatusBadRequest, ue.StatusCode)
		require.Equal(t, "Bad verification code.", ue.Message)
		require.JSONEq(t, `{"error":"invalid_grant"}`, string(ue.Details))
	})

	t.Run("identity failure", func(t *testing.T) {
		svc := proxy.NewService(&fakeVendor{}, testCreds,
			proxy.WithProviders(&fakeProvider{name: idp.Google, identityErr: errors.New("no email")}),
			proxy.WithSigner(&fakeSigner{}))

		_, err := svc.ExchangeOAuthCode(context.Background(), idp.Google, "code")
		var ue *apperrors.UpstreamError
		require.True(t, apperrors.As(err, &ue))
		require.Equal(t, http.StatusBadGateway, ue.StatusCode)
	})
}
