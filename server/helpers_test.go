package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/course-sso/authclient"
	"github.com/jrsteele09/course-sso/internal/config"
	"github.com/jrsteele09/course-sso/proxy"
	"github.com/jrsteele09/course-sso/server"
	"github.com/jrsteele09/course-sso/sso"
	"github.com/jrsteele09/course-sso/sso/ssofake"
	"github.com/stretchr/testify/require"
)

const (
	testToken    = "api-token"
	testMerchant = "merchant-1"
	testHostApp  = "https://learn.example.com"
)

type envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	SessionToken string          `json:"sessionToken"`
	User         json.RawMessage `json:"user"`
	ErrorDetails json.RawMessage `json:"errorDetails"`
}

type testEnv struct {
	ts     *httptest.Server
	client *http.Client
	vendor *ssofake.Vendor

	mu    sync.Mutex
	codes map[string]string
}

func (e *testEnv) code(email string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.codes[email]
}

func setEnv(t *testing.T, overrides map[string]string) config.Config {
	t.Helper()
	vars := map[string]string{
		"ENV":             "TEST",
		"SSO_API_TOKEN":   testToken,
		"SSO_MERCHANT_ID": testMerchant,
		"HOST_APP_URL":    testHostApp,
		"SITE_URL":        "http://sso.test",
	}
	for k, v := range overrides {
		vars[k] = v
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	cfg, err := config.New()
	require.NoError(t, err)
	return cfg
}

// newTestEnv runs the server against an in-process fake vendor. The login
// pages reach the JSON API over HTTP, as they do in production.
func newTestEnv(t *testing.T, overrides map[string]string, opts ...server.Option) *testEnv {
	t.Helper()
	cfg := setEnv(t, overrides)

	env := &testEnv{codes: make(map[string]string)}
	env.vendor = ssofake.New(testToken, testMerchant)
	env.vendor.OnIssue = func(email, code string) {
		env.mu.Lock()
		env.codes[email] = code
		env.mu.Unlock()
	}
	vendorSrv := httptest.NewServer(env.vendor)
	t.Cleanup(vendorSrv.Close)

	return env.start(t, cfg, sso.NewClient(vendorSrv.URL, testToken), opts...)
}

func (e *testEnv) start(t *testing.T, cfg config.Config, vendor proxy.VendorClient, opts ...server.Option) *testEnv {
	t.Helper()
	svc := proxy.NewService(vendor, cfg.GetCredentials(),
		proxy.WithSigner(sso.NewTokenSigner(testToken, cfg.GetSSOTokenTTL())))

	var handler http.Handler
	e.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(e.ts.Close)

	opts = append([]server.Option{
		server.WithOtpClient(authclient.New(e.ts.URL+"/api", e.ts.Client())),
		server.WithExchanger(&authclient.MockExchanger{}),
	}, opts...)
	srv, err := server.New(cfg, svc, opts...)
	require.NoError(t, err)
	handler = srv

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	e.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return e
}

func (e *testEnv) postJSON(t *testing.T, path, body string) (*http.Response, envelope) {
	t.Helper()
	resp, err := e.client.Post(e.ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.ts.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func cookieValue(resp *http.Response, name string) (*http.Cookie, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
