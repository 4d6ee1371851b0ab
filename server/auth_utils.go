package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/course-sso/loginflow"
)

// Cookie lifetimes per storage key. The session token lives as long as the
// browser session.
var cookieMaxAge = map[string]int{
	loginflow.KeyReturnURL: 10 * 60,
	loginflow.KeyState:     10 * 60,
}

// cookieStorage is the server side stand-in for browser local storage: one
// cookie per key. Writes are visible to later reads in the same request.
type cookieStorage struct {
	w       http.ResponseWriter
	r       *http.Request
	pending map[string]*string
}

var _ loginflow.Storage = (*cookieStorage)(nil)

func newCookieStorage(w http.ResponseWriter, r *http.Request) *cookieStorage {
	return &cookieStorage{w: w, r: r, pending: make(map[string]*string)}
}

func (c *cookieStorage) Get(key string) (string, bool) {
	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	cookie, err := c.r.Cookie(key)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	v, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *cookieStorage) Set(key, value string) {
	c.pending[key] = &value
	c.setCookie(key, url.QueryEscape(value), cookieMaxAge[key])
}

func (c *cookieStorage) Remove(key string) {
	c.pending[key] = nil
	c.setCookie(key, "", -1)
}

func (c *cookieStorage) setCookie(name, value string, maxAge int) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(c.r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// httpNavigator ends a flow with a 303 to the target.
type httpNavigator struct {
	w      http.ResponseWriter
	r      *http.Request
	target string
}

func (n *httpNavigator) Navigate(target string) {
	n.target = target
	http.Redirect(n.w, n.r, target, http.StatusSeeOther)
}

func (n *httpNavigator) navigated() bool { return n.target != "" }

// redirectWithError sends the browser to path with an error message in the
// query, keeping any params already given.
func redirectWithError(w http.ResponseWriter, r *http.Request, path string, params url.Values, errorMsg string) {
	if params == nil {
		params = url.Values{}
	}
	if errorMsg != "" {
		params.Set("error", errorMsg)
	}
	target := path
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// returnURLParams carries the return path through page redirects.
func returnURLParams(returnURL string) url.Values {
	params := url.Values{}
	if returnURL != "" {
		params.Set(paramReturnURL, returnURL)
	}
	return params
}
