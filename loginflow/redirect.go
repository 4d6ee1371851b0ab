package loginflow

import (
	"net/url"
	"strings"
)

// Navigator performs the full page navigation that ends a login flow.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a func to a Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// RedirectTarget builds the host application URL that hands over the SSO
// token: <host><returnPath>?ssoToken=<token>.
func RedirectTarget(host, returnPath, token string) string {
	if !strings.HasPrefix(returnPath, "/") {
		returnPath = "/" + returnPath
	}
	sep := "?"
	if strings.Contains(returnPath, "?") {
		sep = "&"
	}
	return strings.TrimSuffix(host, "/") + returnPath + sep + "ssoToken=" + url.QueryEscape(token)
}
