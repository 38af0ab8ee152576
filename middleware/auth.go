// Package middleware attaches the session credentials to outbound
// traffic: a bearer header on API requests, a query-string token on
// the realtime channel.
package middleware

import (
	"net/http"
	"net/url"
)

// AuthTransport injects the session bearer token into every request
// that does not already carry an Authorization header.
type AuthTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token != "" && req.Header.Get("Authorization") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// Authenticate wraps the client's transport so every request carries
// the token. Safe to call once per client, right after login.
func Authenticate(hc *http.Client, token string) {
	hc.Transport = &AuthTransport{Token: token, Base: hc.Transport}
}

// WSAuthURL appends the token as a query parameter. The WebSocket
// handshake cannot carry custom headers, so the realtime endpoint
// reads the token from the query string instead.
func WSAuthURL(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
