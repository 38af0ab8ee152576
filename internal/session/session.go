// Package session handles the login flow and the in-memory user
// identity. Nothing is persisted beyond the process: the token and the
// user live only for the session.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the logged-in identity.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"` // student, teacher or coordinator
}

// Session is an authenticated API session.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim has passed. Sessions
// without an exp claim never expire client-side.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Client performs the login call.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type loginRequest struct {
	Cedula   string `json:"cedula"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates with the national id number and password used by
// the university login flow.
func (c *Client) Login(ctx context.Context, cedula, password string) (*Session, error) {
	body, err := json.Marshal(loginRequest{Cedula: cedula, Password: password})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/auth/login", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login error: status=%d body=%s", resp.StatusCode, string(b))
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed login response: %w", err)
	}

	sess := &Session{Token: payload.Token, User: payload.User}

	// The API signs the token; the client only reads the claims to fill
	// in missing identity fields and the expiry.
	if claims, err := decodeClaims(payload.Token); err == nil {
		if sess.User.ID == "" {
			if sub, ok := claims["sub"].(string); ok {
				sess.User.ID = sub
			}
		}
		if sess.User.Role == "" {
			if role, ok := claims["role"].(string); ok {
				sess.User.Role = role
			}
		}
		if exp, ok := claims["exp"].(float64); ok {
			sess.ExpiresAt = time.Unix(int64(exp), 0)
		}
	}

	if sess.User.ID == "" {
		return nil, fmt.Errorf("login response carries no user id")
	}
	return sess, nil
}

// decodeClaims reads the token claims without verifying the signature;
// verification is the server's job, the client has no secret.
func decodeClaims(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("could not parse token claims")
	}
	return claims, nil
}
