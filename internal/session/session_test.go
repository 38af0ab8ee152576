package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestLogin(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signToken(t, jwt.MapClaims{
		"sub":  "U7",
		"role": "teacher",
		"exp":  float64(exp.Unix()),
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "15234567", req.Cedula)

		json.NewEncoder(w).Encode(loginResponse{
			Token: token,
			User:  User{ID: "U7", Name: "Prof. Sandra", Role: "teacher"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	sess, err := c.Login(context.Background(), "15234567", "Prof2025")
	require.NoError(t, err)

	assert.Equal(t, "U7", sess.User.ID)
	assert.Equal(t, "teacher", sess.User.Role)
	assert.Equal(t, exp.Unix(), sess.ExpiresAt.Unix())
	assert.False(t, sess.Expired())
}

func TestLoginFillsIdentityFromClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "U9", "role": "coordinator"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Minimal response: identity comes from the token claims.
		json.NewEncoder(w).Encode(loginResponse{Token: token})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	sess, err := c.Login(context.Background(), "12345678", "Coord2025!")
	require.NoError(t, err)
	assert.Equal(t, "U9", sess.User.ID)
	assert.Equal(t, "coordinator", sess.User.Role)
	assert.True(t, sess.ExpiresAt.IsZero())
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "credenciales inválidas", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Login(context.Background(), "27123456", "wrong")
	assert.ErrorContains(t, err, "status=401")
}

func TestLoginNoUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(loginResponse{Token: "not-a-jwt"})
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Login(context.Background(), "27123456", "27123456")
	assert.ErrorContains(t, err, "no user id")
}

func TestExpired(t *testing.T) {
	s := &Session{ExpiresAt: time.Now().Add(-time.Minute)}
	assert.True(t, s.Expired())
}
