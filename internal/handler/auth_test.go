package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"botadmin/internal/middleware"
	"botadmin/pkg/logger"
)

const testJWTSecret = "test-secret-key-for-sessions"

func newAuthHandler(t *testing.T, password string) *AuthHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthHandler(string(hash), testJWTSecret, time.Hour, logger.NewNop())
}

func loginRequestWith(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLogin_IssuesUsableToken(t *testing.T) {
	h := newAuthHandler(t, "correct-horse")

	rec := httptest.NewRecorder()
	h.Login(rec, loginRequestWith(t, `{"password":"correct-horse"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	// The issued token passes the auth middleware and sets the actor.
	authMW := middleware.NewAuthMiddleware(testJWTSecret)
	var actor string
	protected := authMW.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, _ = middleware.ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	inner := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	inner.Header.Set("Authorization", "Bearer "+resp.Token)
	innerRec := httptest.NewRecorder()
	protected.ServeHTTP(innerRec, inner)

	assert.Equal(t, http.StatusNoContent, innerRec.Code)
	assert.Equal(t, "admin", actor)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newAuthHandler(t, "correct-horse")

	rec := httptest.NewRecorder()
	h.Login(rec, loginRequestWith(t, `{"password":"battery-staple"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_MalformedBody(t *testing.T) {
	h := newAuthHandler(t, "correct-horse")

	for _, body := range []string{"", "{bad", `{"password":"x","extra":1}`} {
		rec := httptest.NewRecorder()
		h.Login(rec, loginRequestWith(t, body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	authMW := middleware.NewAuthMiddleware(testJWTSecret)
	protected := authMW.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"garbage token": "Bearer not.a.token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
