package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"botadmin/pkg/errors"
)

// AuthHandler issues admin session tokens.
type AuthHandler struct {
	passwordHash []byte
	jwtSecret    []byte
	expiration   time.Duration
	logger       Logger
}

func NewAuthHandler(passwordHash, jwtSecret string, expiration time.Duration, log Logger) *AuthHandler {
	return &AuthHandler{
		passwordHash: []byte(passwordHash),
		jwtSecret:    []byte(jwtSecret),
		expiration:   expiration,
		logger:       log,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the admin password against the configured bcrypt hash and
// returns a signed token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(req.Password)); err != nil {
		h.logger.Warn("Admin login rejected", map[string]interface{}{
			"ip": r.RemoteAddr,
		})
		respondError(w, http.StatusUnauthorized, errors.ErrInvalidCredentials.Error())
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.expiration)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	h.logger.Info("Admin logged in", map[string]interface{}{
		"ip": r.RemoteAddr,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      signed,
		"expires_at": claims.ExpiresAt.Time,
	})
}
