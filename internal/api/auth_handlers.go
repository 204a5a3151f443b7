package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/pod-storefront/internal/apperr"
	"github.com/example/pod-storefront/internal/auth"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the admin password for a bearer token
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if h.admin == nil {
		h.respondError(w, r, apperr.NotConfigured("admin login"))
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Password == "" {
		h.respondError(w, r, apperr.Validation("password is required"))
		return
	}

	token, expiresAt, err := h.admin.Login(req.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		respondJSON(w, http.StatusUnauthorized, errorBody{
			Error:   "unauthorized",
			Message: "invalid credentials",
			Status:  http.StatusUnauthorized,
		})
		return
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt.UTC(),
	})
}
