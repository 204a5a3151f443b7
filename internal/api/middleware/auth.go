package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/example/pod-storefront/internal/auth"
)

// respondError writes the JSON error envelope used by every API response
func respondError(w http.ResponseWriter, r *http.Request, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      code,
		"message":    message,
		"status":     status,
		"request_id": chimw.GetReqID(r.Context()),
	})
}

// ExtractToken extracts the bearer token from the Authorization header
func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

// RequireAdmin rejects requests without a valid admin token
func RequireAdmin(tokens *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil || !tokens.Configured() {
				respondError(w, r, "not_configured", "admin authentication is not configured", http.StatusServiceUnavailable)
				return
			}

			tokenString := ExtractToken(r)
			if tokenString == "" {
				respondError(w, r, "unauthorized", "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				message := "invalid token"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "token has expired"
				}
				respondError(w, r, "unauthorized", message, http.StatusUnauthorized)
				return
			}
			if claims.Role != auth.RoleAdmin {
				respondError(w, r, "forbidden", "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves token claims from the request context
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*auth.Claims)
	return claims, ok
}
