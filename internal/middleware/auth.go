package middleware

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/request"
)

// Auth creates authentication middleware that validates bearer tokens.
// Tokens are HMAC-signed by the auth service; this side only verifies.
// The subject claim must be the user's UUID.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			token, err := jwt.Parse([]byte(parts[1]),
				jwt.WithKey(jwa.HS256, secret),
				jwt.WithValidate(true),
			)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userID, err := uuid.Parse(token.Subject())
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid token subject")
				return
			}

			user := &models.User{ID: userID}
			if email, ok := token.Get("email"); ok {
				if s, ok := email.(string); ok {
					user.Email = s
				}
			}
			if name, ok := token.Get("name"); ok {
				if s, ok := name.(string); ok {
					user.Name = s
				}
			}

			ctx := request.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
