package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS creates CORS middleware for the given allowed origins.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return c.Handler
}

// CORSFromEnv creates CORS middleware from the FRONTEND_URL environment value.
// FRONTEND_URL is a comma-separated list of origins; http://localhost:3000 is
// always allowed for local development.
func CORSFromEnv(frontendURL string) func(http.Handler) http.Handler {
	origins := []string{"http://localhost:3000"}
	if frontendURL != "" {
		for _, origin := range strings.Split(frontendURL, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed == "" {
				continue
			}
			exists := false
			for _, existing := range origins {
				if existing == trimmed {
					exists = true
					break
				}
			}
			if !exists {
				origins = append(origins, trimmed)
			}
		}
	}
	return CORS(origins)
}
