package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/taskboard-app/taskboard/internal/models"
	"github.com/taskboard-app/taskboard/internal/request"
)

func signToken(t *testing.T, secret []byte, sub string, expiresIn time.Duration) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject(sub).
		Claim("email", "user@example.com").
		Claim("name", "Test User").
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(expiresIn)).
		Build()
	if err != nil {
		t.Fatalf("Failed to build token: %v", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return string(signed)
}

func TestAuth(t *testing.T) {
	t.Parallel()

	secret := []byte("test-secret-key")
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   bool
	}{
		{
			name:       "valid token",
			header:     "Bearer " + signToken(t, secret, userID.String(), time.Hour),
			wantStatus: http.StatusOK,
			wantUser:   true,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			header:     "Token abc123",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     "Bearer " + signToken(t, []byte("other-secret"), userID.String(), time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			header:     "Bearer " + signToken(t, secret, userID.String(), -time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non-uuid subject",
			header:     "Bearer " + signToken(t, secret, "not-a-uuid", time.Hour),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUser *models.User
			handler := Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = request.UserFromContext(r)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantUser {
				if gotUser == nil {
					t.Fatal("Expected user in context")
				}
				if gotUser.ID != userID {
					t.Errorf("Expected user ID %s, got %s", userID, gotUser.ID)
				}
				if gotUser.Email != "user@example.com" {
					t.Errorf("Expected email 'user@example.com', got '%s'", gotUser.Email)
				}
			} else if gotUser != nil {
				t.Errorf("Expected no user in context, got %+v", gotUser)
			}
		})
	}
}
