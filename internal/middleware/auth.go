package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

// AccessTokenCookie is the cookie carrying the short-lived access token.
const AccessTokenCookie = "accessToken"

// AccessVerifier resolves a signed access token to an identity.
type AccessVerifier interface {
	VerifyAccess(token string) (auth.Identity, error)
}

// AccountLoader fetches the account referenced by a verified token. The
// returned user excludes nothing; the guard only reads identity fields.
type AccountLoader interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// RequireAuth guards a handler behind access-token verification. The token is
// read from the accessToken cookie first, then from the Authorization header.
// On success the resolved identity is attached to the request context; every
// failure is fatal to the request and answered with 401.
func RequireAuth(verifier AccessVerifier, accounts AccountLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := extractAccessToken(r)
			if token == "" {
				writeUnauthorized(w, "missing token")
				return
			}

			identity, err := verifier.VerifyAccess(token)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			user, err := accounts.FindByID(ctx, identity.UserID)
			if err != nil {
				logger.Warn("token references unknown account", "userId", identity.UserID)
				writeUnauthorized(w, "invalid token")
				return
			}

			identity.Username = user.Username
			identity.Email = user.Email
			identity.FullName = user.FullName

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(ctx, identity)))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is present but lets
// anonymous requests through. Used by public reads that personalize output.
func OptionalAuth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractAccessToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := verifier.VerifyAccess(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

func extractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"data":       nil,
		"message":    message,
		"success":    false,
	})
}
