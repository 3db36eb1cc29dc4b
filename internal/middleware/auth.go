package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quillchat/quillchat/internal/auth"
	"github.com/quillchat/quillchat/internal/model"
)

// TokenVerifier validates a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup resolves a token subject to a user record.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens TokenVerifier
	Users  UserLookup
}

// Auth returns a middleware that authenticates API requests.
// It extracts the bearer token from the Authorization header, verifies
// the signature and expiry, resolves the subject to a live account and
// injects the auth context into the request. Every failure mode gets
// the same 401 body so callers cannot probe which part failed.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				logAuthFailure(cfg.Logger, r, "missing_token")
				writeAuthError(w)
				return
			}

			subject, err := cfg.Tokens.Verify(token)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "invalid_token")
				writeAuthError(w)
				return
			}

			user, err := cfg.Users.GetUserByEmail(r.Context(), subject)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "unknown_subject")
				writeAuthError(w)
				return
			}
			if !user.Enabled {
				logAuthFailure(cfg.Logger, r, "account_disabled")
				writeAuthError(w)
				return
			}

			authCtx := &model.AuthContext{
				UserID: user.ID,
				Email:  user.Email,
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing token"}}`))
}
