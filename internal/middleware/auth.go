package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/model"
)

// TokenVerifier turns a bearer token into a caller identity.
// *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
}

// Auth returns a middleware that requires a valid bearer token.
// Rejected requests get a 401 and never reach next.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.ParseAuthorizationHeader(r.Header.Get("Authorization"))
			if err != nil {
				rejectAuth(cfg.Logger, w, r, err)
				return
			}

			identity, err := cfg.Verifier.Verify(token)
			if err != nil {
				rejectAuth(cfg.Logger, w, r, err)
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", identity.UserID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectAuth(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	message, reason := authFailure(err)
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", getClientIP(r)),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// authFailure maps a verifier error to the client message and a log reason.
func authFailure(err error) (message, reason string) {
	switch {
	case errors.Is(err, auth.ErrMissingHeader):
		return "Missing Authorization header", "missing_header"
	case errors.Is(err, auth.ErrMalformedHeader):
		return "Invalid Authorization header format", "malformed_header"
	default:
		return "Invalid or expired token", "invalid_token"
	}
}
