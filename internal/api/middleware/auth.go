package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/integrations/identity"
)

const (
	msgMissingToken = "missing bearer token"
	msgInvalidToken = "invalid token"
)

// Authenticator verifies bearer tokens
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Subject, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Auth rejects requests without a valid bearer token
func Auth(authn Authenticator, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondUnauthorized(w, msgMissingToken)
				return
			}

			subject, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				logger.Warn("Auth: %s %s - token rejected: %v", r.Method, r.URL.Path, err)
				respondUnauthorized(w, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

// OptionalAuth lets anonymous requests through; a token, when sent, must be valid
func OptionalAuth(authn Authenticator, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			subject, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				logger.Warn("OptionalAuth: %s %s - token rejected: %v", r.Method, r.URL.Path, err)
				respondUnauthorized(w, msgInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	handlers.RespondUnauthorized(w, message)
}
