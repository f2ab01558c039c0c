package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/m04kA/SMC-ParkingService/internal/api/handlers"
	"github.com/m04kA/SMC-ParkingService/internal/service/ratelimit"
)

// Limiter shared sliding-window limiter
type Limiter interface {
	Allow(ctx context.Context, operation, subject string) ratelimit.Decision
}

// RateLimit counts the request against operation. The subject is the authenticated
// user when there is one, otherwise the client address.
func RateLimit(limiter Limiter, operation string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := "ip:" + ClientIP(r)
			if id, ok := GetUserID(r.Context()); ok {
				subject = "user:" + id.String()
			}

			decision := limiter.Allow(r.Context(), operation, subject)
			if !decision.Allowed {
				logger.Info("RateLimit: %s denied for %s", operation, subject)
				handlers.RespondTooManyRequests(w, decision.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP first X-Forwarded-For entry, then X-Real-IP, then the connection address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		if ip := net.ParseIP(real); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
