package ratelimit

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DevTechJr/context-graphs/internal/model"
)

// KeyFunc extracts the rate limit key from a request. Returning an empty
// string skips rate limiting for that request.
type KeyFunc func(r *http.Request) string

// RequestIDFunc extracts the request ID for the 429 error envelope.
// Injected by the caller to avoid a dependency on the server package.
type RequestIDFunc func(r *http.Request) string

// Middleware returns HTTP middleware enforcing the limiter per key.
// A nil limiter disables rate limiting entirely. Limiter errors fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, reqIDFunc RequestIDFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil || allowed {
				next.ServeHTTP(w, r)
				return
			}

			var requestID string
			if reqIDFunc != nil {
				requestID = reqIDFunc(r)
			}
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(model.APIError{
				Error: model.ErrorDetail{
					Code:    model.ErrCodeRateLimited,
					Message: "too many requests",
				},
				Meta: model.ResponseMeta{
					RequestID: requestID,
					Timestamp: time.Now().UTC(),
				},
			})
		})
	}
}

// ClientIPKey extracts the client IP from RemoteAddr for rate limiting.
// X-Forwarded-For is deliberately not trusted: any client can set it to an
// arbitrary value and bypass the limit. Behind a trusted reverse proxy,
// configure the proxy to rewrite RemoteAddr instead.
func ClientIPKey(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
