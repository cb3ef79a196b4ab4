package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// ReadinessChecker reports whether the service can serve requests.
type ReadinessChecker interface {
	Ready() bool
}

// RequireReady rejects requests with 503 until checker is ready.
func RequireReady(checker ReadinessChecker, retryAfter time.Duration) func(http.Handler) http.Handler {
	seconds := strconv.Itoa(int(retryAfter.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.Ready() {
				w.Header().Set("Retry-After", seconds)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"service is starting up","message":"service is starting up"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
