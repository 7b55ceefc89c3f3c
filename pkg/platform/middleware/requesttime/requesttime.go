// Package requesttime pins one "now" per HTTP request so timeline entries,
// session checks and audit events inside a request agree on the time.
package requesttime

import (
	"net/http"
	"time"

	"civicchain/pkg/requestcontext"
)

// Middleware stores the time the request arrived in its context.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable clock.
func MiddlewareWithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
