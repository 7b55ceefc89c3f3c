// Package admin guards operator routes with a server-side session.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/httputil"
	"civicchain/pkg/requestcontext"
)

const (
	SessionHeader   = "X-Admin-Session"
	ExpiresInHeader = "X-Session-Expires-In"
	WarningHeader   = "X-Session-Warning"
)

// SessionInfo is the validated state of an operator session at request time.
type SessionInfo struct {
	SessionID    id.AdminSessionID
	Email        string
	ExpiresAt    time.Time
	ExpiringSoon bool
}

// SessionValidator checks a session against the request clock.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID id.AdminSessionID) (*SessionInfo, error)
}

// RequireAdminSession rejects requests without a live session and annotates
// accepted responses with the remaining lifetime.
func RequireAdminSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			sessionID, err := id.ParseAdminSessionID(r.Header.Get(SessionHeader))
			if err != nil {
				logger.WarnContext(ctx, "admin access - missing session",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
				return
			}

			info, err := validator.ValidateSession(ctx, sessionID)
			if err != nil {
				logger.WarnContext(ctx, "admin access - session rejected",
					"request_id", requestID,
					"admin_session_id", sessionID,
					"error", err,
				)
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					httputil.WriteError(w, err)
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to validate admin session"))
				return
			}

			remaining := max(info.ExpiresAt.Sub(requestcontext.Now(ctx)), 0)
			w.Header().Set(ExpiresInHeader, strconv.FormatInt(int64(remaining/time.Second), 10))
			if info.ExpiringSoon {
				w.Header().Set(WarningHeader, "expiring")
			}

			ctx = requestcontext.WithAdminSession(ctx, info.SessionID, info.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
