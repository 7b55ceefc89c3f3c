package testutil

import (
	"net/http"
	"time"

	id "civicchain/pkg/domain"
	"civicchain/pkg/requestcontext"
)

// WithAccount simulates the citizen auth middleware.
func WithAccount(req *http.Request, accountID id.AccountID, email string) *http.Request {
	return req.WithContext(requestcontext.WithAccount(req.Context(), accountID, email))
}

// WithAdminSession simulates the admin session middleware.
func WithAdminSession(req *http.Request, sessionID id.AdminSessionID, email string) *http.Request {
	return req.WithContext(requestcontext.WithAdminSession(req.Context(), sessionID, email))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
