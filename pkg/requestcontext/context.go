// Package requestcontext provides HTTP-independent accessors for
// request-scoped values.
//
// Middleware sets these values; services read them without importing
// net/http. Tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithAccount(ctx, accountID, "citizen@example.org")
package requestcontext

import (
	"context"
	"time"

	id "civicchain/pkg/domain"
)

type (
	accountIDKey    struct{}
	accountEmailKey struct{}
	adminSessionKey struct{}
	adminEmailKey   struct{}
	clientIPKey     struct{}
	userAgentKey    struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// -----------------------------------------------------------------------------
// Citizen identity
// -----------------------------------------------------------------------------

// AccountID returns the authenticated citizen, or the nil id.
func AccountID(ctx context.Context) id.AccountID {
	if v, ok := ctx.Value(accountIDKey{}).(id.AccountID); ok {
		return v
	}
	return id.AccountID{}
}

func AccountEmail(ctx context.Context) string {
	v, _ := ctx.Value(accountEmailKey{}).(string)
	return v
}

func WithAccount(ctx context.Context, accountID id.AccountID, email string) context.Context {
	ctx = context.WithValue(ctx, accountIDKey{}, accountID)
	return context.WithValue(ctx, accountEmailKey{}, email)
}

// -----------------------------------------------------------------------------
// Admin session
// -----------------------------------------------------------------------------

func AdminSessionID(ctx context.Context) id.AdminSessionID {
	if v, ok := ctx.Value(adminSessionKey{}).(id.AdminSessionID); ok {
		return v
	}
	return id.AdminSessionID{}
}

func AdminEmail(ctx context.Context) string {
	v, _ := ctx.Value(adminEmailKey{}).(string)
	return v
}

func WithAdminSession(ctx context.Context, sessionID id.AdminSessionID, email string) context.Context {
	ctx = context.WithValue(ctx, adminSessionKey{}, sessionID)
	return context.WithValue(ctx, adminEmailKey{}, email)
}

// -----------------------------------------------------------------------------
// Client metadata
// -----------------------------------------------------------------------------

func ClientIP(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey{}).(string)
	return v
}

func UserAgent(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now returns the request-scoped time, falling back to time.Now() outside
// HTTP requests (workers, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the time every operation in ctx observes as "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
