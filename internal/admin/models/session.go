package models

import (
	"time"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
)

// Session is a server-side operator session. Validity depends only on the
// stored expiry and the time of the request.
type Session struct {
	ID         id.AdminSessionID `json:"id"`
	Email      string            `json:"email"`
	Name       string            `json:"name"`
	Device     string            `json:"device,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	RememberMe bool              `json:"remember_me"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

func NewSession(sessionID id.AdminSessionID, email, name string, rememberMe bool, ttl time.Duration, now time.Time) (*Session, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "operator email is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session ttl must be positive")
	}
	return &Session{
		ID:         sessionID,
		Email:      email,
		Name:       name,
		RememberMe: rememberMe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsValidAt reports whether the session is usable at now. A session is dead
// at the exact instant of expiry.
func (s *Session) IsValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Remaining is zero once the session has expired.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.IsValidAt(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

func (s *Session) ExpiringSoon(now time.Time, window time.Duration) bool {
	return s.IsValidAt(now) && s.Remaining(now) < window
}

// ExtendFrom resets expiry to now+ttl regardless of the original lifetime,
// so extending a remember-me session can shorten it.
func (s *Session) ExtendFrom(now time.Time, ttl time.Duration) {
	s.ExpiresAt = now.Add(ttl)
}
