package models

import "time"

// Lockout tracks consecutive failed operator logins for one email.
type Lockout struct {
	Email       string     `json:"email"`
	Failures    int        `json:"failures"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

func (l *Lockout) IsLockedAt(now time.Time) bool {
	return l != nil && l.LockedUntil != nil && now.Before(*l.LockedUntil)
}
