package lockout

import (
	"context"
	"strings"
	"sync"
	"time"

	"civicchain/internal/admin/models"
)

// InMemory counts failed operator logins per email.
type InMemory struct {
	mu      sync.Mutex
	records map[string]*models.Lockout
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*models.Lockout)}
}

// RecordFailure increments the failure count and locks the email once
// maxFailures is reached. A lock that has lapsed starts a fresh count.
func (s *InMemory) RecordFailure(_ context.Context, email string, now time.Time, maxFailures int, lockFor time.Duration) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	rec, ok := s.records[key]
	if !ok || (rec.LockedUntil != nil && !rec.IsLockedAt(now)) {
		rec = &models.Lockout{Email: key}
		s.records[key] = rec
	}
	rec.Failures++
	if rec.Failures >= maxFailures && rec.LockedUntil == nil {
		until := now.Add(lockFor)
		rec.LockedUntil = &until
	}
	c := *rec
	return &c, nil
}

// Get returns nil when the email has no failures on record.
func (s *InMemory) Get(_ context.Context, email string) (*models.Lockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[strings.ToLower(email)]; ok {
		c := *rec
		return &c, nil
	}
	return nil, nil
}

func (s *InMemory) Clear(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, strings.ToLower(email))
	return nil
}
