package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"civicchain/internal/admin/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the session does not exist (never created, revoked or swept)

// InMemory stores operator sessions in a map. Expired entries stay until
// DeleteExpired runs; reads never resurrect them because validity is
// checked against the stored expiry.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.AdminSessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.AdminSessionID]*models.Session)}
}

func (s *InMemory) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.AdminSessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		c := *session
		return &c, nil
	}
	return nil, fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
}

// UpdateExpiry rewrites the expiry of an existing session.
func (s *InMemory) UpdateExpiry(_ context.Context, sessionID id.AdminSessionID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
	}
	session.ExpiresAt = expiresAt
	return nil
}

func (s *InMemory) Delete(_ context.Context, sessionID id.AdminSessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired purges sessions whose expiry is at or before now.
func (s *InMemory) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, session := range s.sessions {
		if !session.IsValidAt(now) {
			delete(s.sessions, key)
			deleted++
		}
	}
	return deleted, nil
}
