package account

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"civicchain/internal/identity/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

// Error Contract:
// - ErrNotFound when the account does not exist
// - ErrAlreadyUsed when an email or identity fingerprint belongs to another account
// - ErrInvalidState when the account is already bound to a different fingerprint

// InMemory keeps accounts in maps guarded by one mutex, so every
// check-then-write below is atomic with respect to other callers.
type InMemory struct {
	mu            sync.RWMutex
	accounts      map[id.AccountID]*models.Account
	byEmail       map[string]id.AccountID
	byFingerprint map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts:      make(map[id.AccountID]*models.Account),
		byEmail:       make(map[string]id.AccountID),
		byFingerprint: make(map[string]id.AccountID),
	}
}

func (s *InMemory) CreateIfEmailAvailable(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("email %s: %w", key, sentinel.ErrAlreadyUsed)
	}
	s.accounts[account.ID] = clone(account)
	s.byEmail[key] = account.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[accountID]; ok {
		return clone(a), nil
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if accountID, ok := s.byEmail[strings.ToLower(email)]; ok {
		return clone(s.accounts[accountID]), nil
	}
	return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
}

func (s *InMemory) RecordLogin(_ context.Context, accountID id.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	a.LastLogin = &at
	a.UpdatedAt = at
	return nil
}

// BindIdentity attaches a fingerprint to an account unless another account
// already holds it. Rebinding the same fingerprint is a no-op.
func (s *InMemory) BindIdentity(_ context.Context, accountID id.AccountID, fingerprint string, attrs models.DisclosedAttributes, now time.Time) (*models.Account, models.BindOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, models.BindRejected, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	if holder, taken := s.byFingerprint[fingerprint]; taken && holder != accountID {
		return nil, models.BindRejected, fmt.Errorf("identity fingerprint: %w", sentinel.ErrAlreadyUsed)
	}

	outcome := a.ApplyBinding(fingerprint, attrs, now)
	switch outcome {
	case models.BindRejected:
		return nil, outcome, fmt.Errorf("account already bound: %w", sentinel.ErrInvalidState)
	case models.BindApplied:
		s.byFingerprint[fingerprint] = accountID
	}
	return clone(a), outcome, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts), nil
}

func clone(a *models.Account) *models.Account {
	c := *a
	if a.Binding != nil {
		b := *a.Binding
		c.Binding = &b
	}
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	return &c
}
