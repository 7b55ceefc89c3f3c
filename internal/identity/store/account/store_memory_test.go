package account

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civicchain/internal/identity/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

type InMemoryAccountStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryAccountStoreSuite))
}

func (s *InMemoryAccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *InMemoryAccountStoreSuite) newAccount(email string) *models.Account {
	a, err := models.NewAccount(id.NewAccountID(), email, "$2a$10$hash", models.Profile{FullName: "Asha Rao"}, s.now)
	s.Require().NoError(err)
	return a
}

func (s *InMemoryAccountStoreSuite) attrs() models.DisclosedAttributes {
	return models.DisclosedAttributes{AgeOver18: true, State: "KA", Pincode: "560001", SignalHash: "0xabc", ProofTimestamp: s.now}
}

func (s *InMemoryAccountStoreSuite) TestCreateIfEmailAvailable() {
	s.Run("stores and finds by id and email", func() {
		a := s.newAccount("asha@example.com")
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))

		byID, err := s.store.FindByID(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(a.Email, byID.Email)

		byEmail, err := s.store.FindByEmail(s.ctx, "ASHA@example.com")
		s.Require().NoError(err)
		s.Equal(a.ID, byEmail.ID)
	})

	s.Run("rejects duplicate email regardless of case", func() {
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("dup@example.com")))
		err := s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("Dup@Example.com"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("only one concurrent registration wins", func() {
		var wg sync.WaitGroup
		var successes atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("race@example.com")); err == nil {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()
		s.Equal(int32(1), successes.Load())
	})
}

func (s *InMemoryAccountStoreSuite) TestFindNotFound() {
	_, err := s.store.FindByID(s.ctx, id.NewAccountID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryAccountStoreSuite) TestReturnedAccountsAreCopies() {
	a := s.newAccount("copy@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	found.Status = models.AccountStatusSuspended

	again, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.AccountStatusActive, again.Status)
}

func (s *InMemoryAccountStoreSuite) TestRecordLogin() {
	a := s.newAccount("login@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))

	at := s.now.Add(time.Hour)
	s.Require().NoError(s.store.RecordLogin(s.ctx, a.ID, at))

	found, err := s.store.FindByID(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.LastLogin)
	s.True(found.LastLogin.Equal(at))

	s.ErrorIs(s.store.RecordLogin(s.ctx, id.NewAccountID(), at), sentinel.ErrNotFound)
}

func (s *InMemoryAccountStoreSuite) TestBindIdentity() {
	s.Run("binds once and is idempotent for the same fingerprint", func() {
		a := s.newAccount("bind@example.com")
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))

		bound, outcome, err := s.store.BindIdentity(s.ctx, a.ID, "fp-1", s.attrs(), s.now)
		s.Require().NoError(err)
		s.Require().NotNil(bound.Binding)
		s.Equal("fp-1", bound.Binding.Fingerprint)
		s.Equal(models.BindApplied, outcome)

		again, againOutcome, err := s.store.BindIdentity(s.ctx, a.ID, "fp-1", s.attrs(), s.now.Add(time.Minute))
		s.Require().NoError(err)
		s.True(again.Binding.BoundAt.Equal(s.now))
		s.Equal(models.BindUnchanged, againOutcome)
	})

	s.Run("rejects a fingerprint held by another account", func() {
		first := s.newAccount("first@example.com")
		second := s.newAccount("second@example.com")
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, first))
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, second))

		_, _, err := s.store.BindIdentity(s.ctx, first.ID, "fp-shared", s.attrs(), s.now)
		s.Require().NoError(err)

		_, _, err = s.store.BindIdentity(s.ctx, second.ID, "fp-shared", s.attrs(), s.now)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)

		found, err := s.store.FindByID(s.ctx, second.ID)
		s.Require().NoError(err)
		s.Nil(found.Binding)
	})

	s.Run("never replaces an existing binding", func() {
		a := s.newAccount("rebind@example.com")
		s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))
		_, _, err := s.store.BindIdentity(s.ctx, a.ID, "fp-a", s.attrs(), s.now)
		s.Require().NoError(err)

		_, _, err = s.store.BindIdentity(s.ctx, a.ID, "fp-b", s.attrs(), s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown account", func() {
		_, _, err := s.store.BindIdentity(s.ctx, id.NewAccountID(), "fp-x", s.attrs(), s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("only one of many accounts binds a contested fingerprint", func() {
		ids := make([]id.AccountID, 50)
		for i := range ids {
			a := s.newAccount(fmt.Sprintf("contender-%d@example.com", i))
			s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))
			ids[i] = a.ID
		}

		var wg sync.WaitGroup
		var successes atomic.Int32
		for _, accountID := range ids {
			wg.Add(1)
			go func(accountID id.AccountID) {
				defer wg.Done()
				if _, _, err := s.store.BindIdentity(s.ctx, accountID, "fp-contested", s.attrs(), s.now); err == nil {
					successes.Add(1)
				}
			}(accountID)
		}
		wg.Wait()
		s.Equal(int32(1), successes.Load())
	})
}

func (s *InMemoryAccountStoreSuite) TestCount() {
	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("one@example.com")))
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("two@example.com")))

	n, err = s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}
