//go:build integration

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
	"civicchain/pkg/testutil/containers"
)

type PostgresAccountStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *Postgres
	ctx      context.Context
	now      time.Time
}

func TestPostgresAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresAccountStoreSuite))
}

func (s *PostgresAccountStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresAccountStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "accounts"))
}

func (s *PostgresAccountStoreSuite) newAccount(email string) *models.Account {
	profile := models.Profile{
		FullName:    "Asha Rao",
		DateOfBirth: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Phone:       "+919876543210",
		Address:     models.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"},
	}
	a, err := models.NewAccount(id.NewAccountID(), email, "$2a$10$hash", profile, s.now)
	s.Require().NoError(err)
	return a
}

func (s *PostgresAccountStoreSuite) TestCreateAndFind() {
	a := s.newAccount("asha@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))

	found, err := s.store.FindByEmail(s.ctx, "ASHA@example.com")
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.Equal("560001", found.Profile.Address.Pincode)
	s.Equal(models.AccountStatusActive, found.Status)
	s.Nil(found.Binding)

	err = s.store.CreateIfEmailAvailable(s.ctx, s.newAccount("Asha@Example.com"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(s.ctx, id.NewAccountID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresAccountStoreSuite) TestRecordLogin() {
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

func (s *PostgresAccountStoreSuite) TestBindIdentity() {
	attrs := models.DisclosedAttributes{AgeOver18: true, State: "KA", Pincode: "560001", SignalHash: "0xabc", ProofTimestamp: s.now}
	first := s.newAccount("first@example.com")
	second := s.newAccount("second@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, first))
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, second))

	bound, outcome, err := s.store.BindIdentity(s.ctx, first.ID, "fp-1", attrs, s.now)
	s.Require().NoError(err)
	s.Require().NotNil(bound.Binding)
	s.Equal("0xabc", bound.Binding.Attributes.SignalHash)
	s.Equal(models.BindApplied, outcome)

	_, outcome, err = s.store.BindIdentity(s.ctx, first.ID, "fp-1", attrs, s.now)
	s.NoError(err, "rebinding the same fingerprint is idempotent")
	s.Equal(models.BindUnchanged, outcome)

	_, _, err = s.store.BindIdentity(s.ctx, second.ID, "fp-1", attrs, s.now)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, _, err = s.store.BindIdentity(s.ctx, first.ID, "fp-2", attrs, s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, _, err = s.store.BindIdentity(s.ctx, id.NewAccountID(), "fp-3", attrs, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresAccountStoreSuite) TestBindOutcomeIgnoresTimestampPrecision() {
	a := s.newAccount("precise@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(s.ctx, a))
	now := s.now.Add(456 * time.Nanosecond)

	bound, outcome, err := s.store.BindIdentity(s.ctx, a.ID, "fp-precise", models.DisclosedAttributes{SignalHash: "0x1"}, now)
	s.Require().NoError(err)
	s.Equal(models.BindApplied, outcome)
	s.False(bound.Binding.BoundAt.Equal(now), "TIMESTAMPTZ drops the nanoseconds")
}

func (s *PostgresAccountStoreSuite) TestConcurrentBindSingleWinner() {
	attrs := models.DisclosedAttributes{SignalHash: "0xabc", ProofTimestamp: s.now}
	ids := make([]id.AccountID, 20)
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
			if _, _, err := s.store.BindIdentity(s.ctx, accountID, "fp-contested", attrs, s.now); err == nil {
				successes.Add(1)
			}
		}(accountID)
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())

	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(len(ids), n)
}
