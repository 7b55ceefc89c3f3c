//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"civicchain/internal/admin/models"
	"civicchain/internal/admin/store/session"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
	"civicchain/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *session.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = session.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newSession(ttl time.Duration) *models.Session {
	sess, err := models.NewSession(id.NewAdminSessionID(), "ops@example.gov", "Ops", false, ttl, time.Now())
	s.Require().NoError(err)
	return sess
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	sess := s.newSession(30 * time.Minute)
	s.Require().NoError(s.store.Save(ctx, sess))

	found, err := s.store.FindByID(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.Email, found.Email)
	s.WithinDuration(sess.ExpiresAt, found.ExpiresAt, time.Millisecond)

	ttl, err := s.redis.Client.TTL(ctx, "admin:session:"+sess.ID.String()).Result()
	s.Require().NoError(err)
	s.InDelta((30 * time.Minute).Seconds(), ttl.Seconds(), 5)
}

func (s *RedisStoreSuite) TestUpdateExpiryRefreshesTTL() {
	ctx := context.Background()
	sess := s.newSession(time.Minute)
	s.Require().NoError(s.store.Save(ctx, sess))

	s.Require().NoError(s.store.UpdateExpiry(ctx, sess.ID, time.Now().Add(30*time.Minute)))
	ttl, err := s.redis.Client.TTL(ctx, "admin:session:"+sess.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 25*time.Minute)

	s.ErrorIs(s.store.UpdateExpiry(ctx, id.NewAdminSessionID(), time.Now()), sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	sess := s.newSession(30 * time.Minute)
	s.Require().NoError(s.store.Save(ctx, sess))
	s.Require().NoError(s.store.Delete(ctx, sess.ID))

	_, err := s.store.FindByID(ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, sess.ID), sentinel.ErrNotFound)
}
