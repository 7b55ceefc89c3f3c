package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"civicchain/internal/admin/models"
	id "civicchain/pkg/domain"
	"civicchain/pkg/platform/sentinel"
)

const sessionKeyPrefix = "admin:session:"

// RedisStore keeps sessions as JSON values whose key TTL tracks ExpiresAt,
// so Redis itself evicts expired sessions.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func sessionKey(sessionID id.AdminSessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal admin session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(session.ID), payload, s.ttl(session.ExpiresAt)).Err()
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.AdminSessionID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("unmarshal admin session: %w", err)
	}
	return &session, nil
}

// UpdateExpiry uses WATCH so a concurrent revoke is not undone.
func (s *RedisStore) UpdateExpiry(ctx context.Context, sessionID id.AdminSessionID, expiresAt time.Time) error {
	key := sessionKey(sessionID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var session models.Session
		if err := json.Unmarshal(raw, &session); err != nil {
			return fmt.Errorf("unmarshal admin session: %w", err)
		}
		session.ExpiresAt = expiresAt
		payload, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal admin session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl(expiresAt))
			return nil
		})
		return err
	}, key)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID id.AdminSessionID) error {
	n, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("admin session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteExpired is a no-op; key TTLs already evict expired sessions.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

// ttl keeps a one second floor so an already expired session is still
// written and then evicted by Redis rather than persisted forever.
func (s *RedisStore) ttl(expiresAt time.Time) time.Duration {
	return max(expiresAt.Sub(s.now()), time.Second)
}
