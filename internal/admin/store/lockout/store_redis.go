package lockout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"civicchain/internal/admin/models"
)

const lockoutKeyPrefix = "admin:lockout:"

// RedisStore keeps failure counters in a hash whose TTL equals the lockout
// duration, so a lapsed lock and its counter disappear together.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func lockoutKey(email string) string {
	return lockoutKeyPrefix + strings.ToLower(email)
}

func (s *RedisStore) RecordFailure(ctx context.Context, email string, now time.Time, maxFailures int, lockFor time.Duration) (*models.Lockout, error) {
	key := lockoutKey(email)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, key, "failures", 1)
		pipe.Expire(ctx, key, lockFor)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record admin login failure: %w", err)
	}

	failures := int(incr.Val())
	rec := &models.Lockout{Email: strings.ToLower(email), Failures: failures}
	if failures >= maxFailures {
		until := now.Add(lockFor)
		// HSETNX keeps the first lock time when failures continue during a lock.
		if err := s.client.HSetNX(ctx, key, "locked_until", until.UnixMilli()).Err(); err != nil {
			return nil, fmt.Errorf("lock admin email: %w", err)
		}
		return s.Get(ctx, email)
	}
	return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, email string) (*models.Lockout, error) {
	fields, err := s.client.HGetAll(ctx, lockoutKey(email)).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(fields) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin lockout: %w", err)
	}

	rec := &models.Lockout{Email: strings.ToLower(email)}
	if rec.Failures, err = strconv.Atoi(fields["failures"]); err != nil {
		return nil, fmt.Errorf("parse admin lockout failures: %w", err)
	}
	if raw, ok := fields["locked_until"]; ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin lockout time: %w", err)
		}
		until := time.UnixMilli(ms).UTC()
		rec.LockedUntil = &until
	}
	return rec, nil
}

func (s *RedisStore) Clear(ctx context.Context, email string) error {
	return s.client.Del(ctx, lockoutKey(email)).Err()
}
