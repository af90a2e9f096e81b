package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const epochPrefix = "tok:nbf:"

// RedisTokenRepo stores one "not before" instant per user. The key lives as
// long as the longest refresh token could, after which nothing older than
// the epoch can still be valid anyway.
type RedisTokenRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTokenRepo(client *redis.Client, ttl time.Duration) *RedisTokenRepo {
	return &RedisTokenRepo{
		client: client,
		ttl:    ttl,
	}
}

// Bump stores at with second precision, the same precision token iat uses.
func (r *RedisTokenRepo) Bump(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.client.Set(ctx, epochPrefix+userID.String(), at.Unix(), safeTTL(r.ttl)).Err()
}

func (r *RedisTokenRepo) NotBefore(ctx context.Context, userID uuid.UUID) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, epochPrefix+userID.String()).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, err
	}
	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(sec, 0), true, nil
}

func safeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		// без TTL ключ остался бы навсегда
		return 30 * 24 * time.Hour
	}
	return ttl
}
