package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"
)

const redisKeyPrefix = "session:"

// RedisStore keeps each session as a hash under session:<id>, expiring
// with the session TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Load(ctx context.Context, id string) (mo.Option[Session], error) {
	fields, err := r.client.HGetAll(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return mo.None[Session](), fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return mo.None[Session](), nil
	}

	s, err := FromFields(fields)
	if err != nil {
		return mo.None[Session](), fmt.Errorf("decode session: %w", err)
	}
	return mo.Some(s), nil
}

func (r *RedisStore) Save(ctx context.Context, id string, s Session, ttl time.Duration) error {
	key := redisKeyPrefix + id

	// Replace the whole hash so no field from an earlier login survives.
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		values := make(map[string]interface{}, 4)
		for k, v := range s.Fields() {
			values[k] = v
		}
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
