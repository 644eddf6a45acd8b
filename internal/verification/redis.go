package verification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verification:"

var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps codes in Redis so every replica sees the same set.
// Redis expires keys on its own.
type RedisStore struct {
	c *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		c: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (r *RedisStore) Store(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.c.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *RedisStore) ConsumeIfValid(ctx context.Context, key, value string) (bool, error) {
	n, err := consumeScript.Run(ctx, r.c, []string{keyPrefix + key}, value).Int64()
	if err != nil {
		return false, errors.Wrap(err, "redis consume")
	}
	return n == 1, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return errors.Wrap(r.c.Ping(ctx).Err(), "redis ping")
}

func (r *RedisStore) Close() error {
	return r.c.Close()
}
