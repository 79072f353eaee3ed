package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/klokku/booking/internal/config"
	log "github.com/sirupsen/logrus"
)

const retryInterval = 25 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis serializes writers across processes sharing one Redis instance.
// A lease expires after ttl even if its holder never releases it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, r.ttl)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("could not acquire lease %s: %w", key, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the request context may already be done; the key has to go regardless
		ctx, cancel := context.WithTimeout(context.Background(), r.ttl)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			log.Errorf("could not release lease %s: %v", key, err)
		}
	}
}
