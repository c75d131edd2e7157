package pollcoordinator

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenKey = "paymentflow:poll:token"

// Redis staggers polling across worker processes sharing one Redis
// instance: within each window, the first worker to SET NX the shared
// token key is the one that polls; the rest back off until the key
// expires. This only affects poll spacing under load, never
// correctness — the payment_tasks row lock is still authoritative.
type Redis struct {
	client *redis.Client
	window time.Duration
}

func NewRedis(redisURL string, window time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts), window: window}, nil
}

func (r *Redis) Acquire(ctx context.Context, workerID string) bool {
	ok, err := r.client.SetNX(ctx, tokenKey, workerID, r.window).Result()
	if err != nil {
		// Redis unavailable: fail open so polling continues unstaggered
		// rather than stalling the engine.
		return true
	}
	return ok
}

func (r *Redis) Close() error {
	return r.client.Close()
}
