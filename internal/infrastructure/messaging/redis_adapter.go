package messaging

import (
	"context"
	"sync"

	rediscache "github.com/learnflow/learnflow-backend/internal/infrastructure/persistence/redis"
)

// cacheRedisClient adapts the persistence layer's Redis cache to the
// RedisClient interface used by RedisEventBus.
type cacheRedisClient struct {
	cache *rediscache.Cache

	mu   sync.Mutex
	subs []func()
}

// NewCacheRedisClient wraps a Redis cache as an event bus client.
// Closing the client stops its subscriptions but leaves the cache open,
// since the cache is shared with other components.
func NewCacheRedisClient(cache *rediscache.Cache) RedisClient {
	return &cacheRedisClient{cache: cache}
}

func (c *cacheRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.cache.Publish(ctx, channel, message)
}

func (c *cacheRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	pubsub := c.cache.Subscribe(ctx, channels...)

	// Force the subscription to be established before returning
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan RedisMessage)
	done := make(chan struct{})

	c.mu.Lock()
	c.subs = append(c.subs, func() {
		close(done)
		_ = pubsub.Close()
	})
	c.mu.Unlock()

	go func() {
		defer close(out)
		src := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *cacheRedisClient) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, stop := range subs {
		stop()
	}
	return nil
}
