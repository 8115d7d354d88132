package store

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "notifications:"

// RedisBus is a ChangeBus backed by Redis pub/sub, so that several
// processes sharing one database see each other's writes.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus connects to the Redis server at url (redis://...) and checks
// that it answers.
func NewRedisBus(ctx context.Context, url string) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisBus{client: client}, nil
}

// Publish announces a change for recipientID.
func (b *RedisBus) Publish(ctx context.Context, recipientID string) error {
	if err := b.client.Publish(ctx, redisChannelPrefix+recipientID, "changed").Err(); err != nil {
		return fmt.Errorf("publishing change for %s: %w", recipientID, err)
	}
	return nil
}

// Subscribe listens for changes to recipientID until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, recipientID string) <-chan struct{} {
	out := make(chan struct{}, 1)
	sub := b.client.Subscribe(ctx, redisChannelPrefix+recipientID)

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					log.Printf("[WARN] redis subscription for %s closed", recipientID)
					return
				}
				signal(out)
			}
		}
	}()

	return out
}

// Close closes the Redis client.
func (b *RedisBus) Close() error {
	return b.client.Close()
}
