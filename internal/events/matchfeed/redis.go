package matchfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed is the production Feed: the scanner listener publishes match
// events to one Redis channel and every POS terminal process subscribes.
type RedisFeed struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewRedisFeed wraps a Redis client as a match feed on the given channel.
func NewRedisFeed(client *redis.Client, channel string, logger *slog.Logger) (*RedisFeed, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{client: client, channel: channel, logger: logger}, nil
}

// Subscribe opens a Redis subscription and pumps decoded events into fn until
// the subscription is cancelled or ctx ends.
func (f *RedisFeed) Subscribe(ctx context.Context, fn HandlerFunc) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, f.channel)

	// Force the subscription onto the wire before returning so callers never
	// miss events published right after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}

	sub := &redisSubscription{pubsub: pubsub}

	go func() {
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.logger.Warn("dropping malformed match event",
					"channel", f.channel,
					"error", err,
				)
				continue
			}
			fn(ctx, ev)
		}
	}()

	return sub, nil
}

// Publish emits a match event; used by the listener bridge process.
func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		// Closing the PubSub also closes the delivery channel, ending the
		// pump goroutine.
		_ = s.pubsub.Close()
	})
}
