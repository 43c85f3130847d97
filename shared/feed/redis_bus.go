// shared/feed/redis_bus.go
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Ftotnem/multa-tracker/shared/metrics"
	sharedredis "github.com/Ftotnem/multa-tracker/shared/redis"
)

// RedisBus publishes events on a Redis channel. Each process holds one
// subscription and fans incoming events out to its local handlers, so an
// instance also sees its own writes through the same path.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
	metrics *metrics.Metrics
	f       *fanout

	pubsub *redis.PubSub
	done   chan struct{}
	stop   sync.Once
}

// NewRedisBus subscribes to the change channel and starts the receive loop.
func NewRedisBus(ctx context.Context, client redis.UniversalClient, logger *zap.Logger, m *metrics.Metrics) (*RedisBus, error) {
	b := &RedisBus{
		client:  client,
		channel: sharedredis.ChangeFeedChannel,
		logger:  logger.Named("feed"),
		metrics: m,
		f:       newFanout(),
		done:    make(chan struct{}),
	}
	b.pubsub = client.Subscribe(ctx, b.channel)
	// Wait for the subscription confirmation so no event published after this returns is missed.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	go b.run()
	b.logger.Info("change feed subscribed", zap.String("channel", b.channel))
	return b, nil
}

func (b *RedisBus) run() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.logger.Warn("dropping malformed change event", zap.Error(err))
			b.count("dropped")
			continue
		}
		b.count("received")
		b.f.deliver(ev)
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event for %s/%s: %w", ev.Collection, ev.DocumentID, err)
	}
	b.count("published")
	return nil
}

func (b *RedisBus) Listen(h Handler) Unsubscribe {
	return b.f.add(h)
}

// Close ends the subscription and waits for the receive loop to exit.
func (b *RedisBus) Close() error {
	var err error
	b.stop.Do(func() {
		err = b.pubsub.Close()
		<-b.done
	})
	return err
}

func (b *RedisBus) count(direction string) {
	if b.metrics != nil {
		b.metrics.FeedEvents.WithLabelValues(direction).Inc()
	}
}
