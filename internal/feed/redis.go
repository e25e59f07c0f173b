package feed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// RedisSource streams change envelopes published on a Redis channel.
type RedisSource struct {
	rdb     *redis.Client
	channel string
	resolve Resolver
	log     zerolog.Logger
}

// NewRedisSource creates a source subscribed to channel.
func NewRedisSource(rdb *redis.Client, channel string, resolve Resolver, log zerolog.Logger) *RedisSource {
	return &RedisSource{
		rdb:     rdb,
		channel: channel,
		resolve: resolve,
		log:     log.With().Str("component", "redis_feed").Str("channel", channel).Logger(),
	}
}

// Subscribe opens the Redis subscription. go-redis reconnects on its own, so
// the producer only ends when the subscription is released.
func (s *RedisSource) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	return NewSubscription(ctx, eventBuffer, func(ctx context.Context, emit Emit) {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, id, err := Decode([]byte(msg.Payload))
				if err != nil {
					s.log.Warn().Err(err).Msg("Dropping change message")
					continue
				}
				ev, found, err := complete(ctx, ev, id, s.resolve)
				if err != nil {
					s.log.Warn().Err(err).Int("course_id", id).Msg("Failed to load changed course")
					continue
				}
				if !found {
					continue
				}
				if !emit(ev) {
					return
				}
			}
		}
	}), nil
}

// RedisPublisher publishes change envelopes for RedisSource subscribers.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher for channel.
func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Publish sends ev to every subscriber of the channel.
func (p *RedisPublisher) Publish(ctx context.Context, ev model.ChangeEvent) error {
	payload, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

var _ Source = (*RedisSource)(nil)
