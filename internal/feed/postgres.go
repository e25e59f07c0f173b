package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	eventBuffer      = 64
	reconnectDelay   = 2 * time.Second
	maxReconnectWait = 30 * time.Second
)

// PostgresSource streams NOTIFY payloads sent by the courses trigger.
type PostgresSource struct {
	pool    *pgxpool.Pool
	channel string
	resolve Resolver
	log     zerolog.Logger
}

// NewPostgresSource creates a source listening on channel.
func NewPostgresSource(pool *pgxpool.Pool, channel string, resolve Resolver, log zerolog.Logger) *PostgresSource {
	return &PostgresSource{
		pool:    pool,
		channel: channel,
		resolve: resolve,
		log:     log.With().Str("component", "pg_feed").Str("channel", channel).Logger(),
	}
}

// Subscribe holds one pooled connection in LISTEN mode until the
// subscription is released. A connection that cannot be established or is
// dropped is retried with backoff; notifications sent while disconnected
// are lost.
func (s *PostgresSource) Subscribe(ctx context.Context) (*Subscription, error) {
	conn, err := s.listen(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.log.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("Change feed not available yet")
	}

	return NewSubscription(ctx, eventBuffer, func(ctx context.Context, emit Emit) {
		delay := reconnectDelay
		for {
			if conn != nil {
				err := s.pump(ctx, conn, emit)
				s.release(conn, err)
				conn = nil
				if ctx.Err() != nil {
					return
				}
				s.log.Warn().Err(err).Dur("retry_in", delay).Msg("Change feed connection lost")
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			var err error
			conn, err = s.listen(ctx)
			if err != nil {
				delay = min(delay*2, maxReconnectWait)
				s.log.Warn().Err(err).Dur("retry_in", delay).Msg("Change feed reconnect failed")
				continue
			}
			s.log.Info().Msg("Change feed connected")
			delay = reconnectDelay
		}
	}), nil
}

func (s *PostgresSource) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", s.channel, err)
	}
	return conn, nil
}

// pump forwards notifications until the connection fails or ctx is done.
func (s *PostgresSource) pump(ctx context.Context, conn *pgxpool.Conn, emit Emit) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, id, err := Decode([]byte(n.Payload))
		if err != nil {
			s.log.Warn().Err(err).Str("payload", n.Payload).Msg("Dropping change notification")
			continue
		}

		ev, ok, err := complete(ctx, ev, id, s.resolve)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Int("course_id", id).Msg("Failed to load changed course")
			continue
		}
		if !ok {
			s.log.Debug().Int("course_id", id).Str("type", string(ev.Type)).Msg("Changed course no longer exists")
			continue
		}

		if !emit(ev) {
			return ctx.Err()
		}
	}
}

// release returns conn to the pool. A healthy connection is taken out of
// LISTEN mode first; a broken one is closed so the pool discards it.
func (s *PostgresSource) release(conn *pgxpool.Conn, cause error) {
	if cause == nil || errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		unlistenCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(unlistenCtx, "UNLISTEN *"); err == nil {
			conn.Release()
			return
		}
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = conn.Conn().Close(closeCtx)
	conn.Release()
}

var _ Source = (*PostgresSource)(nil)
