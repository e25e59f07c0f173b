package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/config"
)

// NewPostgresPool creates the course database pool. DatabaseAccessKey is
// used as the connection password. The pool connects lazily; an unreachable
// server is logged here and surfaces later as a failed course load.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.ConnConfig.Password = cfg.DatabaseAccessKey
	// One connection is held by the change feed listener.
	poolCfg.MaxConns = cfg.MaxDBConns + 1

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		log.Warn().Err(err).
			Str("host", poolCfg.ConnConfig.Host).
			Msg("PostgreSQL not reachable yet")
		return pool, nil
	}

	log.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("PostgreSQL connected")

	return pool, nil
}
