// Package postgres stores users and events in PostgreSQL. Event members are
// a text[] column so membership changes stay single-row conditional
// updates.
package postgres

import (
	"context"
	"fmt"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Store struct {
	pool        *pgxpool.Pool
	databaseURL string
	users       *UserRepository
	events      *EventRepository
	logger      zerolog.Logger
}

// Open creates a connection pool and verifies it with a ping.
func Open(ctx context.Context, databaseURL string, maxConns int, logger zerolog.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool, databaseURL, logger), nil
}

func New(pool *pgxpool.Pool, databaseURL string, logger zerolog.Logger) *Store {
	return &Store{
		pool:        pool,
		databaseURL: databaseURL,
		users:       &UserRepository{pool: pool},
		events:      &EventRepository{pool: pool},
		logger:      logger.With().Str("component", "postgres").Logger(),
	}
}

func (s *Store) Users() users.Repository   { return s.users }
func (s *Store) Events() events.Repository { return s.events }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Stat snapshots the connection pool for the metrics collector.
func (s *Store) Stat() *pgxpool.Stat {
	return s.pool.Stat()
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := MigrateUp(s.databaseURL); err != nil {
		return err
	}
	version, dirty, err := MigrationVersion(s.databaseURL)
	if err != nil {
		return err
	}
	s.logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}
