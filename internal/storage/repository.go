package storage

import (
	"context"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
)

// Store groups data access by domain behind one backend connection.
type Store interface {
	Users() users.Repository
	Events() events.Repository

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Migrate brings the schema or indexes up to date. It is idempotent.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
