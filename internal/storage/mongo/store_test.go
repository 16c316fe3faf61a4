package mongo

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/ids"
	"github.com/Togather-Foundation/serendipity/internal/storage"
	"github.com/Togather-Foundation/serendipity/internal/storage/storagetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

var (
	sharedOnce    sync.Once
	sharedInitErr error
	sharedURI     string
)

const sharedContainerName = "serendipity-storage-mongo"

func initShared(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo container tests in short mode")
	}
	sharedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := mongodb.Run(ctx, "mongo:7", testcontainers.WithReuseByName(sharedContainerName))
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedURI, sharedInitErr = container.ConnectionString(ctx)
	})
	require.NoError(t, sharedInitErr)
	return sharedURI
}

// setupMongo returns a migrated store on a fresh database.
func setupMongo(t *testing.T) *Store {
	t.Helper()
	uri := initShared(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := ids.NewULID()
	require.NoError(t, err)
	database := "test_" + strings.ToLower(id)

	store, err := Open(ctx, uri, database, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.db.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return setupMongo(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := setupMongo(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, "mongodb://127.0.0.1:1/?serverSelectionTimeoutMS=500", "unused", zerolog.Nop())
	require.Error(t, err)
}
