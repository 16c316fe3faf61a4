package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/config"
	"github.com/Togather-Foundation/serendipity/internal/storage"
	"github.com/Togather-Foundation/serendipity/internal/storage/memory"
	"github.com/Togather-Foundation/serendipity/internal/storage/mongo"
	"github.com/Togather-Foundation/serendipity/internal/storage/postgres"
	"github.com/rs/zerolog"
)

const storeConnectTimeout = 10 * time.Second

// openStore connects the backend selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, storeConnectTimeout)
	defer cancel()

	switch cfg.Driver {
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.New(), nil
	case config.StoreMongo:
		store, err := mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.MaxConnections, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}
