package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/api"
	"github.com/Togather-Foundation/serendipity/internal/config"
	"github.com/Togather-Foundation/serendipity/internal/metrics"
	"github.com/Togather-Foundation/serendipity/internal/storage/postgres"
	"github.com/Togather-Foundation/serendipity/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout          = 10 * time.Second
	dbMetricsInterval        = 15 * time.Second
	defaultReadTimeout       = 10 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
)

var (
	// Server flags (override config/env)
	serverHost  string
	serverPort  int
	skipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Serendipity HTTP server",
	Long: `Start the Serendipity HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables, .env, or --config
- Connect to the store selected by STORE_DRIVER and apply migrations
- Serve the API under /api plus /healthz, /readyz and /metrics
- Shut down gracefully on SIGINT/SIGTERM

Examples:
  # Start with configuration from the environment
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging on the console
  server serve --log-level debug --log-format console`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 5000)")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations or create indexes at startup")
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging, cfg.Environment)
	logger.Info().Str("version", Version).Str("store", cfg.Store.Driver).Str("environment", cfg.Environment).Msg("starting serendipity server")

	metrics.Init(Version, GitCommit, BuildDate, cfg.Store.Driver)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("store connection failed: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("store close error")
		}
	}()

	if !skipMigrate {
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}
	metrics.StoreUp.Set(1)

	g, gctx := errgroup.WithContext(ctx)

	if pg, ok := store.(*postgres.Store); ok {
		collector := metrics.NewDBCollector(func() metrics.PoolStat { return pg.Stat() })
		g.Go(func() error {
			collector.Run(gctx, dbMetricsInterval)
			return nil
		})
		logger.Info().Msg("database metrics collector started")
	}

	build := api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(gctx, cfg, logger, store, build),
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return gracefulShutdown(server, logger)
	})

	return g.Wait()
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
