// Package main implements the HTTP API server for citypop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apihttp "github.com/dsjohal14/citypop/internal/http"
	"github.com/dsjohal14/citypop/internal/libs/config"
	"github.com/dsjohal14/citypop/internal/libs/obs"
	"github.com/dsjohal14/citypop/internal/scope/db"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	obs.InitLogger(cfg.LogLevel)
	logger := obs.Logger("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	metrics := obs.NewMetrics()

	store, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	instrumented := db.Instrument(store, metrics)
	// Shutdown hook
	defer func() {
		if err := instrumented.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}()

	// Startup hook: the index must exist before traffic is served
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = instrumented.EnsureIndex(startCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to ensure index %s: %w", db.IndexName, err)
	}
	logger.Info().Str("index", db.IndexName).Msg("index ready")

	handler := apihttp.NewHandler(instrumented, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort),
		Handler:           apihttp.NewRouter(handler, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the configured backend
func openStore(cfg *config.Config, logger zerolog.Logger) (db.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logger.Info().Msg("using Postgres store")
		return db.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendRedis:
		logger.Info().Str("addr", cfg.RedisAddr).Msg("using Redis store")
		return db.NewRedisStore(cfg.RedisAddr), nil
	case config.BackendMemory:
		logger.Warn().Msg("using in-memory store, records are lost on restart")
		return db.NewMemoryStore(), nil
	default:
		logger.Info().Str("url", cfg.ESURL()).Msg("using Elasticsearch store")
		return db.NewElasticStore(cfg.ESURL())
	}
}
