/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tool room ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config (file, .env, TOOLROOM_* env)
  2. Open the store (memory, sqlite or postgres)
  3. Build the photo store (none, fs or s3), cache and metrics
  4. Wire the engine, API handler and router
  5. Start the merge scheduler (when merge.interval > 0)
  6. Serve until SIGINT/SIGTERM, then shut down gracefully

COMMAND-LINE FLAGS:
  -config  Optional YAML config file
  -port    Overrides http.addr with ":<port>"

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the merge scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store

EXAMPLES:
  # SQLite file store, photos on disk
  TOOLROOM_BLOB_DRIVER=fs ./server

  # Postgres
  TOOLROOM_STORE_DRIVER=postgres TOOLROOM_STORE_POSTGRES_DSN=postgres://... ./server

  # In-memory store on a different port
  TOOLROOM_STORE_DRIVER=memory ./server -port=3000

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - inventory/engine.go: Engine wiring
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/warp/toolroom/api"
	"github.com/warp/toolroom/blob"
	"github.com/warp/toolroom/cache"
	"github.com/warp/toolroom/config"
	"github.com/warp/toolroom/inventory"
	memstore "github.com/warp/toolroom/inventory/store"
	"github.com/warp/toolroom/logger"
	"github.com/warp/toolroom/store/postgres"
	"github.com/warp/toolroom/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides http.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.HTTP.Addr = fmt.Sprintf(":%d", *port)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// Initialize store
	store, ping, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()
	log.Info("store ready", "driver", cfg.Store.Driver)

	photos, photoRoot, err := openPhotos(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open photo store: %w", err)
	}

	reg := prometheus.NewRegistry()
	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		gatherer = reg
	}

	engine := inventory.NewEngine(store,
		inventory.WithLock(inventory.NewLockCoordinator(cfg.Lock.Timeout)),
		inventory.WithCache(cache.New(cache.Config{
			TTL:           cfg.Cache.TTL,
			MaxEntryBytes: cfg.Cache.MaxEntryBytes,
			Size:          cfg.Cache.Size,
		}, reg)),
		inventory.WithPhotos(photos),
		inventory.WithMetrics(inventory.NewMetrics(reg)),
		inventory.WithLogger(log),
	)

	handler := api.NewHandler(engine, log)
	handler.Location = cfg.Location()

	router := api.NewRouter(handler, api.RouterOptions{
		Gatherer:  gatherer,
		PhotoRoot: photoRoot,
		Ping:      ping,
	})

	scheduler := api.NewMergeScheduler(engine, cfg.Merge.Interval, log)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a mutation may wait up to lock.timeout
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("graceful shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (inventory.Store, func(context.Context) error, func(), error) {
	switch cfg.Store.Driver {
	case "memory":
		return memstore.NewMemory(), nil, func() {}, nil
	case "postgres":
		s, err := postgres.Open(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s.Ping, s.Close, nil
	default:
		path := cfg.Store.SQLitePath
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, nil, err
			}
		}
		s, err := sqlite.New(path)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s.Ping, func() { _ = s.Close() }, nil
	}
}

// openPhotos returns the photo store and, for the fs driver, the directory
// the router serves under /photos.
func openPhotos(ctx context.Context, cfg config.Config, log *slog.Logger) (inventory.PhotoStore, string, error) {
	switch cfg.Blob.Driver {
	case "fs":
		fs, err := blob.NewFS(cfg.Blob.FSRoot, cfg.Blob.BaseURL, log)
		if err != nil {
			return nil, "", err
		}
		return fs, fs.Root(), nil
	case "s3":
		s3cfg := cfg.Blob.S3
		s, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			PathStyle:       s3cfg.PathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		}, log)
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	default:
		return nil, "", nil
	}
}
