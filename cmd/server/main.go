/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fleet bookkeeping server. Handles
  configuration, backend selection, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Select storage backend (remote -> sqlite -> memory)
  3. Build the trip service and subscribe to store changes
  4. Configure HTTP router, start refresh scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default from FLEET_DB_PATH)
           Use ":memory:" for an in-memory database
  -local   Skip the remote store even when configured

ENVIRONMENT:
  SUPABASE_URL        Remote project root; empty disables remote
  SUPABASE_ANON_KEY   Remote API key
  FLEET_DB_PATH       Local database path (default ./data/fleet.db)
  FLEET_FORCE_LOCAL   "true" to skip the remote

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop scheduler, unsubscribe, close the backend
  4. Exit

EXAMPLES:
  # Run against the remote with local fallback
  SUPABASE_URL=https://xyz.supabase.co SUPABASE_ANON_KEY=... ./server

  # Run fully local
  ./server -local -db="./data/fleet.db"

SEE ALSO:
  - factory/store.go: Backend selection
  - api/server.go: Router configuration
  - service: Application state machine
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/fleet-engine/api"
	"github.com/warp/fleet-engine/factory"
	"github.com/warp/fleet-engine/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path (overrides FLEET_DB_PATH)")
	forceLocal := flag.Bool("local", false, "skip the remote store even when configured")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := factory.FromEnv()
	if *dbPath != "" {
		cfg.SQLitePath = *dbPath
	}
	if *forceLocal {
		cfg.ForceLocal = true
	}

	ctx := context.Background()

	// Select storage backend
	backend, err := factory.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build storage backend", "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	// Build the trip service
	svc, err := service.New(ctx, backend.Store, backend.KV, logger)
	if err != nil {
		logger.Error("failed to load working set", "error", err)
		os.Exit(1)
	}
	svc.WatchStore(backend.Notifier)
	defer svc.Close()

	// Background refresh
	scheduler := service.NewRefreshScheduler(svc, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface
	handler := api.NewHandler(svc, string(backend.Mode), backend.Degraded())
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", fmt.Sprintf("http://localhost:%d", *port),
			"storage", backend.Mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
