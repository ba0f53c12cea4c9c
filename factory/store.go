/*
Package factory wires configuration to a concrete storage backend.

PURPOSE:
  Converts environment configuration into a ready-to-use backend: the
  remote PostgREST store when credentials are present and the remote
  answers, a local SQLite store otherwise, and an in-memory store as the
  degraded last resort. Selection happens once at startup; the chosen
  mode is logged and reported so the API can surface it.

FALLBACK ORDER:
  1. remote  - SUPABASE_URL + SUPABASE_ANON_KEY set and the probe passes
  2. sqlite  - durable local file (also backs the KV port in every mode)
  3. memory  - nothing persists beyond the process; used when the SQLite
               file cannot be opened, and always available to tests

  Operator state (CN deductions, last driver name) stays local in every
  mode: the remote schema never carried it.

USAGE:
  backend, err := factory.Build(ctx, factory.FromEnv(), logger)
  if err != nil {
      log.Fatal(err)
  }
  defer backend.Close()

SEE ALSO:
  - fleet/store.go: Contract definitions
  - store/postgrest: Remote implementation
  - store/sqlite: Durable local implementation
*/
package factory

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/fleet/store"
	"github.com/warp/fleet-engine/store/postgrest"
	"github.com/warp/fleet-engine/store/sqlite"
)

// Mode identifies which backend was selected.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeSQLite Mode = "sqlite"
	ModeMemory Mode = "memory"
)

// Config holds the storage-related configuration.
type Config struct {
	SupabaseURL string // remote project root; empty disables remote
	SupabaseKey string
	SQLitePath  string // local database file
	ForceLocal  bool   // skip the remote even when configured

	ProbeTimeout time.Duration
}

// FromEnv reads storage configuration from the environment.
func FromEnv() Config {
	return Config{
		SupabaseURL:  os.Getenv("SUPABASE_URL"),
		SupabaseKey:  os.Getenv("SUPABASE_ANON_KEY"),
		SQLitePath:   envOr("FLEET_DB_PATH", "./data/fleet.db"),
		ForceLocal:   os.Getenv("FLEET_FORCE_LOCAL") == "true",
		ProbeTimeout: 5 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Backend bundles the selected store with the always-local KV port.
type Backend struct {
	Mode     Mode
	Store    fleet.Store
	Notifier fleet.Notifier
	KV       fleet.KV

	closers []func() error
}

// Degraded reports whether trip data is not durably persisted.
func (b *Backend) Degraded() bool {
	return b.Mode == ModeMemory
}

// Close releases backend resources.
func (b *Backend) Close() error {
	var first error
	for _, fn := range b.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build selects and constructs the backend for the given configuration.
// Never returns an error for an unreachable remote or an unopenable
// SQLite file; it falls through the backend order instead. The returned
// error is reserved for future configurations with no fallback.
func Build(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	local, localErr := openLocal(cfg)

	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" && !cfg.ForceLocal {
		remote := postgrest.New(cfg.SupabaseURL, cfg.SupabaseKey, logger)

		probeCtx, cancel := context.WithTimeout(ctx, cfg.probeTimeout())
		err := remote.Ping(probeCtx)
		cancel()

		if err == nil {
			logger.Info("storage backend selected", "mode", ModeRemote)
			local.Mode = ModeRemote
			local.Store = remote
			local.Notifier = remote
			return local, nil
		}
		logger.Warn("remote store unreachable, falling back to local",
			"error", err)
	}

	if localErr != nil {
		logger.Warn("local database unavailable, running degraded",
			"path", cfg.SQLitePath, "error", localErr)
	}
	logger.Info("storage backend selected", "mode", local.Mode)
	return local, nil
}

// openLocal always succeeds: SQLite when the file opens, memory otherwise.
// The local store doubles as the KV port for all modes.
func openLocal(cfg Config) (*Backend, error) {
	if cfg.SQLitePath != "" {
		st, err := sqlite.New(cfg.SQLitePath)
		if err == nil {
			return &Backend{
				Mode:     ModeSQLite,
				Store:    st,
				Notifier: st,
				KV:       st,
				closers:  []func() error{st.Close},
			}, nil
		}
		mem := store.NewMemory()
		return &Backend{
			Mode:     ModeMemory,
			Store:    mem,
			Notifier: mem,
			KV:       store.NewMemoryKV(),
		}, err
	}

	mem := store.NewMemory()
	return &Backend{
		Mode:     ModeMemory,
		Store:    mem,
		Notifier: mem,
		KV:       store.NewMemoryKV(),
	}, nil
}

func (c Config) probeTimeout() time.Duration {
	if c.ProbeTimeout > 0 {
		return c.ProbeTimeout
	}
	return 5 * time.Second
}
