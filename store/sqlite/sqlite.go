/*
Package sqlite provides the durable local Store implementation.

PURPOSE:
  SQLite-backed persistence for trips, route presets, and operator state.
  Runs standalone for a single-machine deployment, and doubles as the
  local fallback when the remote store is unreachable: same contract,
  same normalization on the way out, ids assigned locally.

KEY TABLES:
  trips:         Canonical trip records (one row per trip)
  route_presets: Default price/wage per route name
  operator_kv:   Key-value port (CN deductions, last driver name)

SCHEMA NOTES:
  Monetary columns are stored as TEXT holding decimal strings - the same
  precision-preserving choice the rest of the engine makes. The local
  schema is fully known, so writes here never negotiate payload shapes;
  the canonical record is stored as-is.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/fleet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - fleet/store.go: Contract definitions
  - fleet/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/fleet-engine/fleet"
)

// Store implements fleet.Store, fleet.KV, and fleet.Notifier using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int

	idMu   sync.Mutex
	lastID int64
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, subs: make(map[int]func())}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		route TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '0',
		fuel TEXT NOT NULL DEFAULT '0',
		wage TEXT NOT NULL DEFAULT '0',
		maintenance TEXT NOT NULL DEFAULT '0',
		basket TEXT NOT NULL DEFAULT '0',
		basket_count INTEGER NOT NULL DEFAULT 0,
		basket_share TEXT NOT NULL DEFAULT '0',
		staff_advance TEXT NOT NULL DEFAULT '0',
		profit TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trips_date ON trips(date);
	CREATE INDEX IF NOT EXISTS idx_trips_driver ON trips(driver_name);

	CREATE TABLE IF NOT EXISTS route_presets (
		route TEXT PRIMARY KEY,
		price TEXT NOT NULL DEFAULT '0',
		wage TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS operator_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRIPS
// =============================================================================

// FetchAll returns every stored trip in canonical raw form, newest date
// first. Callers normalize; the engine treats read order as unspecified.
func (s *Store) FetchAll(ctx context.Context) ([]fleet.RawTrip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, driver_name, route, price, fuel, wage,
		       maintenance, basket, basket_count, basket_share,
		       staff_advance
		FROM trips ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("fetch trips: %w", err)
	}
	defer rows.Close()

	var result []fleet.RawTrip
	for rows.Next() {
		var id, date, driver, route string
		var price, fuel, wage, maintenance string
		var basket, basketShare, staffAdvance string
		var basketCount int
		if err := rows.Scan(&id, &date, &driver, &route, &price, &fuel,
			&wage, &maintenance, &basket, &basketCount, &basketShare,
			&staffAdvance); err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		result = append(result, fleet.RawTrip{
			"id":          id,
			"date":        date,
			"driverName":  driver,
			"route":       route,
			"price":       price,
			"fuel":        fuel,
			"wage":        wage,
			"maintenance": maintenance,
			"basket":      basket,
			"basketCount": basketCount,
			"basketShare": basketShare,
			"staffShare":  staffAdvance,
		})
	}
	return result, rows.Err()
}

// Insert stores a canonical record, assigning a timestamp-based id when
// the record carries none.
func (s *Store) Insert(ctx context.Context, record fleet.RawTrip) (fleet.RawTrip, error) {
	t := fleet.Normalize(record)
	if t.ID == "" {
		t.ID = s.nextID()
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (id, date, driver_name, route, price, fuel, wage,
			maintenance, basket, basket_count, basket_share, staff_advance,
			profit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.String(), t.DriverName, t.Route,
		t.Price.String(), t.Fuel.String(), t.Wage.String(),
		t.Maintenance.String(), t.Basket.String(), t.BasketCount,
		t.BasketShare.String(), t.StaffShare.String(), t.Profit.String(),
		time.Now().UTC().Format(time.RFC3339))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}

	s.notify()
	return t.RawRecord(), nil
}

// Update replaces the full record for an id.
func (s *Store) Update(ctx context.Context, id fleet.TripID, record fleet.RawTrip) error {
	t := fleet.Normalize(record)

	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `
		UPDATE trips SET date = ?, driver_name = ?, route = ?, price = ?,
			fuel = ?, wage = ?, maintenance = ?, basket = ?,
			basket_count = ?, basket_share = ?, staff_advance = ?,
			profit = ?
		WHERE id = ?`,
		t.Date.String(), t.DriverName, t.Route, t.Price.String(),
		t.Fuel.String(), t.Wage.String(), t.Maintenance.String(),
		t.Basket.String(), t.BasketCount, t.BasketShare.String(),
		t.StaffShare.String(), t.Profit.String(), id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fleet.ErrTripNotFound
	}

	s.notify()
	return nil
}

// Delete removes a trip by id.
func (s *Store) Delete(ctx context.Context, id fleet.TripID) error {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fleet.ErrTripNotFound
	}

	s.notify()
	return nil
}

// =============================================================================
// ROUTE PRESETS
// =============================================================================

// FetchPresets returns route presets keyed by route name.
func (s *Store) FetchPresets(ctx context.Context) (map[string]fleet.RoutePreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT route, price, wage FROM route_presets`)
	if err != nil {
		return nil, fmt.Errorf("fetch presets: %w", err)
	}
	defer rows.Close()

	presets := make(map[string]fleet.RoutePreset)
	for rows.Next() {
		var route, price, wage string
		if err := rows.Scan(&route, &price, &wage); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		presets[route] = fleet.RoutePreset{
			Price: fleet.ParseMoney(price),
			Wage:  fleet.ParseMoney(wage),
		}
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset by route name. Deleting a missing preset
// is not an error.
func (s *Store) DeletePreset(ctx context.Context, route string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM route_presets WHERE route = ?`, route)
	return err
}

// SavePreset installs or replaces a preset. Used by demo seeding; preset
// creation is otherwise implicit in trip data.
func (s *Store) SavePreset(ctx context.Context, route string, preset fleet.RoutePreset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_presets (route, price, wage) VALUES (?, ?, ?)
		ON CONFLICT(route) DO UPDATE SET price = excluded.price, wage = excluded.wage`,
		route, preset.Price.String(), preset.Wage.String())
	return err
}

// =============================================================================
// OPERATOR KV
// =============================================================================

// Get returns the stored value for a key, empty string when missing.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM operator_kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Set writes a key-value pair.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO operator_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// Subscribe registers a change callback fired after every local write.
func (s *Store) Subscribe(fn func()) (stop func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// nextID generates a millisecond-timestamp id, bumped past the last one
// handed out when the clock has not advanced. Matches the degraded-mode
// id strategy so records stay comparable across backends.
func (s *Store) nextID() fleet.TripID {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}
