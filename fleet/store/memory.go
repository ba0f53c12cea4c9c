// Package store provides the in-memory Store implementation.
package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/warp/fleet-engine/fleet"
)

// =============================================================================
// MEMORY STORE - Degraded mode and tests
// =============================================================================

// Memory is the in-memory trip store. It backs degraded mode: when the
// remote adapter is unreachable the engine operates against this
// collection with equivalent normalization and timestamp-based id
// generation, and writes surface as immediately successful.
type Memory struct {
	mu      sync.RWMutex
	trips   map[fleet.TripID]fleet.RawTrip
	presets map[string]fleet.RoutePreset
	lastID  int64

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

func NewMemory() *Memory {
	return &Memory{
		trips:   make(map[fleet.TripID]fleet.RawTrip),
		presets: make(map[string]fleet.RoutePreset),
		subs:    make(map[int]func()),
	}
}

// FetchAll returns copies of every stored record, order unspecified.
func (m *Memory) FetchAll(_ context.Context) ([]fleet.RawTrip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]fleet.RawTrip, 0, len(m.trips))
	for _, raw := range m.trips {
		result = append(result, copyRaw(raw))
	}
	return result, nil
}

func (m *Memory) FetchPresets(_ context.Context) (map[string]fleet.RoutePreset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]fleet.RoutePreset, len(m.presets))
	for route, preset := range m.presets {
		result[route] = preset
	}
	return result, nil
}

// Insert accepts any payload shape. Missing ids get a timestamp-based
// value, kept strictly monotonic so rapid local inserts stay unique.
func (m *Memory) Insert(_ context.Context, payload fleet.RawTrip) (fleet.RawTrip, error) {
	m.mu.Lock()
	stored := copyRaw(payload)
	id, _ := stored["id"].(string)
	if id == "" {
		id = m.nextIDLocked()
		stored["id"] = id
	}
	m.trips[id] = stored
	m.mu.Unlock()

	m.notify()
	return copyRaw(stored), nil
}

func (m *Memory) Update(_ context.Context, id fleet.TripID, payload fleet.RawTrip) error {
	m.mu.Lock()
	if _, ok := m.trips[id]; !ok {
		m.mu.Unlock()
		return fleet.ErrTripNotFound
	}
	stored := copyRaw(payload)
	stored["id"] = id
	m.trips[id] = stored
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Memory) Delete(_ context.Context, id fleet.TripID) error {
	m.mu.Lock()
	if _, ok := m.trips[id]; !ok {
		m.mu.Unlock()
		return fleet.ErrTripNotFound
	}
	delete(m.trips, id)
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Memory) DeletePreset(_ context.Context, route string) error {
	m.mu.Lock()
	delete(m.presets, route)
	m.mu.Unlock()
	return nil
}

// SeedPreset installs a route preset. Preset creation is not part of the
// adapter contract (it happens through trip data elsewhere); this exists
// for demo seeding and tests.
func (m *Memory) SeedPreset(route string, preset fleet.RoutePreset) {
	m.mu.Lock()
	m.presets[route] = preset
	m.mu.Unlock()
}

// Subscribe registers a change callback, fired after every local write.
func (m *Memory) Subscribe(fn func()) (stop func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Memory) notify() {
	m.subMu.Lock()
	fns := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// nextIDLocked generates a millisecond-timestamp id, bumped past the last
// one handed out when the clock has not advanced.
func (m *Memory) nextIDLocked() fleet.TripID {
	id := time.Now().UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return strconv.FormatInt(id, 10)
}

func copyRaw(raw fleet.RawTrip) fleet.RawTrip {
	out := make(fleet.RawTrip, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// =============================================================================
// MEMORY KV
// =============================================================================

// MemoryKV is the in-memory KV port used in degraded mode and tests.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (kv *MemoryKV) Get(_ context.Context, key string) (string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return kv.values[key], nil
}

func (kv *MemoryKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.values[key] = value
	return nil
}
