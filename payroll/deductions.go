/*
deductions.go - CN deduction book

PURPOSE:
  The operator enters a manual one-off deduction per driver per period
  (equipment charge, penalty). Entries persist across periods until
  cleared or overwritten, and are applied only to the currently-displayed
  period - never retroactively stored per period.

PERSISTENCE:
  The book lives behind the fleet.KV port under fleet.KeyCNDeductions as a
  JSON object of raw operator input (driver name -> entered text). Raw
  text is kept, not parsed amounts: blank or unparseable entries are legal
  and count as zero, exactly as entered. Read once at startup, written on
  every mutation.
*/
package payroll

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/fleet"
)

// Book holds the CN deduction entries for all drivers.
type Book struct {
	kv fleet.KV

	mu      sync.RWMutex
	entries map[string]string // driver name -> raw operator input
}

// LoadBook reads the persisted deduction map. A missing or corrupt stored
// value yields an empty book; deduction entry is lenient end to end.
func LoadBook(ctx context.Context, kv fleet.KV) *Book {
	book := &Book{kv: kv, entries: make(map[string]string)}

	stored, err := kv.Get(ctx, fleet.KeyCNDeductions)
	if err != nil || stored == "" {
		return book
	}
	// Corrupt JSON is treated as absent.
	_ = json.Unmarshal([]byte(stored), &book.entries)
	if book.entries == nil {
		book.entries = make(map[string]string)
	}
	return book
}

// Set records the raw deduction input for a driver and persists the book.
// An empty value clears the entry.
func (b *Book) Set(ctx context.Context, driver, raw string) error {
	b.mu.Lock()
	if raw == "" {
		delete(b.entries, driver)
	} else {
		b.entries[driver] = raw
	}
	b.mu.Unlock()
	return b.persist(ctx)
}

// Get returns the parsed deduction for a driver, zero for blank or
// unparseable entries.
func (b *Book) Get(driver string) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return fleet.ParseMoney(b.entries[driver])
}

// Deductions returns the parsed deduction map for aggregation.
func (b *Book) Deductions() fleet.Deductions {
	b.mu.RLock()
	defer b.mu.RUnlock()

	parsed := make(fleet.Deductions, len(b.entries))
	for driver, raw := range b.entries {
		parsed[driver] = fleet.ParseMoney(raw)
	}
	return parsed
}

// Raw returns a copy of the raw entries, for display in entry fields.
func (b *Book) Raw() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}

func (b *Book) persist(ctx context.Context) error {
	b.mu.RLock()
	encoded, err := json.Marshal(b.entries)
	b.mu.RUnlock()
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, fleet.KeyCNDeductions, string(encoded))
}
