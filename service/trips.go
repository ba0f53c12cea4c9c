/*
Package service holds the application state machine over the fleet core.

PURPOSE:
  TripService owns the in-memory working set: the normalized trip list,
  the selected billing period, the CN deduction book, and the last-used
  driver name. Every mutation goes through the store and then refreshes
  the whole working set from it - there is no incremental update path,
  so the state can never drift from storage.

CONCURRENCY:
  A single RWMutex guards the working set. Store writes happen outside
  the lock; the refresh after a write (or after a change notification
  from the store) swaps the trip slice atomically.

SEE ALSO:
  - fleet/aggregate.go: Pure computations this service exposes
  - payroll: Slip building and the deduction book
  - api: HTTP surface over this service
*/
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/payroll"
)

// TripService coordinates the store, the deduction book, and the
// normalized working set.
type TripService struct {
	store  fleet.Store
	kv     fleet.KV
	book   *payroll.Book
	logger *slog.Logger

	mu         sync.RWMutex
	trips      []fleet.Trip
	presets    map[string]fleet.RoutePreset
	period     fleet.BillingPeriod
	month      int // 0-indexed end month of the selected window
	year       int
	lastDriver string

	stopNotify func()
}

// New builds the service and loads the initial working set. The selected
// period defaults to the window containing today.
func New(ctx context.Context, st fleet.Store, kv fleet.KV, logger *slog.Logger) (*TripService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	today := fleet.Today()
	month, year := currentWindowIndex(today)

	s := &TripService{
		store:  st,
		kv:     kv,
		book:   payroll.LoadBook(ctx, kv),
		logger: logger.With("component", "service"),
		month:  month,
		year:   year,
		period: fleet.WindowFor(month, year),
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	last, err := kv.Get(ctx, fleet.KeyLastDriver)
	if err == nil && last != "" {
		s.mu.Lock()
		s.lastDriver = last
		s.mu.Unlock()
	}
	return s, nil
}

// currentWindowIndex maps a calendar date to the 0-indexed (month, year)
// whose billing window contains it. On or after the 20th the date
// belongs to the window ending the FOLLOWING month.
func currentWindowIndex(d fleet.Date) (month, year int) {
	month = int(d.Month()) - 1 // 0-indexed
	year = d.Year()
	if d.Day() >= 20 {
		month++
		if month > 11 {
			month = 0
			year++
		}
	}
	return month, year
}

// WatchStore subscribes to store change notifications; each one triggers
// a full refresh. Call Close to stop watching.
func (s *TripService) WatchStore(n fleet.Notifier) {
	s.stopNotify = n.Subscribe(func() {
		if err := s.Refresh(context.Background()); err != nil {
			s.logger.Warn("refresh after store change failed", "error", err)
		}
	})
}

// Close stops the store watch.
func (s *TripService) Close() {
	if s.stopNotify != nil {
		s.stopNotify()
		s.stopNotify = nil
	}
}

// =============================================================================
// WORKING SET
// =============================================================================

// Refresh re-fetches everything from the store and rebuilds the
// normalized working set.
func (s *TripService) Refresh(ctx context.Context) error {
	raws, err := s.store.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch trips: %w", err)
	}
	presets, err := s.store.FetchPresets(ctx)
	if err != nil {
		return fmt.Errorf("fetch presets: %w", err)
	}

	trips := make([]fleet.Trip, len(raws))
	for i, raw := range raws {
		trips[i] = fleet.Normalize(raw)
	}
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[j].Date.Before(trips[i].Date)
	})

	s.mu.Lock()
	s.trips = trips
	s.presets = presets
	s.mu.Unlock()

	s.logger.Debug("working set refreshed", "trips", len(trips))
	return nil
}

// Trips returns the full normalized trip list, newest first.
func (s *TripService) Trips() []fleet.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fleet.Trip, len(s.trips))
	copy(out, s.trips)
	return out
}

// Presets returns the route preset map.
func (s *TripService) Presets() map[string]fleet.RoutePreset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]fleet.RoutePreset, len(s.presets))
	for k, v := range s.presets {
		out[k] = v
	}
	return out
}

// =============================================================================
// PERIOD SELECTION
// =============================================================================

// Period returns the selected billing window.
func (s *TripService) Period() fleet.BillingPeriod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// SelectedMonth returns the 0-indexed end month and year of the window.
func (s *TripService) SelectedMonth() (month, year int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.month, s.year
}

// SelectPeriod sets the billing window by 0-indexed end month and year.
func (s *TripService) SelectPeriod(month, year int) error {
	if month < 0 || month > 11 {
		return fmt.Errorf("month must be 0-11, got %d", month)
	}
	s.mu.Lock()
	s.month, s.year = month, year
	s.period = fleet.WindowFor(month, year)
	s.mu.Unlock()
	return nil
}

// ShiftPeriod moves the window by direction months (+1 or -1), rolling
// across year boundaries.
func (s *TripService) ShiftPeriod(direction int) {
	s.mu.Lock()
	s.month, s.year = fleet.Advance(s.month, s.year, direction)
	s.period = fleet.WindowFor(s.month, s.year)
	s.mu.Unlock()
}

// =============================================================================
// MUTATIONS - write through the store, then refresh
// =============================================================================

// Add inserts a trip record. The raw payload is accepted in any shape;
// the stored normalized trip is returned. The driver name, when present,
// is remembered as the operator's last-used value.
func (s *TripService) Add(ctx context.Context, raw fleet.RawTrip) (fleet.Trip, error) {
	stored, err := s.store.Insert(ctx, raw)
	if err != nil {
		return fleet.Trip{}, err
	}
	t := fleet.Normalize(stored)

	if t.DriverName != "" {
		s.rememberDriver(ctx, t.DriverName)
	}
	if err := s.Refresh(ctx); err != nil {
		return t, err
	}
	return t, nil
}

// Update replaces a trip record in full.
func (s *TripService) Update(ctx context.Context, id fleet.TripID, raw fleet.RawTrip) error {
	if err := s.store.Update(ctx, id, raw); err != nil {
		return err
	}
	if name := fleet.Normalize(raw).DriverName; name != "" {
		s.rememberDriver(ctx, name)
	}
	return s.Refresh(ctx)
}

// Delete removes a trip record.
func (s *TripService) Delete(ctx context.Context, id fleet.TripID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// DeletePreset removes a route preset.
func (s *TripService) DeletePreset(ctx context.Context, route string) error {
	if err := s.store.DeletePreset(ctx, route); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *TripService) rememberDriver(ctx context.Context, name string) {
	s.mu.Lock()
	s.lastDriver = name
	s.mu.Unlock()
	if err := s.kv.Set(ctx, fleet.KeyLastDriver, name); err != nil {
		s.logger.Warn("persist last driver failed", "error", err)
	}
}

// LastDriver returns the most recently used driver name, empty when none.
func (s *TripService) LastDriver() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastDriver
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

// SetDeduction records the raw CN deduction input for a driver.
func (s *TripService) SetDeduction(ctx context.Context, driver, raw string) error {
	return s.book.Set(ctx, driver, raw)
}

// Deductions returns the parsed deduction map.
func (s *TripService) Deductions() fleet.Deductions {
	return s.book.Deductions()
}

// RawDeductions returns the raw deduction entries for display.
func (s *TripService) RawDeductions() map[string]string {
	return s.book.Raw()
}

// =============================================================================
// DERIVED VIEWS - pure reads over the working set
// =============================================================================

// PeriodTrips returns the trips inside the selected billing window,
// newest first.
func (s *TripService) PeriodTrips() []fleet.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fleet.FilterPeriod(s.trips, s.period)
}

// Stats aggregates the selected window with CN deductions applied.
func (s *TripService) Stats() fleet.Stats {
	s.mu.RLock()
	trips, period := s.trips, s.period
	s.mu.RUnlock()
	return fleet.Aggregate(trips, period, s.book.Deductions())
}

// YearlyStats aggregates every trip dated in the given calendar year.
func (s *TripService) YearlyStats(year int) fleet.Stats {
	s.mu.RLock()
	trips := s.trips
	s.mu.RUnlock()
	return fleet.AggregateYear(trips, year)
}

// Day returns the one-row day summary for a date within the selected
// window. Days with no trips produce the zero-sentinel row.
func (s *TripService) Day(date fleet.Date) fleet.DaySummary {
	s.mu.RLock()
	trips, period := s.trips, s.period
	s.mu.RUnlock()
	return fleet.DayData(fleet.FilterPeriod(trips, period), date)
}

// Days returns one summary per day of the selected window, in order.
func (s *TripService) Days() []fleet.DaySummary {
	s.mu.RLock()
	trips, period := s.trips, s.period
	s.mu.RUnlock()

	inPeriod := fleet.FilterPeriod(trips, period)
	days := period.Days()
	out := make([]fleet.DaySummary, len(days))
	for i, d := range days {
		out[i] = fleet.DayData(inPeriod, d)
	}
	return out
}

// Slips builds one payroll slip per driver for the selected window,
// sorted by driver name.
func (s *TripService) Slips() []payroll.Slip {
	s.mu.RLock()
	trips, period := s.trips, s.period
	s.mu.RUnlock()

	buckets := payroll.GroupByDriver(fleet.FilterPeriod(trips, period))
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	label := period.String()
	slips := make([]payroll.Slip, 0, len(names))
	for _, name := range names {
		slips = append(slips, payroll.BuildSlip(name, buckets[name], s.book.Get(name), label))
	}
	return slips
}

// Slip builds the payroll slip for one driver in the selected window.
// Drivers with no trips get an empty slip (allowance minus deduction).
func (s *TripService) Slip(driver string) payroll.Slip {
	s.mu.RLock()
	trips, period := s.trips, s.period
	s.mu.RUnlock()

	name := fleet.DisplayName(driver)
	buckets := payroll.GroupByDriver(fleet.FilterPeriod(trips, period))
	return payroll.BuildSlip(name, buckets[name], s.book.Get(name), period.String())
}
