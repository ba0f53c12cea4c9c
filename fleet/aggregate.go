/*
aggregate.go - Period totals and per-driver payroll ledgers

PURPOSE:
  Folds a collection of normalized trips into the figures the dashboard
  shows: period totals, per-day summaries for the calendar table, and the
  per-driver ledgers behind remaining-pay and payroll slips.

KEY INSIGHT:
  Aggregation is always PERIOD-scoped. A trip outside the displayed window
  is excluded from that window's figures but stays in the full collection.

PURITY:
  Every function here is a pure fold over its inputs: no I/O, no shared
  state. The caller re-invokes them whenever the trip collection, the
  selected period, or the deduction map changes. They are cheap enough
  that no memoization is needed for correctness.

NET PAY FORMULA (per driver, per period):
  (Σwage + ΣbasketShare + allowance) - ΣstaffShare - cnDeduction
  The 1000 allowance is applied once per driver regardless of trip count.
  CN deductions apply to monthly windows only, never to yearly aggregates.

SEE ALSO:
  - period.go: Window resolution
  - payroll/slip.go: The same per-driver formula, re-derived for slips
*/
package fleet

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD AGGREGATION
// =============================================================================

// Aggregate filters trips to the billing window and folds them into Stats,
// applying the CN deduction map to the per-driver remaining-pay sum.
func Aggregate(trips []Trip, period BillingPeriod, cn Deductions) Stats {
	return fold(filterPeriod(trips, period), cn)
}

// AggregateYear folds all trips whose calendar year matches. CN deductions
// are a monthly concept and are never applied here.
func AggregateYear(trips []Trip, year int) Stats {
	var selected []Trip
	for _, t := range trips {
		if t.Date.Year() == year {
			selected = append(selected, t)
		}
	}
	return fold(selected, nil)
}

// FilterPeriod returns the trips whose date falls inside the window.
func FilterPeriod(trips []Trip, period BillingPeriod) []Trip {
	return filterPeriod(trips, period)
}

func filterPeriod(trips []Trip, period BillingPeriod) []Trip {
	var selected []Trip
	for _, t := range trips {
		if period.Contains(t.Date) {
			selected = append(selected, t)
		}
	}
	return selected
}

func fold(trips []Trip, cn Deductions) Stats {
	stats := Stats{
		TotalRevenue:      decimal.Zero,
		TotalWages:        decimal.Zero,
		TotalFuel:         decimal.Zero,
		TotalMaintenance:  decimal.Zero,
		TotalBasket:       decimal.Zero,
		TotalStaffAdvance: decimal.Zero,
		TotalProfit:       decimal.Zero,
		TotalRemainingPay: decimal.Zero,
	}

	for _, t := range trips {
		stats.TotalTrips++
		stats.TotalRevenue = stats.TotalRevenue.Add(t.Price).Add(t.Basket)
		stats.TotalWages = stats.TotalWages.Add(t.Wage)
		stats.TotalFuel = stats.TotalFuel.Add(t.Fuel)
		stats.TotalMaintenance = stats.TotalMaintenance.Add(t.Maintenance)
		// TotalBasket is the share PAID OUT, not raw basket revenue.
		stats.TotalBasket = stats.TotalBasket.Add(t.BasketShare)
		stats.TotalStaffAdvance = stats.TotalStaffAdvance.Add(t.StaffShare)
		stats.TotalProfit = stats.TotalProfit.Add(t.Profit)
	}

	ledgers := DriverLedgers(trips)
	for _, name := range sortedDrivers(trips) {
		stats.TotalRemainingPay = stats.TotalRemainingPay.Add(ledgers[name].NetPay(cn.Get(name)))
	}

	return stats
}

// =============================================================================
// DRIVER LEDGERS
// =============================================================================

// DriverLedgers groups trips by driver name (empty name -> the
// "unspecified" sentinel) and accumulates wage, basket share, and advance
// sums per driver.
func DriverLedgers(trips []Trip) map[string]DriverLedger {
	ledgers := make(map[string]DriverLedger)
	for _, t := range trips {
		name := DisplayName(t.DriverName)
		ledger := ledgers[name]
		ledger.Wage = ledger.Wage.Add(t.Wage)
		ledger.BasketShare = ledger.BasketShare.Add(t.BasketShare)
		ledger.Advance = ledger.Advance.Add(t.StaffShare)
		ledgers[name] = ledger
	}
	return ledgers
}

func sortedDrivers(trips []Trip) []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range trips {
		name := DisplayName(t.DriverName)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// DAY SUMMARIES - Dense calendar rows
// =============================================================================

// DaySummary is one row of the period calendar table: all trips sharing a
// date co-aggregate here. The comma-joined labels are a display
// concession; the underlying trips remain distinct in Items.
type DaySummary struct {
	Date       Date
	Route      string // distinct routes, comma-joined; "-" when empty
	DriverName string // distinct non-empty drivers, comma-joined; "-" when empty

	Price       decimal.Decimal
	Fuel        decimal.Decimal
	Wage        decimal.Decimal
	Maintenance decimal.Decimal
	Basket      decimal.Decimal
	BasketShare decimal.Decimal
	StaffShare  decimal.Decimal
	Profit      decimal.Decimal

	Count int
	Items []Trip
}

// DayData sums every trip on the given exact date. A date with no trips
// yields the zero-filled sentinel row (route "-", empty items) so callers
// can render a dense calendar without special cases.
func DayData(trips []Trip, date Date) DaySummary {
	day := DaySummary{
		Date:        date,
		Route:       "-",
		DriverName:  "-",
		Price:       decimal.Zero,
		Fuel:        decimal.Zero,
		Wage:        decimal.Zero,
		Maintenance: decimal.Zero,
		Basket:      decimal.Zero,
		BasketShare: decimal.Zero,
		StaffShare:  decimal.Zero,
		Profit:      decimal.Zero,
		Items:       []Trip{},
	}

	var routes, drivers []string
	for _, t := range trips {
		if !t.Date.Equal(date) {
			continue
		}
		day.Count++
		day.Items = append(day.Items, t)
		day.Price = day.Price.Add(t.Price)
		day.Fuel = day.Fuel.Add(t.Fuel)
		day.Wage = day.Wage.Add(t.Wage)
		day.Maintenance = day.Maintenance.Add(t.Maintenance)
		day.Basket = day.Basket.Add(t.Basket)
		day.BasketShare = day.BasketShare.Add(t.BasketShare)
		day.StaffShare = day.StaffShare.Add(t.StaffShare)
		day.Profit = day.Profit.Add(t.Profit)
		routes = appendDistinct(routes, t.Route)
		if t.DriverName != "" {
			drivers = appendDistinct(drivers, t.DriverName)
		}
	}

	if len(routes) > 0 {
		day.Route = strings.Join(routes, ", ")
	}
	if len(drivers) > 0 {
		day.DriverName = strings.Join(drivers, ", ")
	}
	return day
}

func appendDistinct(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
