/*
Package fleet provides the core trip aggregation and payroll engine.

PURPOSE:
  This package contains the pure domain types and algorithms for a small
  fleet bookkeeping system: normalizing heterogeneous trip records into one
  canonical shape, resolving the custom 20th-to-19th billing window, and
  folding trips into period totals and per-driver payroll ledgers.

KEY CONCEPTS IN THIS FILE (types.go):
  - Trip: A canonical, normalized trip record with derived profit
  - RawTrip: An untyped record as it arrives from storage or a form
  - Stats: Period totals produced by the aggregation engine
  - DriverLedger: Per-driver wage/share/advance accumulation
  - RoutePreset: Default price/wage suggestions keyed by route name

DESIGN PRINCIPLES:
  1. Leniency: Malformed input coerces to safe defaults, never errors
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Purity: Aggregation is a pure fold; it is cheap enough to re-run on
     every input change rather than incrementally maintained
  4. Derivation: Profit is always recomputed, never trusted from input

SEE ALSO:
  - normalize.go: RawTrip -> Trip conversion rules
  - period.go: The 20th-to-19th billing window
  - aggregate.go: Stats and per-driver ledger computation
*/
package fleet

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// ParseMoney coerces an arbitrary raw value to a monetary amount.
// Strings, integers and floats are accepted; anything unparseable
// (including nil) becomes zero. No value downstream is ever NaN.
func ParseMoney(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case float64:
		return decimal.NewFromFloat(x)
	case float32:
		return decimal.NewFromFloat32(x)
	case int:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case string:
		d, err := decimal.NewFromString(trimNumeric(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// ParseCount coerces an arbitrary raw value to a non-negative integer count.
func ParseCount(v any) int {
	d := ParseMoney(v)
	n := int(d.IntPart())
	if n < 0 {
		return 0
	}
	return n
}

// =============================================================================
// IDENTIFIERS & CONSTANTS
// =============================================================================

// TripID is an opaque identifier assigned by the persistence adapter, or a
// locally generated timestamp-based value when storage is unavailable.
type TripID = string

// DriverUnspecified is the sentinel name used when a trip carries no
// driver name. An empty driver name is legal input.
const DriverUnspecified = "unspecified"

// PeriodAllowance is the fixed per-period base stipend added once per
// driver when computing net pay, regardless of trip count.
var PeriodAllowance = decimal.NewFromInt(1000)

// =============================================================================
// TRIP - Canonical record, post-normalization
// =============================================================================

// RawTrip is a trip record as it arrives from the persistence adapter or a
// submission form: field names and value types are not trusted.
type RawTrip map[string]any

// Trip is the canonical trip shape. All monetary fields are non-negative
// except Profit, which is derived and signed.
type Trip struct {
	ID         TripID
	Date       Date
	DriverName string
	Route      string

	Price       decimal.Decimal // trip fee charged (revenue)
	Fuel        decimal.Decimal // operating expense
	Wage        decimal.Decimal // operating expense
	Maintenance decimal.Decimal // operating expense

	Basket      decimal.Decimal // supplemental basket-goods revenue
	BasketCount int             // basket units delivered
	BasketShare decimal.Decimal // basket revenue owed to the driver (expense)

	StaffShare decimal.Decimal // advance already paid against this trip

	// Profit = (Price + Basket) - (Fuel + Wage + Maintenance + BasketShare).
	// Recomputed at normalization/update time; never independently
	// authoritative.
	Profit decimal.Decimal

	// Raw retains the original record for diagnostics only. No downstream
	// logic may depend on it.
	Raw RawTrip
}

// ComputeProfit derives trip profit from its revenue and expense fields.
func ComputeProfit(price, fuel, wage, maintenance, basket, basketShare decimal.Decimal) decimal.Decimal {
	return price.Add(basket).Sub(fuel).Sub(wage).Sub(maintenance).Sub(basketShare)
}

// =============================================================================
// ROUTE PRESETS & DEDUCTIONS
// =============================================================================

// RoutePreset holds default suggestions for a route, keyed by route name.
type RoutePreset struct {
	Price decimal.Decimal
	Wage  decimal.Decimal
}

// Deductions maps driver name to the manual CN deduction applied once per
// billing period. A missing entry means zero.
type Deductions map[string]decimal.Decimal

// Get returns the deduction for a driver, zero when absent.
func (d Deductions) Get(driver string) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	if v, ok := d[driver]; ok {
		return v
	}
	return decimal.Zero
}

// =============================================================================
// STATS - Period totals
// =============================================================================

// Stats holds the aggregate figures for one billing period (or one
// calendar year). TotalBasket sums BasketShare - the payout owed, not raw
// basket revenue; the name reflects the outgoing liability.
type Stats struct {
	TotalTrips        int
	TotalRevenue      decimal.Decimal // Σ(price + basket)
	TotalWages        decimal.Decimal
	TotalFuel         decimal.Decimal
	TotalMaintenance  decimal.Decimal
	TotalBasket       decimal.Decimal // Σ basketShare
	TotalStaffAdvance decimal.Decimal // Σ staffShare
	TotalProfit       decimal.Decimal
	TotalRemainingPay decimal.Decimal // Σ per-driver net pay
}

// DriverLedger accumulates the payroll-relevant sums for one driver within
// a period.
type DriverLedger struct {
	Wage        decimal.Decimal
	BasketShare decimal.Decimal
	Advance     decimal.Decimal // accumulated staffShare
}

// NetPay returns (wage + basketShare + allowance) - advance - cnDeduction.
// The allowance is applied once per driver, not per trip.
func (l DriverLedger) NetPay(cnDeduction decimal.Decimal) decimal.Decimal {
	return l.Wage.Add(l.BasketShare).Add(PeriodAllowance).Sub(l.Advance).Sub(cnDeduction)
}
