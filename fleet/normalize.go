/*
normalize.go - Record Normalizer

PURPOSE:
  Converts heterogeneous raw trip records into the canonical Trip shape.
  Stored records have accumulated inconsistent field naming over time
  (driver_name vs driverName vs staff vs name, advance vs staffShare), so
  every read path funnels through Normalize.

LENIENCY CONTRACT:
  Normalize must not fail. Any missing or malformed field maps to a safe
  default: zero for numbers, empty string for text, today's local date for
  missing dates. The system never rejects a record for shape reasons.

IDEMPOTENCE:
  Normalize(Normalize(t).RawRecord()) == Normalize(t.RawRecord()). The
  canonical field names sit first in every alternate-key priority list, so
  re-normalizing an already-canonical trip changes nothing.

SEE ALSO:
  - types.go: Trip and the lenient numeric coercion helpers
  - basket.go: Tier table applied at entry time (NOT during normalization)
*/
package fleet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Alternate raw keys, in priority order. First hit wins.
var (
	driverNameKeys  = []string{"driverName", "driver_name", "driver", "staff", "name"}
	staffShareKeys  = []string{"staffShare", "advance", "staff_advance"}
	basketShareKeys = []string{"basketShare", "basket_share"}
	basketCountKeys = []string{"basket_count", "basketCount"}
)

// Normalize converts a raw record into a canonical Trip. It never fails.
func Normalize(raw RawTrip) Trip {
	price := ParseMoney(raw["price"])
	fuel := ParseMoney(raw["fuel"])
	wage := ParseMoney(raw["wage"])
	maintenance := ParseMoney(raw["maintenance"])
	basket := ParseMoney(raw["basket"])

	staffShare := firstNonZeroMoney(raw, staffShareKeys)
	basketShare := firstNonZeroMoney(raw, basketShareKeys)

	return Trip{
		ID:          rawID(raw["id"]),
		Date:        resolveDate(raw["date"]),
		DriverName:  CollapseName(firstNonEmptyString(raw, driverNameKeys)),
		Route:       stringValue(raw["route"]),
		Price:       price,
		Fuel:        fuel,
		Wage:        wage,
		Maintenance: maintenance,
		Basket:      basket,
		BasketCount: firstNonZeroCount(raw, basketCountKeys),
		BasketShare: basketShare,
		StaffShare:  staffShare,
		// Always derived here, never taken from raw input.
		Profit: ComputeProfit(price, fuel, wage, maintenance, basket, basketShare),
		Raw:    raw,
	}
}

// RawRecord renders a Trip back into canonical raw form. Used when
// re-normalizing on update and when building store payloads.
func (t Trip) RawRecord() RawTrip {
	return RawTrip{
		"id":          t.ID,
		"date":        t.Date.String(),
		"driverName":  t.DriverName,
		"route":       t.Route,
		"price":       t.Price,
		"fuel":        t.Fuel,
		"wage":        t.Wage,
		"maintenance": t.Maintenance,
		"basket":      t.Basket,
		"basketCount": t.BasketCount,
		"basketShare": t.BasketShare,
		"staffShare":  t.StaffShare,
	}
}

// CollapseName trims a driver name and collapses internal runs of
// whitespace to a single space.
func CollapseName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DisplayName returns the driver name or the "unspecified" sentinel.
func DisplayName(driver string) string {
	if driver == "" {
		return DriverUnspecified
	}
	return driver
}

// =============================================================================
// RAW FIELD RESOLUTION
// =============================================================================

func resolveDate(v any) Date {
	switch x := v.(type) {
	case nil:
		return Today()
	case Date:
		return x
	case string:
		if strings.TrimSpace(x) == "" {
			return Today()
		}
		return ParseDate(x)
	default:
		if t, ok := timeValue(v); ok {
			return FromTime(t)
		}
		return Today()
	}
}

func firstNonEmptyString(raw RawTrip, keys []string) string {
	for _, k := range keys {
		if s := stringValue(raw[k]); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// firstNonZeroMoney returns the first key that parses to a non-zero
// amount. A present-but-zero value falls through to later alternates,
// matching how stored records mix the alternate column names.
func firstNonZeroMoney(raw RawTrip, keys []string) decimal.Decimal {
	for _, k := range keys {
		if d := ParseMoney(raw[k]); !d.IsZero() {
			return d
		}
	}
	return decimal.Zero
}

func firstNonZeroCount(raw RawTrip, keys []string) int {
	for _, k := range keys {
		if n := ParseCount(raw[k]); n != 0 {
			return n
		}
	}
	return 0
}

func stringValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func rawID(v any) TripID {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return decimal.NewFromFloat(x).String()
	case int:
		return decimal.NewFromInt(int64(x)).String()
	case int64:
		return decimal.NewFromInt(x).String()
	default:
		return ""
	}
}

// trimNumeric reduces a string to its leading numeric prefix so that
// values like "500 THB" coerce the way a float parse would, instead of
// failing outright.
func trimNumeric(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for i, r := range s {
		if r == '-' && i == 0 {
			end = i + 1
			continue
		}
		if r == '.' && !seenDot {
			seenDot = true
			end = i + 1
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		end = i + 1
	}
	return s[:end]
}
