package fleet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/fleet"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(t *testing.T, got interface{ String() string }, want string) {
	t.Helper()
	assert.Equal(t, want, got.String())
}

// =============================================================================
// ALTERNATE KEY RESOLUTION
// =============================================================================

func TestNormalize_DriverNameKeyPriority(t *testing.T) {
	// GIVEN: A record carrying several driver-name spellings
	// WHEN: Normalized
	// THEN: The highest-priority key wins

	trip := fleet.Normalize(fleet.RawTrip{
		"driver_name": "Ama",
		"driver":      "Kojo",
		"name":        "Esi",
	})
	assert.Equal(t, "Ama", trip.DriverName)

	trip = fleet.Normalize(fleet.RawTrip{
		"staff": "Kojo",
		"name":  "Esi",
	})
	assert.Equal(t, "Kojo", trip.DriverName)
}

func TestNormalize_WhitespaceCollapsed(t *testing.T) {
	trip := fleet.Normalize(fleet.RawTrip{"driverName": "  Kofi   Mensah "})
	assert.Equal(t, "Kofi Mensah", trip.DriverName)
}

func TestNormalize_ZeroFallsThroughToAlternateKey(t *testing.T) {
	// GIVEN: The primary share key holds zero and an alternate holds a value
	// WHEN: Normalized
	// THEN: The alternate's value is used (zero is "absent" for alternates)

	trip := fleet.Normalize(fleet.RawTrip{
		"staffShare": 0,
		"advance":    250,
	})
	money(t, trip.StaffShare, "250")

	trip = fleet.Normalize(fleet.RawTrip{
		"basketShare":  "0",
		"basket_share": 400,
	})
	money(t, trip.BasketShare, "400")
}

func TestNormalize_LenientNumericCoercion(t *testing.T) {
	// Strings with trailing units coerce to their numeric prefix; garbage
	// coerces to zero. Normalization never fails.
	trip := fleet.Normalize(fleet.RawTrip{
		"price": "2400 GHS",
		"fuel":  "n/a",
		"wage":  "-50.5",
	})
	money(t, trip.Price, "2400")
	money(t, trip.Fuel, "0")
	money(t, trip.Wage, "-50.5")
}

func TestNormalize_MissingDateDefaultsToToday(t *testing.T) {
	trip := fleet.Normalize(fleet.RawTrip{"route": "Tema - Accra"})
	assert.True(t, trip.Date.Equal(fleet.Today()))
}

func TestNormalize_DateTimestampTruncated(t *testing.T) {
	trip := fleet.Normalize(fleet.RawTrip{"date": "2025-03-14T08:30:00Z"})
	assert.Equal(t, "2025-03-14", trip.Date.String())
}

func TestNormalize_NumericDateIsEpochMillis(t *testing.T) {
	// Remote rows occasionally carry the date as a JSON number.
	const millis = 1711972800000 // 2024-04-01T12:00:00Z
	trip := fleet.Normalize(fleet.RawTrip{"date": float64(millis)})
	want := fleet.FromTime(time.UnixMilli(millis))
	assert.Equal(t, want.String(), trip.Date.String())
}

func TestNormalize_NumericIDCoerced(t *testing.T) {
	// Remote rows deliver ids as JSON numbers.
	trip := fleet.Normalize(fleet.RawTrip{"id": float64(1716200000000)})
	assert.Equal(t, "1716200000000", string(trip.ID))
}

// =============================================================================
// PROFIT DERIVATION
// =============================================================================

func TestNormalize_ProfitAlwaysDerived(t *testing.T) {
	// GIVEN: A record with a bogus stored profit
	// WHEN: Normalized
	// THEN: Profit is recomputed, never trusted from input

	trip := fleet.Normalize(fleet.RawTrip{
		"price":       2400,
		"basket":      600,
		"fuel":        400,
		"wage":        300,
		"maintenance": 150,
		"basketShare": 400,
		"profit":      99999,
	})
	// (2400 + 600) - (400 + 300 + 150 + 400) = 1750
	money(t, trip.Profit, "1750")
}

func TestNormalize_EmptyRecordIsAllZeroes(t *testing.T) {
	trip := fleet.Normalize(fleet.RawTrip{})
	money(t, trip.Profit, "0")
	money(t, trip.Price, "0")
	assert.Equal(t, 0, trip.BasketCount)
	assert.Equal(t, "", trip.DriverName)
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestNormalize_Idempotent(t *testing.T) {
	// GIVEN: Any messy record
	// WHEN: Normalized, rendered canonical, and normalized again
	// THEN: Every derived field is unchanged

	raw := fleet.RawTrip{
		"id":           "abc",
		"date":         "2025-04-01",
		"driver":       "  Yaw  Boateng ",
		"route":        "Kumasi - Accra",
		"price":        "3100",
		"fuel":         650.0,
		"wage":         350,
		"basket":       1000,
		"basket_count": 110,
		"basket_share": 700,
		"advance":      200,
	}

	once := fleet.Normalize(raw)
	twice := fleet.Normalize(once.RawRecord())

	require.Equal(t, once.ID, twice.ID)
	assert.True(t, once.Date.Equal(twice.Date))
	assert.Equal(t, once.DriverName, twice.DriverName)
	assert.Equal(t, once.Route, twice.Route)
	assert.True(t, once.Price.Equal(twice.Price))
	assert.True(t, once.Fuel.Equal(twice.Fuel))
	assert.True(t, once.Wage.Equal(twice.Wage))
	assert.True(t, once.Maintenance.Equal(twice.Maintenance))
	assert.True(t, once.Basket.Equal(twice.Basket))
	assert.Equal(t, once.BasketCount, twice.BasketCount)
	assert.True(t, once.BasketShare.Equal(twice.BasketShare))
	assert.True(t, once.StaffShare.Equal(twice.StaffShare))
	assert.True(t, once.Profit.Equal(twice.Profit))
}

// =============================================================================
// DISPLAY NAME
// =============================================================================

func TestDisplayName_EmptyFallsBackToSentinel(t *testing.T) {
	assert.Equal(t, "unspecified", fleet.DisplayName(""))
	assert.Equal(t, "Kofi", fleet.DisplayName("Kofi"))
}
