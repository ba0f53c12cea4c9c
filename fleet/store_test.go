package fleet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/fleet"
)

// =============================================================================
// CANDIDATE PAYLOAD SHAPES
// =============================================================================

func payloadTrip() fleet.Trip {
	return fleet.Normalize(fleet.RawTrip{
		"date":        "2024-04-01",
		"driverName":  "Kofi",
		"route":       "Tema - Accra",
		"price":       2400,
		"fuel":        400,
		"wage":        300,
		"maintenance": 150,
		"basket":      600,
		"basketCount": 95,
		"basketShare": 400,
		"staffShare":  200,
	})
}

func TestInsertPayloads_OrderedMostToLeastSpecific(t *testing.T) {
	payloads := fleet.InsertPayloads(payloadTrip())
	require.Len(t, payloads, 6)

	// First attempt carries everything under snake_case driver naming.
	first := payloads[0]
	assert.Equal(t, "Kofi", first["driver_name"])
	assert.Equal(t, 95, first["basket_count"])

	// Second swaps only the driver key spelling.
	assert.Equal(t, "Kofi", payloads[1]["driverName"])

	// Middle attempts drop the count but keep a driver name.
	assert.Equal(t, "Kofi", payloads[2]["name"])
	assert.NotContains(t, payloads[2], "basket_count")
	assert.Equal(t, "Kofi", payloads[3]["driver"])

	// Fifth keeps financials without any driver key.
	assert.NotContains(t, payloads[4], "driver_name")
	assert.Contains(t, payloads[4], "basket")

	// The bare minimum shape closes the list.
	last := payloads[5]
	assert.Len(t, last, 6)
	for _, key := range []string{"date", "route", "price", "fuel", "wage", "profit"} {
		assert.Contains(t, last, key)
	}
}

func TestInsertPayloads_LegacyColumnMapping(t *testing.T) {
	// GIVEN: A trip with distinct basket share and staff advance
	// WHEN: Payloads are built
	// THEN: The legacy staff_share column carries the BASKET share and the
	//       advance column carries the staff advance

	payloads := fleet.InsertPayloads(payloadTrip())
	first := payloads[0]

	assert.Equal(t, "400", fleet.ParseMoney(first["staff_share"]).String())
	assert.Equal(t, "200", fleet.ParseMoney(first["advance"]).String())
}

func TestUpdatePayloads_IncludeCanonicalShareKey(t *testing.T) {
	payloads := fleet.UpdatePayloads(payloadTrip())
	require.Len(t, payloads, 4)

	// Update attempts also write the modern basket_share column so newer
	// schemas get the unambiguous value.
	first := payloads[0]
	assert.Equal(t, "Kofi", first["driverName"])
	assert.Equal(t, "400", fleet.ParseMoney(first["basket_share"]).String())
	assert.Equal(t, 95, first["basket_count"])

	assert.Equal(t, "Kofi", payloads[1]["driver_name"])
	assert.NotContains(t, payloads[2], "driverName")
	assert.Len(t, payloads[3], 6)
}

func TestUpdatePayloads_RoundTripThroughNormalize(t *testing.T) {
	// A record written with the first update attempt and read back must
	// normalize to the same trip: advance maps back to the staff advance
	// and the basket_share column preserves the basket share.
	original := payloadTrip()
	stored := fleet.UpdatePayloads(original)[0]

	got := fleet.Normalize(stored)
	assert.True(t, got.BasketShare.Equal(original.BasketShare))
	assert.True(t, got.StaffShare.Equal(original.StaffShare))
	assert.True(t, got.Profit.Equal(original.Profit))
	assert.Equal(t, original.DriverName, got.DriverName)
}

func TestInsertPayloads_BasketShareNotRecoveredFromLegacyColumn(t *testing.T) {
	// Insert attempts only write the legacy staff_share column. Reading
	// such a row back yields a zero basket share - the documented quirk of
	// the drifted remote schema. The staff advance still resolves.
	stored := fleet.InsertPayloads(payloadTrip())[0]

	got := fleet.Normalize(stored)
	assert.True(t, got.BasketShare.IsZero())
	assert.Equal(t, "200", got.StaffShare.String())
}
