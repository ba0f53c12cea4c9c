package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =============================================================================
// TRIP CRUD
// =============================================================================

func TestStore_InsertNormalizesAndAssignsID(t *testing.T) {
	// GIVEN: A messy raw record
	// WHEN: Inserted
	// THEN: The stored record is canonical, with derived profit and an id

	st := newTestStore(t)
	ctx := context.Background()

	stored, err := st.Insert(ctx, fleet.RawTrip{
		"date":    "2024-04-01",
		"driver":  "  Kofi  Mensah ",
		"route":   "Tema - Accra",
		"price":   "2400 GHS",
		"fuel":    400,
		"wage":    300,
		"advance": 200,
	})
	require.NoError(t, err)

	trip := fleet.Normalize(stored)
	assert.NotEmpty(t, trip.ID)
	assert.Equal(t, "Kofi Mensah", trip.DriverName)
	assert.Equal(t, "1700", trip.Profit.String())
	assert.Equal(t, "200", trip.StaffShare.String())
}

func TestStore_FetchAllRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Insert(ctx, fleet.RawTrip{
		"date": "2024-04-01", "driverName": "Kofi", "route": "Tema - Accra",
		"price": 2400, "fuel": 400, "wage": 300, "basket": 600,
		"basketCount": 95, "basketShare": 400, "maintenance": 150,
	})
	require.NoError(t, err)

	raws, err := st.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, raws, 1)

	trip := fleet.Normalize(raws[0])
	assert.Equal(t, "Kofi", trip.DriverName)
	assert.Equal(t, 95, trip.BasketCount)
	assert.Equal(t, "400", trip.BasketShare.String())
	assert.Equal(t, "1750", trip.Profit.String())
}

func TestStore_FetchAllOrdersNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2024-04-01", "2024-04-15", "2024-04-07"} {
		_, err := st.Insert(ctx, fleet.RawTrip{"date": date, "route": "A"})
		require.NoError(t, err)
	}

	raws, err := st.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, raws, 3)
	assert.Equal(t, "2024-04-15", raws[0]["date"])
	assert.Equal(t, "2024-04-01", raws[2]["date"])
}

func TestStore_UpdateReplacesFullRecord(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	stored, err := st.Insert(ctx, fleet.RawTrip{"date": "2024-04-01", "route": "A", "price": 100})
	require.NoError(t, err)
	id := fleet.Normalize(stored).ID

	err = st.Update(ctx, id, fleet.RawTrip{"date": "2024-04-02", "route": "B", "wage": 300})
	require.NoError(t, err)

	raws, _ := st.FetchAll(ctx)
	require.Len(t, raws, 1)
	trip := fleet.Normalize(raws[0])
	assert.Equal(t, "B", trip.Route)
	assert.Equal(t, "2024-04-02", trip.Date.String())
	// Full replacement: the old price is gone.
	assert.True(t, trip.Price.IsZero())
}

func TestStore_MissingRecordsReportNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, st.Update(ctx, "missing", fleet.RawTrip{}), fleet.ErrTripNotFound)
	assert.ErrorIs(t, st.Delete(ctx, "missing"), fleet.ErrTripNotFound)
}

// =============================================================================
// ROUTE PRESETS
// =============================================================================

func TestStore_PresetLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SavePreset(ctx, "Tema - Accra", fleet.RoutePreset{
		Price: fleet.ParseMoney(2400),
		Wage:  fleet.ParseMoney(300),
	}))

	presets, err := st.FetchPresets(ctx)
	require.NoError(t, err)
	require.Contains(t, presets, "Tema - Accra")
	assert.Equal(t, "2400", presets["Tema - Accra"].Price.String())

	require.NoError(t, st.DeletePreset(ctx, "Tema - Accra"))
	presets, _ = st.FetchPresets(ctx)
	assert.Empty(t, presets)

	// Deleting a missing preset is not an error.
	assert.NoError(t, st.DeletePreset(ctx, "nope"))
}

// =============================================================================
// OPERATOR KV
// =============================================================================

func TestStore_KVRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	v, err := st.Get(ctx, fleet.KeyLastDriver)
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, st.Set(ctx, fleet.KeyLastDriver, "Kofi"))
	require.NoError(t, st.Set(ctx, fleet.KeyLastDriver, "Yaw"))

	v, err = st.Get(ctx, fleet.KeyLastDriver)
	require.NoError(t, err)
	assert.Equal(t, "Yaw", v)
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

func TestStore_NotifiesOnWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fired := 0
	stop := st.Subscribe(func() { fired++ })
	defer stop()

	stored, err := st.Insert(ctx, fleet.RawTrip{"date": "2024-04-01", "route": "A"})
	require.NoError(t, err)
	require.NoError(t, st.Update(ctx, fleet.Normalize(stored).ID, fleet.RawTrip{"route": "B"}))
	assert.Equal(t, 2, fired)
}
