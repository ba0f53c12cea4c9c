package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fleet-engine/api"
	"github.com/warp/fleet-engine/fleet/store"
	"github.com/warp/fleet-engine/service"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	mem := store.NewMemory()
	svc, err := service.New(context.Background(), mem, store.NewMemoryKV(), nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	handler := api.NewHandler(svc, "memory", true)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)

	// Pin the window so test data lands inside it.
	do(t, srv, http.MethodPut, "/api/period", `{"month":3,"year":2024}`, http.StatusOK)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, wantStatus int) []byte {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "body: %s", buf.String())
	return buf.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

// =============================================================================
// TRIP CRUD
// =============================================================================

func TestAPI_CreateAndListTrips(t *testing.T) {
	srv := newTestServer(t)

	body := do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-04-01","driver_name":"Kofi","route":"Tema - Accra",
		  "price":2400,"fuel":400,"wage":300}`, http.StatusCreated)

	created := decode[map[string]any](t, body)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, 1700.0, created["profit"])

	list := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/trips", "", http.StatusOK))
	require.Len(t, list, 1)
	assert.Equal(t, "Kofi", list[0]["driver_name"])
}

func TestAPI_UpdateAndDeleteTrip(t *testing.T) {
	srv := newTestServer(t)

	created := decode[map[string]any](t, do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-04-01","route":"A","price":100}`, http.StatusCreated))
	id := created["id"].(string)

	do(t, srv, http.MethodPut, "/api/trips/"+id,
		`{"date":"2024-04-02","route":"B"}`, http.StatusOK)

	list := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/trips", "", http.StatusOK))
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0]["route"])

	do(t, srv, http.MethodDelete, "/api/trips/"+id, "", http.StatusOK)
	do(t, srv, http.MethodDelete, "/api/trips/"+id, "", http.StatusNotFound)
}

// =============================================================================
// PERIOD AND STATS
// =============================================================================

func TestAPI_PeriodWindowAndStats(t *testing.T) {
	srv := newTestServer(t)

	period := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/period", "", http.StatusOK))
	assert.Equal(t, "2024-03-20", period["start"])
	assert.Equal(t, "2024-04-19", period["end"])

	// One trip inside the window, one outside.
	do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-03-25","driver_name":"Kofi","price":2400,"wage":300}`, http.StatusCreated)
	do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-04-20","price":9999}`, http.StatusCreated)

	stats := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/period/stats", "", http.StatusOK))
	assert.Equal(t, 1.0, stats["total_trips"])
	assert.Equal(t, 2400.0, stats["total_revenue"])

	inWindow := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/period/trips", "", http.StatusOK))
	assert.Len(t, inWindow, 1)
}

func TestAPI_ShiftPeriodRollsYear(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPut, "/api/period", `{"month":0,"year":2025}`, http.StatusOK)

	shifted := decode[map[string]any](t, do(t, srv, http.MethodPost, "/api/period/shift",
		`{"direction":-1}`, http.StatusOK))
	assert.Equal(t, 11.0, shifted["month"])
	assert.Equal(t, 2024.0, shifted["year"])

	do(t, srv, http.MethodPost, "/api/period/shift", `{"direction":5}`, http.StatusBadRequest)
}

func TestAPI_DayTableIsDense(t *testing.T) {
	srv := newTestServer(t)

	days := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/period/days", "", http.StatusOK))
	require.Len(t, days, 31)

	// Empty days carry the sentinel row.
	first := days[0]
	assert.Equal(t, "-", first["route"])
	assert.Equal(t, 0.0, first["count"])

	day := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/period/days/2024-04-01", "", http.StatusOK))
	assert.Equal(t, "2024-04-01", day["date"])
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestAPI_PayslipsWithDeduction(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-03-25","driver_name":"Kofi","wage":700,"basket_share":300}`, http.StatusCreated)
	do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-04-02","driver_name":"Kofi","wage":500,"staff_share":400}`, http.StatusCreated)
	do(t, srv, http.MethodPut, "/api/deductions/Kofi", `{"value":"300"}`, http.StatusOK)

	slips := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/api/payslips", "", http.StatusOK))
	require.Len(t, slips, 1)
	assert.Equal(t, "Kofi", slips[0]["driver_name"])
	assert.Equal(t, 1800.0, slips[0]["net_pay"])

	solo := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/payslips/Kofi", "", http.StatusOK))
	assert.Equal(t, 1800.0, solo["net_pay"])

	deductions := decode[map[string]string](t, do(t, srv, http.MethodGet, "/api/deductions", "", http.StatusOK))
	assert.Equal(t, "300", deductions["Kofi"])
}

// =============================================================================
// EXPORT AND STATUS
// =============================================================================

func TestAPI_ExportCSV(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/trips",
		`{"date":"2024-04-01","driver_name":"Kofi","route":"Tema - Accra","price":2400}`, http.StatusCreated)

	body := string(do(t, srv, http.MethodGet, "/api/export/csv", "", http.StatusOK))
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "basket_share")
	assert.Contains(t, lines[1], "Kofi")
	assert.Contains(t, lines[1], "2400")
}

func TestAPI_StatusReportsBackend(t *testing.T) {
	srv := newTestServer(t)

	status := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/status", "", http.StatusOK))
	assert.Equal(t, "memory", status["storage_mode"])
	assert.Equal(t, true, status["degraded"])
}

// =============================================================================
// DEMO SEED
// =============================================================================

func TestAPI_SeedDemoPopulatesWindow(t *testing.T) {
	srv := newTestServer(t)

	result := decode[map[string]int](t, do(t, srv, http.MethodPost, "/api/demo/seed", "", http.StatusOK))
	assert.Equal(t, 5, result["inserted"])

	stats := decode[map[string]any](t, do(t, srv, http.MethodGet, "/api/period/stats", "", http.StatusOK))
	assert.Equal(t, 5.0, stats["total_trips"])
}
