/*
handlers.go - HTTP API handlers for the fleet bookkeeping engine

PURPOSE:
  Exposes the trip ledger, period aggregation, and payroll slips via REST.
  Handles HTTP request/response and JSON serialization; all computation
  delegates to the service and fleet packages.

ENDPOINTS:
  Trips:
    GET    /api/trips                  Full normalized trip list
    POST   /api/trips                  Record a trip
    PUT    /api/trips/{id}             Replace a trip
    DELETE /api/trips/{id}             Delete a trip

  Period:
    GET    /api/period                 Selected billing window
    PUT    /api/period                 Select window by month/year
    POST   /api/period/shift           Move window +-1 month
    GET    /api/period/trips           Trips inside the window
    GET    /api/period/stats           Window totals
    GET    /api/period/days            One row per day of the window
    GET    /api/period/days/{date}     Single day summary

  Payroll:
    GET    /api/payslips               One slip per driver
    GET    /api/payslips/{driver}      Slip for one driver
    GET    /api/deductions             Raw CN deduction entries
    PUT    /api/deductions/{driver}    Set/clear a CN deduction

  Other:
    GET    /api/stats/yearly?year=     Calendar-year totals
    GET    /api/presets                Route presets
    DELETE /api/presets/{route}        Delete a preset
    GET    /api/export/csv             Window trips as CSV
    GET    /api/status                 Backend mode and operator state

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Trip not found
  - 502: Remote store rejected every write shape or is unreachable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - service: The state machine these handlers drive
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/service"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.TripService

	// Backend identity, surfaced on /api/status.
	StorageMode string
	Degraded    bool
}

// NewHandler creates a handler over the given service.
func NewHandler(svc *service.TripService, storageMode string, degraded bool) *Handler {
	return &Handler{
		Service:     svc,
		StorageMode: storageMode,
		Degraded:    degraded,
	}
}

// =============================================================================
// TRIP ENDPOINTS
// =============================================================================

// ListTrips returns the full normalized trip list, newest first.
// GET /api/trips
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTripDTOs(h.Service.Trips()))
}

// CreateTrip records a new trip.
// POST /api/trips
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	stored, err := h.Service.Add(r.Context(), req.toRawTrip())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripDTO(stored))
}

// UpdateTrip replaces a trip record in full.
// PUT /api/trips/{id}
func (h *Handler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req TripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Service.Update(r.Context(), fleet.TripID(id), req.toRawTrip()); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// DeleteTrip removes a trip.
// DELETE /api/trips/{id}
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.Delete(r.Context(), fleet.TripID(id)); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PERIOD ENDPOINTS
// =============================================================================

func (h *Handler) periodDTO() PeriodDTO {
	month, year := h.Service.SelectedMonth()
	p := h.Service.Period()
	return PeriodDTO{
		Month: month,
		Year:  year,
		Start: p.Start.String(),
		End:   p.End.String(),
		Label: p.String(),
	}
}

// GetPeriod returns the selected billing window.
// GET /api/period
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.periodDTO())
}

// SelectPeriod sets the window by 0-indexed end month and year.
// PUT /api/period
func (h *Handler) SelectPeriod(w http.ResponseWriter, r *http.Request) {
	var req SelectPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.Service.SelectPeriod(req.Month, req.Year); err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	writeJSON(w, http.StatusOK, h.periodDTO())
}

// ShiftPeriod moves the window by one month in either direction.
// POST /api/period/shift
func (h *Handler) ShiftPeriod(w http.ResponseWriter, r *http.Request) {
	var req ShiftPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Direction != 1 && req.Direction != -1 {
		writeError(w, http.StatusBadRequest, "direction must be 1 or -1", nil)
		return
	}
	h.Service.ShiftPeriod(req.Direction)
	writeJSON(w, http.StatusOK, h.periodDTO())
}

// ListPeriodTrips returns the trips inside the selected window.
// GET /api/period/trips
func (h *Handler) ListPeriodTrips(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTripDTOs(h.Service.PeriodTrips()))
}

// GetPeriodStats returns the window totals with CN deductions applied.
// GET /api/period/stats
func (h *Handler) GetPeriodStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatsDTO(h.Service.Stats()))
}

// ListDays returns one summary row per day of the window, in order.
// GET /api/period/days
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	days := h.Service.Days()
	out := make([]DaySummaryDTO, len(days))
	for i, d := range days {
		out[i] = toDaySummaryDTO(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDay returns the summary for one date.
// GET /api/period/days/{date}
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date := fleet.ParseDate(chi.URLParam(r, "date"))
	writeJSON(w, http.StatusOK, toDaySummaryDTO(h.Service.Day(date)))
}

// =============================================================================
// YEARLY STATS
// =============================================================================

// GetYearlyStats returns calendar-year totals. CN deductions never apply.
// GET /api/stats/yearly?year=2025
func (h *Handler) GetYearlyStats(w http.ResponseWriter, r *http.Request) {
	yearStr := r.URL.Query().Get("year")
	if yearStr == "" {
		yearStr = strconv.Itoa(fleet.Today().Year())
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(h.Service.YearlyStats(year)))
}

// =============================================================================
// PAYROLL ENDPOINTS
// =============================================================================

// ListPayslips returns one slip per driver for the selected window.
// GET /api/payslips
func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	slips := h.Service.Slips()
	out := make([]SlipDTO, len(slips))
	for i, s := range slips {
		out[i] = toSlipDTO(s)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPayslip returns the slip for one driver.
// GET /api/payslips/{driver}
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	driver, err := url.PathUnescape(chi.URLParam(r, "driver"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid driver name", err)
		return
	}
	writeJSON(w, http.StatusOK, toSlipDTO(h.Service.Slip(driver)))
}

// ListDeductions returns the raw CN deduction entries.
// GET /api/deductions
func (h *Handler) ListDeductions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.RawDeductions())
}

// SetDeduction sets or clears the CN deduction for a driver. The raw
// input is stored as entered; blank and unparseable values count as zero.
// PUT /api/deductions/{driver}
func (h *Handler) SetDeduction(w http.ResponseWriter, r *http.Request) {
	driver, err := url.PathUnescape(chi.URLParam(r, "driver"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid driver name", err)
		return
	}

	var req DeductionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.Service.SetDeduction(r.Context(), driver, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save deduction", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.RawDeductions())
}

// =============================================================================
// PRESET ENDPOINTS
// =============================================================================

// ListPresets returns route presets sorted by route name.
// GET /api/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets := h.Service.Presets()
	out := make([]PresetDTO, 0, len(presets))
	for route, p := range presets {
		out = append(out, PresetDTO{
			Route: route,
			Price: p.Price.InexactFloat64(),
			Wage:  p.Wage.InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	writeJSON(w, http.StatusOK, out)
}

// DeletePreset removes a route preset.
// DELETE /api/presets/{route}
func (h *Handler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	route, err := url.PathUnescape(chi.URLParam(r, "route"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid route", err)
		return
	}
	if err := h.Service.DeletePreset(r.Context(), route); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportCSV streams the selected window's trips as CSV.
// GET /api/export/csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	period := h.Service.Period()
	trips := h.Service.PeriodTrips()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "trips-"+period.Start.String()+".csv"))

	cw := csv.NewWriter(w)
	cw.Write([]string{"date", "driver", "route", "price", "fuel", "wage",
		"maintenance", "basket", "basket_count", "basket_share",
		"staff_advance", "profit"})
	for _, t := range trips {
		cw.Write([]string{
			t.Date.String(),
			fleet.DisplayName(t.DriverName),
			t.Route,
			t.Price.String(),
			t.Fuel.String(),
			t.Wage.String(),
			t.Maintenance.String(),
			t.Basket.String(),
			strconv.Itoa(t.BasketCount),
			t.BasketShare.String(),
			t.StaffShare.String(),
			t.Profit.String(),
		})
	}
	cw.Flush()
}

// =============================================================================
// STATUS
// =============================================================================

// GetStatus reports the active storage backend and operator state.
// GET /api/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusDTO{
		StorageMode: h.StorageMode,
		Degraded:    h.Degraded,
		LastDriver:  h.Service.LastDriver(),
		TripCount:   len(h.Service.Trips()),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store failures onto HTTP statuses. Write-shape
// exhaustion and unreachable backends are the caller's cue to retry.
func writeStoreError(w http.ResponseWriter, err error) {
	var wf *fleet.WriteFailedError
	switch {
	case errors.Is(err, fleet.ErrTripNotFound):
		writeError(w, http.StatusNotFound, "trip not found", err)
	case errors.As(err, &wf):
		writeError(w, http.StatusBadGateway, "store rejected every write shape", err)
	case errors.Is(err, fleet.ErrStoreUnavailable):
		writeError(w, http.StatusBadGateway, "store unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "store operation failed", err)
	}
}
