/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary fields cross the wire as JSON numbers. Internally every amount
  is a decimal; the conversion happens only at this boundary, in the DTO
  mappers.

SEE ALSO:
  - handlers.go: Uses these types
  - fleet/types.go: Domain model
*/
package api

import (
	"github.com/warp/fleet-engine/fleet"
	"github.com/warp/fleet-engine/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TripDTO represents a normalized trip in API responses.
type TripDTO struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	DriverName  string  `json:"driver_name"`
	Route       string  `json:"route"`
	Price       float64 `json:"price"`
	Fuel        float64 `json:"fuel"`
	Wage        float64 `json:"wage"`
	Maintenance float64 `json:"maintenance"`
	Basket      float64 `json:"basket"`
	BasketCount int     `json:"basket_count"`
	BasketShare float64 `json:"basket_share"`
	StaffShare  float64 `json:"staff_share"`
	Profit      float64 `json:"profit"`
}

// TripRequest is the request body for creating or updating a trip.
// Every field is optional; missing amounts default to zero and a missing
// driver name falls back to the unspecified sentinel downstream.
type TripRequest struct {
	Date        string   `json:"date"`
	DriverName  string   `json:"driver_name"`
	Route       string   `json:"route"`
	Price       *float64 `json:"price,omitempty"`
	Fuel        *float64 `json:"fuel,omitempty"`
	Wage        *float64 `json:"wage,omitempty"`
	Maintenance *float64 `json:"maintenance,omitempty"`
	Basket      *float64 `json:"basket,omitempty"`
	BasketCount *int     `json:"basket_count,omitempty"`
	BasketShare *float64 `json:"basket_share,omitempty"`
	StaffShare  *float64 `json:"staff_share,omitempty"`
}

// PeriodDTO describes the selected billing window.
type PeriodDTO struct {
	Month int    `json:"month"` // 0-indexed end month
	Year  int    `json:"year"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// SelectPeriodRequest sets the billing window.
type SelectPeriodRequest struct {
	Month int `json:"month"` // 0-indexed
	Year  int `json:"year"`
}

// ShiftPeriodRequest moves the window by one month.
type ShiftPeriodRequest struct {
	Direction int `json:"direction"` // +1 or -1
}

// StatsDTO is the aggregated view of a set of trips. total_basket is the
// basket share paid out, not raw basket revenue.
type StatsDTO struct {
	TotalTrips        int     `json:"total_trips"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalWages        float64 `json:"total_wages"`
	TotalFuel         float64 `json:"total_fuel"`
	TotalMaintenance  float64 `json:"total_maintenance"`
	TotalBasket       float64 `json:"total_basket"`
	TotalStaffAdvance float64 `json:"total_staff_advance"`
	TotalProfit       float64 `json:"total_profit"`
	TotalRemainingPay float64 `json:"total_remaining_pay"`
}

// DaySummaryDTO is one row of the per-day table.
type DaySummaryDTO struct {
	Date        string    `json:"date"`
	Route       string    `json:"route"`
	DriverName  string    `json:"driver_name"`
	Price       float64   `json:"price"`
	Fuel        float64   `json:"fuel"`
	Wage        float64   `json:"wage"`
	Maintenance float64   `json:"maintenance"`
	Basket      float64   `json:"basket"`
	BasketShare float64   `json:"basket_share"`
	StaffShare  float64   `json:"staff_share"`
	Profit      float64   `json:"profit"`
	Count       int       `json:"count"`
	Items       []TripDTO `json:"items"`
}

// SlipLineDTO is one contributing trip on a payroll slip.
type SlipLineDTO struct {
	Date        string  `json:"date"`
	Route       string  `json:"route"`
	Wage        float64 `json:"wage"`
	BasketShare float64 `json:"basket_share"`
	Advance     float64 `json:"advance"`
}

// SlipDTO is the rendered payroll slip for one driver.
type SlipDTO struct {
	DriverName       string        `json:"driver_name"`
	PeriodLabel      string        `json:"period_label"`
	Lines            []SlipLineDTO `json:"lines"`
	TotalWage        float64       `json:"total_wage"`
	TotalBasketShare float64       `json:"total_basket_share"`
	TotalAdvance     float64       `json:"total_advance"`
	Allowance        float64       `json:"allowance"`
	CNDeduction      float64       `json:"cn_deduction"`
	NetPay           float64       `json:"net_pay"`
}

// PresetDTO is a route preset.
type PresetDTO struct {
	Route string  `json:"route"`
	Price float64 `json:"price"`
	Wage  float64 `json:"wage"`
}

// DeductionRequest sets the CN deduction for a driver. Value is the raw
// operator input; an empty string clears the entry.
type DeductionRequest struct {
	Value string `json:"value"`
}

// StatusDTO reports backend health and operator state.
type StatusDTO struct {
	StorageMode string `json:"storage_mode"`
	Degraded    bool   `json:"degraded"`
	LastDriver  string `json:"last_driver"`
	TripCount   int    `json:"trip_count"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DTO MAPPERS
// =============================================================================

func toTripDTO(t fleet.Trip) TripDTO {
	return TripDTO{
		ID:          string(t.ID),
		Date:        t.Date.String(),
		DriverName:  fleet.DisplayName(t.DriverName),
		Route:       t.Route,
		Price:       t.Price.InexactFloat64(),
		Fuel:        t.Fuel.InexactFloat64(),
		Wage:        t.Wage.InexactFloat64(),
		Maintenance: t.Maintenance.InexactFloat64(),
		Basket:      t.Basket.InexactFloat64(),
		BasketCount: t.BasketCount,
		BasketShare: t.BasketShare.InexactFloat64(),
		StaffShare:  t.StaffShare.InexactFloat64(),
		Profit:      t.Profit.InexactFloat64(),
	}
}

func toTripDTOs(trips []fleet.Trip) []TripDTO {
	out := make([]TripDTO, len(trips))
	for i, t := range trips {
		out[i] = toTripDTO(t)
	}
	return out
}

func toStatsDTO(s fleet.Stats) StatsDTO {
	return StatsDTO{
		TotalTrips:        s.TotalTrips,
		TotalRevenue:      s.TotalRevenue.InexactFloat64(),
		TotalWages:        s.TotalWages.InexactFloat64(),
		TotalFuel:         s.TotalFuel.InexactFloat64(),
		TotalMaintenance:  s.TotalMaintenance.InexactFloat64(),
		TotalBasket:       s.TotalBasket.InexactFloat64(),
		TotalStaffAdvance: s.TotalStaffAdvance.InexactFloat64(),
		TotalProfit:       s.TotalProfit.InexactFloat64(),
		TotalRemainingPay: s.TotalRemainingPay.InexactFloat64(),
	}
}

func toDaySummaryDTO(d fleet.DaySummary) DaySummaryDTO {
	return DaySummaryDTO{
		Date:        d.Date.String(),
		Route:       d.Route,
		DriverName:  d.DriverName,
		Price:       d.Price.InexactFloat64(),
		Fuel:        d.Fuel.InexactFloat64(),
		Wage:        d.Wage.InexactFloat64(),
		Maintenance: d.Maintenance.InexactFloat64(),
		Basket:      d.Basket.InexactFloat64(),
		BasketShare: d.BasketShare.InexactFloat64(),
		StaffShare:  d.StaffShare.InexactFloat64(),
		Profit:      d.Profit.InexactFloat64(),
		Count:       d.Count,
		Items:       toTripDTOs(d.Items),
	}
}

func toSlipDTO(s payroll.Slip) SlipDTO {
	lines := make([]SlipLineDTO, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = SlipLineDTO{
			Date:        l.Date.String(),
			Route:       l.Route,
			Wage:        l.Wage.InexactFloat64(),
			BasketShare: l.BasketShare.InexactFloat64(),
			Advance:     l.Advance.InexactFloat64(),
		}
	}
	return SlipDTO{
		DriverName:       s.DriverName,
		PeriodLabel:      s.PeriodLabel,
		Lines:            lines,
		TotalWage:        s.TotalWage.InexactFloat64(),
		TotalBasketShare: s.TotalBasketShare.InexactFloat64(),
		TotalAdvance:     s.TotalAdvance.InexactFloat64(),
		Allowance:        s.Allowance.InexactFloat64(),
		CNDeduction:      s.CNDeduction.InexactFloat64(),
		NetPay:           s.NetPay.InexactFloat64(),
	}
}

// toRawTrip converts a request body into the canonical raw record the
// store accepts. Only fields the client sent are included, so zero and
// absent stay distinguishable for counts.
func (req TripRequest) toRawTrip() fleet.RawTrip {
	raw := fleet.RawTrip{
		"date":       req.Date,
		"driverName": req.DriverName,
		"route":      req.Route,
	}
	setIf := func(key string, v *float64) {
		if v != nil {
			raw[key] = *v
		}
	}
	setIf("price", req.Price)
	setIf("fuel", req.Fuel)
	setIf("wage", req.Wage)
	setIf("maintenance", req.Maintenance)
	setIf("basket", req.Basket)
	setIf("basketShare", req.BasketShare)
	setIf("staffShare", req.StaffShare)
	if req.BasketCount != nil {
		raw["basketCount"] = *req.BasketCount
	}
	return raw
}
