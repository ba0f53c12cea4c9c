/*
seed.go - Demo data loader

PURPOSE:
  Populates the store with a small realistic data set so the dashboard
  has something to show on first run. Covers two drivers across one
  billing window, including a basket-heavy trip and a staff advance.

USAGE:
  POST /api/demo/seed

SEE ALSO:
  - handlers.go: The endpoints that read this data back
*/
package api

import (
	"net/http"

	"github.com/warp/fleet-engine/fleet"
)

// demoTrips returns the seed records, dated inside the window containing
// the given date so the default view is populated.
func demoTrips(anchor fleet.Date) []fleet.RawTrip {
	day := func(offset int) string { return anchor.AddDays(offset).String() }

	return []fleet.RawTrip{
		{
			"date": day(0), "driverName": "Kofi", "route": "Tema - Accra",
			"price": 2400, "fuel": 400, "wage": 300, "maintenance": 150,
			"basket": 600, "basketCount": 95, "basketShare": 400,
		},
		{
			"date": day(0), "driverName": "Yaw", "route": "Kumasi - Accra",
			"price": 3100, "fuel": 650, "wage": 350,
			"basket": 1000, "basketCount": 110, "basketShare": 700,
		},
		{
			"date": day(1), "driverName": "Kofi", "route": "Tema - Accra",
			"price": 2400, "fuel": 420, "wage": 300,
			"staffShare": 200,
		},
		{
			"date": day(2), "driverName": "Yaw", "route": "Takoradi - Accra",
			"price": 2800, "fuel": 700, "wage": 350, "maintenance": 90,
		},
		{
			// No driver recorded; lands under the unspecified bucket.
			"date": day(3), "route": "Tema - Accra",
			"price": 2400, "fuel": 410, "wage": 300,
		},
	}
}

// SeedDemo inserts the demo records through the normal write path.
// POST /api/demo/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	anchor := h.Service.Period().Start

	inserted := 0
	for _, raw := range demoTrips(anchor) {
		if _, err := h.Service.Add(r.Context(), raw); err != nil {
			writeStoreError(w, err)
			return
		}
		inserted++
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}
