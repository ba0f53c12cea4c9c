/*
store.go - Persistence adapter contract

PURPOSE:
  Defines the interface between the engine and durable storage. The
  adapter owns id assignment, retrieval, and change notification for trip
  records and route presets. Implementations exist for a remote
  PostgREST-style API, local SQLite, and in-memory (degraded mode).

SCHEMA-TOLERANT WRITES:
  The remote schema has drifted over time and its exact column set is not
  known up front. Remote writes therefore go through an ORDERED LIST of
  candidate payload shapes, from most to least specific, tried in sequence
  until one is accepted. The bare minimum shape {date, route, price, fuel,
  wage, profit} must eventually succeed for a write to be considered
  durable. Which attempt succeeded is logged; the possibility that all
  fail is surfaced to the caller, never hidden. Local stores accept the
  canonical record directly and never reject a shape.

LEGACY COLUMN MAPPING:
  On the remote side the staff_share column stores the BASKET share and
  the advance column stores the staff advance. The payload builders keep
  that mapping. On read, Normalize recovers the staff advance from the
  advance column; the basket share is only recovered from schemas with a
  basket_share column, which is why update payloads write it as well.

KEY-VALUE PORT:
  Small pieces of operator state (the CN deduction map, the last-used
  driver name) go through an explicit KV port: read once at startup,
  written on every mutation.

SEE ALSO:
  - store/memory.go: In-memory implementation (degraded mode)
  - store/sqlite: Durable local implementation
  - store/postgrest: Remote implementation
*/
package fleet

import "context"

// =============================================================================
// STORE - Adapter contract for trips and route presets
// =============================================================================

// Store handles persistence of trip records and route presets. Raw records
// returned by reads are in whatever shape the backend holds; callers
// normalize. Order of FetchAll results is unspecified.
type Store interface {
	// FetchAll returns every stored trip record.
	FetchAll(ctx context.Context) ([]RawTrip, error)

	// FetchPresets returns route presets keyed by route name.
	FetchPresets(ctx context.Context) (map[string]RoutePreset, error)

	// Insert stores one trip record and returns the stored record with
	// the assigned id. Implementations facing an unknown remote schema
	// negotiate the wire shape internally via InsertPayloads, returning a
	// *WriteFailedError when every candidate shape is rejected.
	Insert(ctx context.Context, record RawTrip) (RawTrip, error)

	// Update replaces the record with the given id. Full-record updates
	// only; there are no partial-field patches. Shape negotiation as for
	// Insert, via UpdatePayloads.
	Update(ctx context.Context, id TripID, record RawTrip) error

	// Delete removes the record with the given id.
	Delete(ctx context.Context, id TripID) error

	// DeletePreset removes a route preset by route name.
	DeletePreset(ctx context.Context, route string) error
}

// Notifier is implemented by stores that can signal that trip data changed
// (a remote insert/update/delete, or a local write). A notification
// triggers a full re-fetch; no incremental update path exists.
type Notifier interface {
	// Subscribe registers a callback and returns a stop function.
	Subscribe(fn func()) (stop func())
}

// =============================================================================
// KEY-VALUE PORT - Operator state
// =============================================================================

// Well-known KV keys.
const (
	KeyCNDeductions = "cn_deductions"    // JSON object: driver name -> amount
	KeyLastDriver   = "last_driver_name" // free text
)

// KV is a small persistence port for operator state. Get returns the empty
// string for a missing key.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// =============================================================================
// CANDIDATE PAYLOAD BUILDERS
// =============================================================================

func basePayload(t Trip) RawTrip {
	return RawTrip{
		"date":   t.Date.String(),
		"route":  t.Route,
		"price":  t.Price,
		"fuel":   t.Fuel,
		"wage":   t.Wage,
		"profit": t.Profit,
	}
}

func withFinancials(p RawTrip, t Trip) RawTrip {
	p["basket"] = t.Basket
	p["maintenance"] = t.Maintenance
	p["staff_share"] = t.BasketShare // legacy column mapping, see file header
	p["advance"] = t.StaffShare
	return p
}

// InsertPayloads returns the ordered candidate payloads for inserting a
// trip, from most specific to the bare minimum shape.
func InsertPayloads(t Trip) []RawTrip {
	full := func(driverKey string) RawTrip {
		p := withFinancials(basePayload(t), t)
		p[driverKey] = t.DriverName
		p["basket_count"] = t.BasketCount
		return p
	}
	named := func(driverKey string) RawTrip {
		p := withFinancials(basePayload(t), t)
		p[driverKey] = t.DriverName
		return p
	}
	return []RawTrip{
		full("driver_name"),
		full("driverName"),
		named("name"),
		named("driver"),
		withFinancials(basePayload(t), t),
		basePayload(t),
	}
}

// UpdatePayloads returns the ordered candidate payloads for a full-record
// update.
func UpdatePayloads(t Trip) []RawTrip {
	full := func(driverKey string) RawTrip {
		p := withFinancials(basePayload(t), t)
		p[driverKey] = t.DriverName
		p["basket_share"] = t.BasketShare
		p["basket_count"] = t.BasketCount
		return p
	}
	return []RawTrip{
		full("driverName"),
		full("driver_name"),
		withFinancials(basePayload(t), t),
		basePayload(t),
	}
}
