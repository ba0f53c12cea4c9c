/*
Package postgrest provides the remote Store implementation.

PURPOSE:
  Talks to a hosted PostgREST-style API (the deployment uses a Supabase
  project) holding the trips and route_presets tables. This is the store
  whose schema has drifted across deployments: column names for the
  driver and share fields vary, so writes negotiate the payload shape.

WRITE NEGOTIATION:
  Insert and Update walk the ordered candidate payload lists from the
  fleet package, most specific first. A response indicating an unknown
  column counts as a shape rejection and moves to the next candidate;
  any other failure aborts. The attempt that succeeded is logged so
  operators can see which schema the remote actually has. If every
  candidate fails, the write surfaces as a *fleet.WriteFailedError -
  the caller reports it for user retry, with no automatic retry loop.

CHANGE NOTIFICATION:
  The hosted service can push changes over a websocket channel; this
  adapter polls instead. Each poll fetches the id set and fires the
  callback only when it differs from the previous poll.

SEE ALSO:
  - fleet/store.go: Contract and candidate payload builders
  - factory: Wraps this store with the degraded-mode fallback
*/
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fleet-engine/fleet"
)

const defaultPollInterval = 15 * time.Second

// Client implements fleet.Store and fleet.Notifier against a PostgREST
// endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	http         *http.Client
	logger       *slog.Logger
	pollInterval time.Duration

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
	polling bool
	stopCh  chan struct{}
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPollInterval overrides the change-poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New creates a remote store client. baseURL is the project root
// (e.g. https://xyz.supabase.co); the REST prefix is appended here.
func New(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/") + "/rest/v1",
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 10 * time.Second},
		logger:       logger.With("component", "postgrest"),
		pollInterval: defaultPollInterval,
		subs:         make(map[int]func()),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping verifies the remote is reachable and the trips table answers.
// The factory probes this once at startup to decide between remote and
// degraded local operation.
func (c *Client) Ping(ctx context.Context) error {
	var out []map[string]any
	if err := c.get(ctx, "/trips?select=id&limit=1", &out); err != nil {
		return fmt.Errorf("%w: %v", fleet.ErrStoreUnavailable, err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// FetchAll returns every remote trip record, newest date first.
func (c *Client) FetchAll(ctx context.Context) ([]fleet.RawTrip, error) {
	var rows []map[string]any
	if err := c.get(ctx, "/trips?select=*&order=date.desc", &rows); err != nil {
		return nil, err
	}
	result := make([]fleet.RawTrip, len(rows))
	for i, row := range rows {
		result[i] = fleet.RawTrip(row)
	}
	return result, nil
}

// FetchPresets returns route presets keyed by route name.
func (c *Client) FetchPresets(ctx context.Context) (map[string]fleet.RoutePreset, error) {
	var rows []map[string]any
	if err := c.get(ctx, "/route_presets?select=*", &rows); err != nil {
		return nil, err
	}
	presets := make(map[string]fleet.RoutePreset, len(rows))
	for _, row := range rows {
		route, _ := row["route"].(string)
		if route == "" {
			continue
		}
		presets[route] = fleet.RoutePreset{
			Price: fleet.ParseMoney(row["price"]),
			Wage:  fleet.ParseMoney(row["wage"]),
		}
	}
	return presets, nil
}

// =============================================================================
// WRITES - Schema-tolerant negotiation
// =============================================================================

// Insert writes a trip, walking the candidate payload shapes until the
// remote accepts one.
func (c *Client) Insert(ctx context.Context, record fleet.RawTrip) (fleet.RawTrip, error) {
	t := fleet.Normalize(record)
	attempts := fleet.InsertPayloads(t)

	var last error
	for i, payload := range attempts {
		stored, err := c.insertOnce(ctx, payload)
		if err == nil {
			c.logger.Info("insert accepted", "attempt", i+1, "of", len(attempts))
			return stored, nil
		}
		last = err
		if !isShapeRejection(err) {
			return nil, err
		}
		c.logger.Debug("insert payload rejected, trying next shape", "attempt", i+1)
	}
	return nil, &fleet.WriteFailedError{Attempts: len(attempts), Last: last}
}

// Update replaces a record, negotiating the payload shape like Insert.
func (c *Client) Update(ctx context.Context, id fleet.TripID, record fleet.RawTrip) error {
	t := fleet.Normalize(record)
	attempts := fleet.UpdatePayloads(t)

	var last error
	for i, payload := range attempts {
		err := c.writeOnce(ctx, http.MethodPatch, "/trips?id=eq."+url.QueryEscape(id), payload)
		if err == nil {
			c.logger.Info("update accepted", "attempt", i+1, "of", len(attempts))
			return nil
		}
		last = err
		if !isShapeRejection(err) {
			return err
		}
	}
	return &fleet.WriteFailedError{Attempts: len(attempts), Last: last}
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, id fleet.TripID) error {
	return c.writeOnce(ctx, http.MethodDelete, "/trips?id=eq."+url.QueryEscape(id), nil)
}

// DeletePreset removes a route preset.
func (c *Client) DeletePreset(ctx context.Context, route string) error {
	return c.writeOnce(ctx, http.MethodDelete, "/route_presets?route=eq."+url.QueryEscape(route), nil)
}

func (c *Client) insertOnce(ctx context.Context, payload fleet.RawTrip) (fleet.RawTrip, error) {
	body, err := json.Marshal([]map[string]any{wirePayload(payload)})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/trips", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", fleet.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no representation")
	}
	return fleet.RawTrip(rows[0]), nil
}

func (c *Client) writeOnce(ctx context.Context, method, path string, payload fleet.RawTrip) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(wirePayload(payload))
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fleet.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return classifyStatus(resp)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", fleet.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// classifyStatus maps an HTTP response to the store error taxonomy. A 400
// from PostgREST on a write almost always means an unknown column
// (PGRST204), which is exactly the shape-rejection case.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		return fleet.ErrPayloadRejected
	case resp.StatusCode == http.StatusNotFound:
		return fleet.ErrTripNotFound
	default:
		return fmt.Errorf("remote store returned %s", resp.Status)
	}
}

func isShapeRejection(err error) bool {
	return errors.Is(err, fleet.ErrPayloadRejected)
}

// wirePayload converts decimal values to JSON numbers for numeric
// columns; everything else passes through.
func wirePayload(payload fleet.RawTrip) map[string]any {
	wire := make(map[string]any, len(payload))
	for k, v := range payload {
		if d, ok := v.(decimal.Decimal); ok {
			wire[k], _ = d.Float64()
			continue
		}
		wire[k] = v
	}
	return wire
}

// =============================================================================
// CHANGE POLLING
// =============================================================================

// Subscribe registers a change callback. The first subscriber starts the
// poll loop; the loop stops when the last subscriber cancels.
func (c *Client) Subscribe(fn func()) (stop func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	if !c.polling {
		c.polling = true
		c.stopCh = make(chan struct{})
		go c.poll(c.stopCh)
	}
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		if len(c.subs) == 0 && c.polling {
			c.polling = false
			close(c.stopCh)
		}
		c.subMu.Unlock()
	}
}

func (c *Client) poll(stopCh chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// An empty table fingerprints to "", so the baseline poll is tracked
	// explicitly rather than inferred from the fingerprint value.
	var lastFingerprint string
	primed := false
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.pollInterval)
			fingerprint, err := c.fingerprint(ctx)
			cancel()
			if err != nil {
				c.logger.Warn("change poll failed", "error", err)
				continue
			}
			if primed && fingerprint != lastFingerprint {
				c.notify()
			}
			lastFingerprint = fingerprint
			primed = true
		}
	}
}

// fingerprint summarizes the remote id set; any insert/update/delete
// changes it. Updates are caught by including the date column.
func (c *Client) fingerprint(ctx context.Context) (string, error) {
	var rows []map[string]any
	if err := c.get(ctx, "/trips?select=id,date", &rows); err != nil {
		return "", err
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, fmt.Sprintf("%v@%v", row["id"], row["date"]))
	}
	sort.Strings(keys)
	return strings.Join(keys, "|"), nil
}

func (c *Client) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
