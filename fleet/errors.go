package fleet

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTripNotFound is returned when an id does not match a stored trip.
	ErrTripNotFound = errors.New("trip not found")

	// ErrPayloadRejected is returned by an adapter that refuses a payload
	// shape (e.g. an unknown column). The caller retries with the next
	// candidate payload in the fallback list.
	ErrPayloadRejected = errors.New("payload shape rejected")

	// ErrStoreUnavailable is returned when the remote store cannot be
	// reached. The system degrades to the local store rather than halting.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// WriteFailedError reports that every candidate payload shape was
// rejected. The write requires a user retry; there is no automatic retry
// loop beyond the fixed attempt list.
type WriteFailedError struct {
	Attempts int
	Last     error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("write failed after %d payload attempts: %v", e.Attempts, e.Last)
}

func (e *WriteFailedError) Unwrap() error {
	return e.Last
}
