package core

import "errors"

var (
	// ErrUnknownAction indicates an action id absent from the catalog.
	// Caller error; not retryable.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidAccount indicates an empty or unresolvable account id.
	ErrInvalidAccount = errors.New("invalid account id")

	// ErrConflict indicates the atomic balance update could not complete
	// after bounded retry. Transient; no partial state was written.
	ErrConflict = errors.New("concurrent balance update conflict")

	// ErrStorageUnavailable indicates the ledger store could not be reached.
	ErrStorageUnavailable = errors.New("ledger store unavailable")
)

// ReasonDuplicateSuppressed is the non-error outcome of an award rejected by
// the cooldown guard.
const ReasonDuplicateSuppressed = "duplicate-suppressed"
