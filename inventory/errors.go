/*
errors.go - Error kinds for the tool room ledger

ERROR KINDS:
  ErrNotFound              missing catalog item, ledger entry or person
  ErrLockTimeout           the global lock was not acquired within the bound
  ErrValidation            insufficient stock, invalid transition, bad input
  ErrStorage               backing store unreachable or rejected a write
  ErrSerializationOverflow cache payload too large; never surfaced to callers

  Structured errors unwrap to one of the kinds above, so callers classify with
  errors.Is and inspect details with errors.As.

BATCH SEMANTICS:
  Batches only fail outright on systemic errors (lock timeout, storage).
  Per-line problems become warnings or skips.

SEE ALSO:
  - api/handlers.go: maps kinds to HTTP status codes
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")

	// ErrLockTimeout is retryable: nothing was mutated.
	ErrLockTimeout = errors.New("lock not acquired in time")

	// ErrSerializationOverflow is returned by Cache.Set when an entry is too
	// large to cache. The engine downgrades it to a no-op.
	ErrSerializationOverflow = errors.New("cache entry too large")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "person", "operation", "catalog item"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError reports a quantity that no single unit can cover.
type InsufficientStockError struct {
	DisplayName string
	Serial      string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("%s: out of stock", e.DisplayName)
	}
	return fmt.Sprintf("%s: only %d left", e.DisplayName, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrValidation }

// InvalidTransitionError reports a status change the lifecycle forbids.
type InvalidTransitionError struct {
	OperationID string
	From        Status
	To          Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("operation %s is %s, cannot become %s", e.OperationID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the same call may succeed later unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// IsClientError returns true if the error is due to the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
