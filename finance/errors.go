/*
errors.go - Centralized error types for the period engine

PURPOSE:
  All engine error types in one place. Transport layers map these onto
  status codes; the scheduler maps sync failures onto a stale-data signal
  rather than blanking figures.

ERROR CATEGORIES:
  1. Period errors     - Malformed project dates (recovered, never fatal)
  2. Sync errors       - Collaborator unreachable; last-known record stands
  3. Store errors      - Persistence failed; nothing partial is committed
  4. Authorization     - Caller role insufficient for a mutating operation

PROPAGATION POLICY:
  Sync and allocation failures never corrupt stored values. They surface as
  warnings ("last synced at T, sync failed"); only direct user actions
  (manual save, manual resync, freeze toggle) report hard errors.
*/
package finance

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriodWindow is reported when project dates are missing or
	// malformed. Recovered locally by defaulting to a best-effort
	// current-month window; callers should log it, not fail on it.
	ErrInvalidPeriodWindow = errors.New("invalid period window: missing or malformed project dates")

	// ErrSyncUnavailable is returned when the usage-count or staff
	// collaborator is unreachable. The previously stored record is
	// returned unchanged.
	ErrSyncUnavailable = errors.New("sync unavailable: collaborator unreachable")

	// ErrPersistenceFailure is returned when the record store write failed.
	// No partial state is committed.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrProjectNotFound is returned when the referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrRecordNotFound is returned by stores when no record exists for a
	// (project, month) pair. The engine treats this as "initialize lazily",
	// not as a failure.
	ErrRecordNotFound = errors.New("period record not found")

	// ErrEditNotAllowed is returned when a viewer-role caller attempts a
	// mutating operation.
	ErrEditNotAllowed = errors.New("edit not allowed for caller role")

	// ErrUnknownField is returned by UpdateManualField for a field name the
	// record does not expose for manual editing.
	ErrUnknownField = errors.New("unknown manual field")

	// ErrInvalidValue is returned when a direct user edit carries a value
	// that cannot be parsed as a decimal amount. The stored figure is left
	// untouched; silent coercion to zero would destroy entered data.
	ErrInvalidValue = errors.New("invalid value: not a decimal amount")

	// ErrConcurrentModification is returned when the store detects two
	// concurrent writes to the same record. Recovery is re-aggregation
	// after the later write wins.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNoPreviousPeriod is returned by CopyFromPreviousPeriod for month 1
	// or when the prior period was never materialized.
	ErrNoPreviousPeriod = errors.New("no previous period to copy from")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SyncError reports a failed synchronization pass with enough context for
// the UI's "last synced at T, sync failed" indicator.
type SyncError struct {
	ProjectID    ProjectID
	MonthNumber  int
	LastSyncedAt time.Time
	Cause        error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for %s month %d: %v", e.ProjectID, e.MonthNumber, e.Cause)
}

func (e *SyncError) Unwrap() error { return ErrSyncUnavailable }

// StoreError wraps a record store failure.
type StoreError struct {
	Op    string // "load", "save", "list"
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return ErrPersistenceFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry. The engine
// never retries internally; the periodic trigger is the retry mechanism.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSyncUnavailable) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEditNotAllowed) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrNoPreviousPeriod) ||
		errors.Is(err, ErrProjectNotFound)
}

// IsWarning returns true for conditions the UI should render as a stale-data
// indicator instead of a hard error.
func IsWarning(err error) bool {
	return errors.Is(err, ErrSyncUnavailable) ||
		errors.Is(err, ErrInvalidPeriodWindow)
}
