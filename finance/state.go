/*
state.go - Period freeze state machine

PURPOSE:
  Governs whether a period record may be mutated automatically. Two states,
  one caller-triggered transition:

      AUTO_SYNC  <-- Freeze/Unfreeze -->  FROZEN

  AUTO_SYNC (initial): the periodic trigger may refresh the CURRENT period
    (past periods are never auto-resynced).
  FROZEN: automatic triggers are suppressed. Manual edits remain possible
    and still re-aggregate; the explicit "resync now" action is the only way
    to force a refresh.

  There is no terminal state: periods can be frozen and unfrozen
  indefinitely, including retroactively for past reporting months.

The frozen flag is persisted on the record so every viewer of the same
period agrees on the state; this machine is the single gate the scheduler
consults before invoking the synchronizer or allocator.
*/
package finance

// SyncState is the automatic-refresh state of one period record.
type SyncState string

const (
	StateAutoSync SyncState = "auto_sync"
	StateFrozen   SyncState = "frozen"
)

// StateOf reads the record's current state.
func StateOf(record *ExpensePeriodRecord) SyncState {
	if record.Frozen {
		return StateFrozen
	}
	return StateAutoSync
}

// Freeze transitions the record to FROZEN. Idempotent.
func Freeze(record *ExpensePeriodRecord) {
	record.Frozen = true
}

// Unfreeze transitions the record back to AUTO_SYNC. Idempotent.
func Unfreeze(record *ExpensePeriodRecord) {
	record.Frozen = false
}

// AutoSyncAllowed is the gate for the periodic trigger: only the current
// period of an unfrozen record may be refreshed automatically. Manual
// "resync now" bypasses this gate entirely.
func AutoSyncAllowed(record *ExpensePeriodRecord, currentMonthNumber int) bool {
	return StateOf(record) == StateAutoSync && record.MonthNumber == currentMonthNumber
}
