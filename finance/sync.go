/*
sync.go - Dynamic expense synchronization

PURPOSE:
  Recomputes per-service usage line items (count x rate) from current
  content/task counts and merges them into the period record without
  discarding manual overrides.

MERGE CONTRACT:
  For every service reported by the usage source:
    - New service: entry is created with synced count/rate.
    - Existing entry whose count/rate still matches the last synced
      snapshot: both value and snapshot move to the fetched figures.
    - Existing entry that was hand-edited since the last sync (value
      diverges from snapshot): the manual count/rate are PRESERVED; only
      the snapshot and SyncedAt are refreshed. OverwriteManual discards
      the manual values instead (explicit re-pull).
  Entries the fetch didn't mention are left untouched - the merge is
  field-level, never a record replace.

IDEMPOTENCE:
  Two passes over unchanged usage counts produce identical records apart
  from SyncedAt timestamps.

ATOMICITY:
  The merge mutates a clone; nothing is persisted here. A fetch failure
  surfaces ErrSyncUnavailable and the stored record stands untouched.

LEGACY MIGRATION:
  Records predating the dynamic schema carry only SMMExpenses /
  ProductionExpenses rollups. The first sync derives one dynamic entry per
  non-zero legacy field and zeroes the legacy fields, so exactly one
  computation path stays live.

SEE ALSO:
  - engine.go: Orders fetch -> tag -> merge -> aggregate -> persist
  - aggregate.go: Recomputes totals after every merge
*/
package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SYNCHRONIZER
// =============================================================================

// SyncOptions controls the merge behavior of one synchronization pass.
type SyncOptions struct {
	// OverwriteManual discards hand-edited counts/rates and re-pulls the
	// collaborator's figures. Only the explicit "resync now" action sets it.
	OverwriteManual bool
}

// Synchronizer merges current service usage into period records.
type Synchronizer struct {
	Usage    UsageSource
	Registry *CategoryRegistry

	// Now is the clock used for SyncedAt stamps. Defaults to time.Now.
	Now func() time.Time
}

func NewSynchronizer(usage UsageSource, registry *CategoryRegistry) *Synchronizer {
	return &Synchronizer{Usage: usage, Registry: registry, Now: time.Now}
}

func (s *Synchronizer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Sync fetches usage for the record's window and returns a merged clone.
// The input record is not mutated; persistence is the caller's step.
func (s *Synchronizer) Sync(ctx context.Context, record *ExpensePeriodRecord, window BillingPeriod, opts SyncOptions) (*ExpensePeriodRecord, error) {
	usage, err := s.Usage.ServiceUsage(ctx, record.ProjectID, window)
	if err != nil {
		return nil, &SyncError{
			ProjectID:    record.ProjectID,
			MonthNumber:  record.MonthNumber,
			LastSyncedAt: record.LastSyncedAt,
			Cause:        err,
		}
	}

	merged := record.Clone()
	s.migrateLegacy(merged)

	now := s.now()
	for id, u := range usage {
		merged.DynamicExpenses[id] = s.mergeEntry(merged.DynamicExpenses[id], id, u, now, opts)
	}
	merged.LastSyncedAt = now
	return merged, nil
}

// mergeEntry applies the merge contract for one service line. The zero
// DynamicExpense (no prior entry) takes the fetched values wholesale.
func (s *Synchronizer) mergeEntry(existing DynamicExpense, id ServiceID, u UsageEntry, now time.Time, opts SyncOptions) DynamicExpense {
	entry := existing
	entry.ServiceID = id
	entry.ServiceName = u.ServiceName
	entry.Category = s.Registry.CategoryFor(u.ServiceName)

	preserveManual := existing.IsManuallyEdited() && !opts.OverwriteManual && !isZeroEntry(existing)
	if !preserveManual {
		entry.Count = u.Count
		entry.Rate = u.Rate
	}
	entry.SyncedCount = u.Count
	entry.SyncedRate = u.Rate
	entry.SyncedAt = now
	entry.RecomputeCost()
	return entry
}

// isZeroEntry guards the manual-edit check against the zero value returned
// by a map miss, which would otherwise look like an edit whenever the
// fetched count is non-zero.
func isZeroEntry(e DynamicExpense) bool {
	return e.ServiceID == "" && e.ServiceName == ""
}

// migrateLegacy crosses the migration boundary from the pre-dynamic schema:
// non-zero legacy rollups become one dynamic entry each, then the legacy
// fields are zeroed. Runs at most once per record.
func (s *Synchronizer) migrateLegacy(record *ExpensePeriodRecord) {
	if record.HasDynamicExpenses() {
		return
	}
	one := decimal.NewFromInt(1)
	if !record.SMMExpenses.IsZero() {
		e := DynamicExpense{
			ServiceID:   "legacy-smm",
			ServiceName: "SMM (legacy)",
			Category:    CategoryContent,
			Count:       one,
			Rate:        record.SMMExpenses,
			SyncedCount: one,
			SyncedRate:  record.SMMExpenses,
		}
		e.RecomputeCost()
		record.DynamicExpenses[e.ServiceID] = e
		record.SMMExpenses = ZeroMoney()
	}
	if !record.ProductionExpenses.IsZero() {
		e := DynamicExpense{
			ServiceID:   "legacy-production",
			ServiceName: "Production (legacy)",
			Category:    CategoryProduction,
			Count:       one,
			Rate:        record.ProductionExpenses,
			SyncedCount: one,
			SyncedRate:  record.ProductionExpenses,
		}
		e.RecomputeCost()
		record.DynamicExpenses[e.ServiceID] = e
		record.ProductionExpenses = ZeroMoney()
	}
}
