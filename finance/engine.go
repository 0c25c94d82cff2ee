/*
engine.go - Period engine facade

PURPOSE:
  The single entry point the transport layer talks to. Wires the period
  calculator, synchronizer, labor allocator, aggregator and freeze gate
  over the record store and collaborator sources.

OPERATIONS (the service contract):
  GetOrInitPeriod        Lazily materialize + return a period record
  SyncNow                Manual fetch-merge-aggregate-persist pass
  AutoSync               Scheduler pass, gated by freeze state + currency
  UpdateManualField      Edit a manual numeric/text field, re-aggregate
  UpdateServiceLine      Edit one service's count/rate by hand
  SetFrozen              Toggle the freeze state
  CopyFromPreviousPeriod Seed a period from the prior month's lines
  ListPeriods            All stored records for a project, re-aggregated

ORDERING:
  Within one sync pass: fetch -> category-tag -> merge -> allocate ->
  aggregate -> persist, strictly sequential. Aggregation never runs on a
  partially fetched snapshot. A failed pass leaves the stored record
  entirely untouched; the engine never retries internally (the periodic
  trigger is the retry).

SEE ALSO:
  - api/handlers.go: HTTP surface over these operations
  - api/scheduler.go: Periodic trigger driving AutoSync
*/
package finance

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Projects ProjectSource
	Records  RecordStore
	Calc     PeriodCalculator
	Sync     *Synchronizer
	Labor    *LaborAllocator
	Registry *CategoryRegistry
}

// NewEngine wires an engine over the given collaborators.
func NewEngine(projects ProjectSource, records RecordStore, usage UsageSource, staff StaffSource, categories CategorySource) *Engine {
	registry := NewCategoryRegistry(categories)
	return &Engine{
		Projects: projects,
		Records:  records,
		Sync:     NewSynchronizer(usage, registry),
		Labor:    NewLaborAllocator(staff),
		Registry: registry,
	}
}

// =============================================================================
// READ / INIT
// =============================================================================

// GetOrInitPeriod loads the record for (project, monthNumber), creating a
// zeroed one on first view. Derived fields are recomputed on the way out.
func (e *Engine) GetOrInitPeriod(ctx context.Context, projectID ProjectID, monthNumber int) (*ExpensePeriodRecord, error) {
	record, _, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, err
	}
	return Aggregate(record), nil
}

// CurrentPeriodNumber resolves which period number today falls into for
// the project.
func (e *Engine) CurrentPeriodNumber(ctx context.Context, projectID ProjectID) (int, error) {
	project, err := e.Projects.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return e.Calc.CurrentPeriodNumber(project.StartDate, Today()), nil
}

// ListPeriods returns every stored record for the project ordered by month
// number, each with derived fields recomputed.
func (e *Engine) ListPeriods(ctx context.Context, projectID ProjectID) ([]*ExpensePeriodRecord, error) {
	records, err := e.Records.ListPeriods(ctx, projectID)
	if err != nil {
		return nil, &StoreError{Op: "list", Cause: err}
	}
	for _, r := range records {
		Aggregate(r)
	}
	return records, nil
}

// =============================================================================
// SYNCHRONIZATION
// =============================================================================

// SyncNow runs a full manual synchronization pass. Allowed regardless of
// freeze state; this is the only refresh path for frozen periods.
func (e *Engine) SyncNow(ctx context.Context, projectID ProjectID, monthNumber int, opts SyncOptions) (*ExpensePeriodRecord, error) {
	record, window, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, err
	}
	return e.runPass(ctx, record, window, opts)
}

// AutoSync is the scheduler entry point. It refreshes only the current
// period of an unfrozen record; otherwise the stored record is returned
// unchanged with refreshed=false.
func (e *Engine) AutoSync(ctx context.Context, projectID ProjectID, monthNumber int) (record *ExpensePeriodRecord, refreshed bool, err error) {
	record, window, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, false, err
	}

	project, err := e.Projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, false, err
	}
	current := e.Calc.CurrentPeriodNumber(project.StartDate, Today())
	if !AutoSyncAllowed(record, current) {
		return Aggregate(record), false, nil
	}

	merged, err := e.runPass(ctx, record, window, SyncOptions{})
	if err != nil {
		// Non-fatal to the caller: last-known record stands, the UI shows
		// the stale-data indicator off LastSyncedAt.
		return Aggregate(record), false, err
	}
	return merged, true, nil
}

// runPass executes one strictly sequential fetch-merge-allocate-aggregate-
// persist cycle. All-or-nothing: any failure leaves the stored record
// untouched.
func (e *Engine) runPass(ctx context.Context, record *ExpensePeriodRecord, window BillingPeriod, opts SyncOptions) (*ExpensePeriodRecord, error) {
	merged, err := e.Sync.Sync(ctx, record, window, opts)
	if err != nil {
		return nil, err
	}

	shares, err := e.Labor.Allocate(ctx, record.ProjectID)
	if err != nil {
		return nil, err
	}
	merged.FOTCalculations = shares

	Aggregate(merged)

	if err := e.Records.SavePeriod(ctx, merged); err != nil {
		return nil, &StoreError{Op: "save", Cause: err}
	}
	return merged, nil
}

// =============================================================================
// MANUAL EDITS
// =============================================================================

// Manual field names accepted by UpdateManualField.
const (
	FieldRevenue            = "revenue"
	FieldModelsExpenses     = "modelsExpenses"
	FieldOtherExpenses      = "otherExpenses"
	FieldOtherDescription   = "otherDescription"
	FieldSMMExpenses        = "smmExpenses"
	FieldProductionExpenses = "productionExpenses"
)

// UpdateManualField edits one manually entered field and re-aggregates.
// Allowed in either freeze state; manual edits always pass through the
// aggregator so totals stay consistent.
func (e *Engine) UpdateManualField(ctx context.Context, projectID ProjectID, monthNumber int, field string, value string) (*ExpensePeriodRecord, error) {
	record, _, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, err
	}

	if field == FieldOtherDescription {
		record.OtherDescription = value
	} else {
		// Money fields: a malformed value is rejected outright so the
		// previously entered figure survives.
		amount, err := ParseMoney(value)
		if err != nil {
			return nil, err
		}
		switch field {
		case FieldRevenue:
			record.Revenue = amount
		case FieldModelsExpenses:
			record.ModelsExpenses = amount
		case FieldOtherExpenses:
			record.OtherExpenses = amount
		case FieldSMMExpenses:
			record.SMMExpenses = amount
		case FieldProductionExpenses:
			record.ProductionExpenses = amount
		default:
			return nil, ErrUnknownField
		}
	}

	Aggregate(record)
	if err := e.Records.SavePeriod(ctx, record); err != nil {
		return nil, &StoreError{Op: "save", Cause: err}
	}
	return record, nil
}

// UpdateServiceLine hand-edits one service's count and/or rate. The synced
// snapshot is left alone, so the divergence marks the line as manually
// edited and the next automatic pass preserves it.
func (e *Engine) UpdateServiceLine(ctx context.Context, projectID ProjectID, monthNumber int, serviceID ServiceID, count *decimal.Decimal, rate *Money) (*ExpensePeriodRecord, error) {
	record, _, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, err
	}

	entry, ok := record.DynamicExpenses[serviceID]
	if !ok {
		entry = DynamicExpense{ServiceID: serviceID, ServiceName: string(serviceID)}
	}
	if count != nil {
		entry.Count = *count
	}
	if rate != nil {
		entry.Rate = *rate
	}
	if entry.Category == "" {
		entry.Category = e.Registry.CategoryFor(entry.ServiceName)
	}
	entry.RecomputeCost()
	record.DynamicExpenses[serviceID] = entry

	Aggregate(record)
	if err := e.Records.SavePeriod(ctx, record); err != nil {
		return nil, &StoreError{Op: "save", Cause: err}
	}
	return record, nil
}

// =============================================================================
// FREEZE / COPY
// =============================================================================

// SetFrozen toggles the freeze state for one period. Freezing suspends
// automatic refresh only; manual edits and SyncNow still work.
func (e *Engine) SetFrozen(ctx context.Context, projectID ProjectID, monthNumber int, frozen bool) error {
	record, _, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return err
	}
	if frozen {
		Freeze(record)
	} else {
		Unfreeze(record)
	}
	if err := e.Records.SavePeriod(ctx, record); err != nil {
		return &StoreError{Op: "save", Cause: err}
	}
	return nil
}

// CopyFromPreviousPeriod seeds the target period with the prior month's
// service lines. Copied counts/rates are NOT marked as synced - they carry
// empty snapshots, so they behave like manual entries until the next
// explicit re-pull. Revenue starts at zero.
func (e *Engine) CopyFromPreviousPeriod(ctx context.Context, projectID ProjectID, monthNumber int) (*ExpensePeriodRecord, error) {
	if monthNumber <= 1 {
		return nil, ErrNoPreviousPeriod
	}
	prev, err := e.Records.LoadPeriod(ctx, projectID, monthNumber-1)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoPreviousPeriod
		}
		return nil, &StoreError{Op: "load", Cause: err}
	}

	record, _, err := e.loadOrInit(ctx, projectID, monthNumber)
	if err != nil {
		return nil, err
	}

	for id, src := range prev.DynamicExpenses {
		entry := DynamicExpense{
			ServiceID:   id,
			ServiceName: src.ServiceName,
			Category:    src.Category,
			Count:       src.Count,
			Rate:        src.Rate,
		}
		entry.RecomputeCost()
		record.DynamicExpenses[id] = entry
	}
	record.Revenue = ZeroMoney()

	Aggregate(record)
	if err := e.Records.SavePeriod(ctx, record); err != nil {
		return nil, &StoreError{Op: "save", Cause: err}
	}
	return record, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// loadOrInit resolves the period window and loads the stored record,
// materializing and persisting a zeroed one on first view.
func (e *Engine) loadOrInit(ctx context.Context, projectID ProjectID, monthNumber int) (*ExpensePeriodRecord, BillingPeriod, error) {
	project, err := e.Projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, BillingPeriod{}, ErrProjectNotFound
	}

	window, err := e.Calc.ResolvePeriod(*project, monthNumber)
	if err != nil {
		// Deliberate leniency for incompletely configured projects; logged
		// so the data-quality problem stays visible.
		log.Printf("[Engine] project %s has no start date, defaulting period %d to %s", projectID, monthNumber, window)
	}

	record, err := e.Records.LoadPeriod(ctx, projectID, window.MonthNumber)
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			return nil, BillingPeriod{}, &StoreError{Op: "load", Cause: err}
		}
		record = NewExpensePeriodRecord(projectID, window)
		if err := e.Records.SavePeriod(ctx, record); err != nil {
			return nil, BillingPeriod{}, &StoreError{Op: "save", Cause: err}
		}
	}
	return record, window, nil
}
