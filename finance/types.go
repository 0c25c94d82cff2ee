/*
Package finance provides the project financial period engine.

PURPOSE:
  This package contains the domain logic for slicing a project's lifetime
  into monthly billing periods, synchronizing per-service usage costs into
  those periods, allocating shared fixed labor cost (the payroll fund, "FOT")
  across an employee's concurrently active projects, computing margins, and
  gating automatic refresh behind a freeze state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A monetary amount backed by decimal.Decimal
  - DynamicExpense: One billable service line (count x rate) with sync snapshot
  - FOTCalculation: One staff member's labor share for one project period
  - ExpensePeriodRecord: The persisted unit, one per project x month number

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors in money
  2. Derived fields are always recomputed, never trusted from storage
  3. Type safety: Strong typing for IDs prevents mixing project/service/user IDs
  4. Sync snapshots: Manual edits are detected structurally (value diverges
     from the last synced snapshot), not via an out-of-band flag

SEE ALSO:
  - period.go: Billing period derivation
  - sync.go: Non-destructive merge of synchronized usage costs
  - aggregate.go: Total expense and margin recomputation
*/
package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount (currency-agnostic, decimal-backed)
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money      { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money { return Money{Value: decimal.NewFromInt(value)} }
func ZeroMoney() Money                  { return Money{Value: decimal.Zero} }

// ParseMoney parses a decimal string from direct user input. A malformed
// value surfaces ErrInvalidValue so the caller never silently replaces an
// entered figure with zero.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney(), fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return Money{Value: d}, nil
}

// MustParseMoney is for trusted stored values; failures coerce to zero.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money           { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money           { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money { return Money{Value: m.Value.Div(s)} }
func (m Money) Round(places int32) Money    { return Money{Value: m.Value.Round(places)} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) Equal(b Money) bool          { return m.Value.Equal(b.Value) }
func (m Money) GreaterThan(b Money) bool    { return m.Value.GreaterThan(b.Value) }
func (m Money) LessThan(b Money) bool       { return m.Value.LessThan(b.Value) }
func (m Money) String() string              { return m.Value.String() }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type ServiceID string
type UserID string
type CategoryID string

// Role is the already-authorized caller role passed in by the transport
// layer. The engine does not authenticate; it only distinguishes viewers
// from editors for mutating operations.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
)

func (r Role) CanEdit() bool { return r == RoleEditor }

// =============================================================================
// PROJECT - External, read-only to the engine
// =============================================================================

type Project struct {
	ID           ProjectID
	Name         string
	StartDate    TimePoint
	EndDate      TimePoint // zero = ongoing, periods extend implicitly
	DurationDays int       // used when EndDate is zero but duration is known
	Budget       Money
	MediaBudget  Money
}

// EffectiveEnd resolves the project's end boundary (exclusive). Zero when
// the project is open-ended.
func (p Project) EffectiveEnd() TimePoint {
	if !p.EndDate.IsZero() {
		return p.EndDate
	}
	if p.DurationDays > 0 && !p.StartDate.IsZero() {
		return p.StartDate.AddDays(p.DurationDays)
	}
	return TimePoint{}
}

// =============================================================================
// DYNAMIC EXPENSE - One billable service line in a period
// =============================================================================

// DynamicExpense is a synchronized or manually set (count, rate) pair for
// one billable service. Cost is always Count x Rate, recomputed on every
// aggregation pass and never trusted from storage.
//
// SyncedCount/SyncedRate are the values the last synchronization pass wrote.
// A manual edit is any divergence of Count/Rate from that snapshot; the
// synchronizer preserves diverged values (see sync.go merge contract).
type DynamicExpense struct {
	ServiceID   ServiceID
	ServiceName string
	Category    CategoryID
	Count       decimal.Decimal
	Rate        Money
	Cost        Money

	SyncedCount decimal.Decimal
	SyncedRate  Money
	SyncedAt    time.Time
}

// IsManuallyEdited reports whether count or rate diverges from the last
// synced snapshot.
func (e DynamicExpense) IsManuallyEdited() bool {
	return !e.Count.Equal(e.SyncedCount) || !e.Rate.Equal(e.SyncedRate)
}

// RecomputeCost refreshes the derived cost field.
func (e *DynamicExpense) RecomputeCost() {
	e.Cost = e.Rate.Mul(e.Count)
}

// =============================================================================
// FOT CALCULATION - Fixed-salary labor share for one project period
// =============================================================================

type FOTCalculation struct {
	UserName            string
	JobTitle            string
	BaseSalary          Money
	ActiveProjectsCount int
	ShareForThisProject Money
}

// =============================================================================
// STAFF & USAGE - Collaborator-supplied inputs
// =============================================================================

type StaffMember struct {
	UserID     UserID
	Name       string
	JobTitle   string
	BaseSalary Money
}

// UsageEntry is one service's current usage within a period window, as
// reported by the content/task collaborator.
type UsageEntry struct {
	ServiceName string
	Count       decimal.Decimal
	Rate        Money
}

// Category is one cost category from the category configuration source.
type Category struct {
	ID        CategoryID
	Name      string
	Icon      string
	SortOrder int
}

// =============================================================================
// EXPENSE PERIOD RECORD - The persisted unit (one per project x month)
// =============================================================================

// ExpensePeriodRecord holds everything the dashboard shows for one monthly
// billing period of one project. Derived fields (Cost, CategoryTotals,
// FOTTotal, TotalExpenses, MarginPercent) are recomputed by the aggregator
// on every load/mutation; only inputs are authoritative.
type ExpensePeriodRecord struct {
	// Identity
	ProjectID     ProjectID
	MonthNumber   int // 1-based, sequential from project start
	CalendarMonth CalendarMonth
	PeriodStart   TimePoint
	PeriodEnd     TimePoint // exclusive

	// Synchronized service lines, keyed by stable service identifier.
	DynamicExpenses map[ServiceID]DynamicExpense

	// Legacy aggregated rollups. Pre-dynamic records carry totals here;
	// the first sync migrates them into DynamicExpenses and zeroes these.
	// Counted into totals only while DynamicExpenses is empty.
	SMMExpenses        Money
	ProductionExpenses Money

	// Fixed-salary labor shares, keyed by user.
	FOTCalculations map[UserID]FOTCalculation

	// Manual inputs
	ModelsExpenses   Money
	OtherExpenses    Money
	OtherDescription string
	Revenue          Money

	// Derived
	CategoryTotals map[CategoryID]Money
	FOTTotal       Money
	TotalExpenses  Money
	MarginPercent  decimal.Decimal

	// State
	Frozen       bool
	LastSyncedAt time.Time
}

// NewExpensePeriodRecord creates a zeroed record for a billing period.
// Records are created lazily the first time a period is viewed.
func NewExpensePeriodRecord(projectID ProjectID, period BillingPeriod) *ExpensePeriodRecord {
	return &ExpensePeriodRecord{
		ProjectID:       projectID,
		MonthNumber:     period.MonthNumber,
		CalendarMonth:   period.CalendarMonth,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		DynamicExpenses: make(map[ServiceID]DynamicExpense),
		FOTCalculations: make(map[UserID]FOTCalculation),
		CategoryTotals:  make(map[CategoryID]Money),
	}
}

// Clone returns a deep copy. Sync passes mutate a clone and persist it in
// one write so a failed pass never leaves a half-merged record behind.
func (r *ExpensePeriodRecord) Clone() *ExpensePeriodRecord {
	cp := *r
	cp.DynamicExpenses = make(map[ServiceID]DynamicExpense, len(r.DynamicExpenses))
	for k, v := range r.DynamicExpenses {
		cp.DynamicExpenses[k] = v
	}
	cp.FOTCalculations = make(map[UserID]FOTCalculation, len(r.FOTCalculations))
	for k, v := range r.FOTCalculations {
		cp.FOTCalculations[k] = v
	}
	cp.CategoryTotals = make(map[CategoryID]Money, len(r.CategoryTotals))
	for k, v := range r.CategoryTotals {
		cp.CategoryTotals[k] = v
	}
	return &cp
}

// HasDynamicExpenses reports whether the record has crossed the migration
// boundary from the legacy fixed-field schema.
func (r *ExpensePeriodRecord) HasDynamicExpenses() bool {
	return len(r.DynamicExpenses) > 0
}
