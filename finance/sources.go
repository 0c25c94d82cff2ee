/*
sources.go - Collaborator interfaces and the record store contract

PURPOSE:
  Defines the boundary between the period engine and the rest of the
  dashboard. The engine consumes projects, usage counts, staff rosters and
  category configuration through these interfaces and persists period
  records through RecordStore. Persistence technology and transport are the
  implementations' concern.

IMPLEMENTATIONS:
  - store/sqlite: production implementation of every interface
  - finance/store: in-memory RecordStore for tests/dev
  - test fakes: each _test.go stubs exactly the sources it needs

RECORD STORE CONTRACT:
  Read-modify-write at the granularity of one ExpensePeriodRecord. The
  engine holds no in-process lock; a sync pass loads, merges into a clone
  and saves once, so a failed pass never half-writes a record.
*/
package finance

import "context"

// ProjectSource supplies project metadata (start/end, budgets).
type ProjectSource interface {
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
}

// UsageSource is the content/task collaborator: current usage counts and
// rates for every billable service within a period window.
type UsageSource interface {
	ServiceUsage(ctx context.Context, projectID ProjectID, window BillingPeriod) (map[ServiceID]UsageEntry, error)
}

// StaffSource supplies the fixed-salary roster and per-member active
// project assignment counts. What counts as "active" is the collaborator's
// definition, not the engine's.
type StaffSource interface {
	FixedSalaryStaff(ctx context.Context) ([]StaffMember, error)
	ActiveProjectCount(ctx context.Context, userID UserID) (int, error)
	// AssignedToProject reports whether the member is assigned to the
	// given project at all; unassigned members get no share here.
	AssignedToProject(ctx context.Context, userID UserID, projectID ProjectID) (bool, error)
}

// CategorySource supplies the configured cost categories. Optional: the
// registry falls back to the built-in four when it returns nothing.
type CategorySource interface {
	Categories(ctx context.Context) ([]Category, error)
}

// RecordStore persists expense period records, one per project x month.
type RecordStore interface {
	// LoadPeriod returns the stored record or ErrRecordNotFound.
	LoadPeriod(ctx context.Context, projectID ProjectID, monthNumber int) (*ExpensePeriodRecord, error)

	// SavePeriod writes the record in one atomic replace.
	SavePeriod(ctx context.Context, record *ExpensePeriodRecord) error

	// ListPeriods returns all stored records for a project ordered by
	// month number.
	ListPeriods(ctx context.Context, projectID ProjectID) ([]*ExpensePeriodRecord, error)
}
