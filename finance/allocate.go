/*
allocate.go - Fixed labor cost allocation (FOT engine)

PURPOSE:
  Splits every fixed-salary staff member's pay evenly across their
  concurrently active projects and attributes one share to this project's
  period.

RULES:
  - Only staff assigned to the target project receive a share here.
  - share = baseSalary / activeProjectsCount, activeProjectsCount >= 1
    once the member has any active assignment; members active on zero
    projects are excluded entirely (no divide-by-zero, no orphaned share).
  - Shares round to 2 decimal places; a member's shares across all their
    active projects sum to their base salary within one rounding unit.
  - Deterministic: results are keyed by user and independent of roster
    order or call order.

SEE ALSO:
  - sources.go: StaffSource supplies roster and assignment counts
  - aggregate.go: Sums shares into the period's FOT total
*/
package finance

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LABOR ALLOCATOR
// =============================================================================

type LaborAllocator struct {
	Staff StaffSource
}

func NewLaborAllocator(staff StaffSource) *LaborAllocator {
	return &LaborAllocator{Staff: staff}
}

// Allocate computes the labor share map for one project. A staff source
// failure surfaces as ErrSyncUnavailable so the caller keeps the last-known
// calculations.
func (la *LaborAllocator) Allocate(ctx context.Context, projectID ProjectID) (map[UserID]FOTCalculation, error) {
	roster, err := la.Staff.FixedSalaryStaff(ctx)
	if err != nil {
		return nil, &SyncError{ProjectID: projectID, Cause: err}
	}

	shares := make(map[UserID]FOTCalculation)
	for _, member := range roster {
		assigned, err := la.Staff.AssignedToProject(ctx, member.UserID, projectID)
		if err != nil {
			return nil, &SyncError{ProjectID: projectID, Cause: err}
		}
		if !assigned {
			continue
		}

		active, err := la.Staff.ActiveProjectCount(ctx, member.UserID)
		if err != nil {
			return nil, &SyncError{ProjectID: projectID, Cause: err}
		}
		if active < 1 {
			// Assigned but nothing counts as active: excluded rather than
			// given a full-salary share nobody signed off on.
			continue
		}

		share := member.BaseSalary.Div(decimal.NewFromInt(int64(active))).Round(2)
		shares[member.UserID] = FOTCalculation{
			UserName:            member.Name,
			JobTitle:            member.JobTitle,
			BaseSalary:          member.BaseSalary,
			ActiveProjectsCount: active,
			ShareForThisProject: share,
		}
	}
	return shares, nil
}
