package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/finance"
	"github.com/warp/finance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testPeriod() finance.BillingPeriod {
	start := finance.NewTimePoint(2024, time.January, 10)
	return finance.BillingPeriod{
		ProjectID:     "proj-1",
		MonthNumber:   1,
		CalendarMonth: finance.CalendarMonthOf(start),
		Start:         start,
		End:           start.AddDays(30),
	}
}

// =============================================================================
// PERIOD RECORDS
// =============================================================================

func TestStore_PeriodRecord_RoundTrip(t *testing.T) {
	// GIVEN: A fully populated period record
	// WHEN: Saving and reloading it
	// THEN: Every input field survives; derived fields are recomputable

	store := newTestStore(t)
	ctx := context.Background()

	record := finance.NewExpensePeriodRecord("proj-1", testPeriod())
	record.DynamicExpenses["reels"] = finance.DynamicExpense{
		ServiceID:   "reels",
		ServiceName: "Reels",
		Category:    finance.CategoryContent,
		Count:       decimal.NewFromInt(6),
		Rate:        finance.MustParseMoney("8000"),
		SyncedCount: decimal.NewFromInt(4),
		SyncedRate:  finance.MustParseMoney("8000"),
		SyncedAt:    time.Date(2024, time.January, 20, 10, 0, 0, 0, time.UTC),
	}
	record.FOTCalculations["anna"] = finance.FOTCalculation{
		UserName:            "Anna",
		JobTitle:            "Account manager",
		BaseSalary:          finance.MustParseMoney("90000"),
		ActiveProjectsCount: 3,
		ShareForThisProject: finance.MustParseMoney("30000"),
	}
	record.ModelsExpenses = finance.MustParseMoney("5000")
	record.OtherExpenses = finance.MustParseMoney("3000")
	record.OtherDescription = "props rental"
	record.Revenue = finance.MustParseMoney("150000")
	record.Frozen = true
	record.LastSyncedAt = time.Date(2024, time.January, 20, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SavePeriod(ctx, record))

	loaded, err := store.LoadPeriod(ctx, "proj-1", 1)
	require.NoError(t, err)

	assert.Equal(t, record.PeriodStart, loaded.PeriodStart)
	assert.Equal(t, record.PeriodEnd, loaded.PeriodEnd)
	assert.Equal(t, "2024-01", loaded.CalendarMonth.String())

	e := loaded.DynamicExpenses["reels"]
	assert.Equal(t, "6", e.Count.String())
	assert.Equal(t, "8000", e.Rate.String())
	assert.Equal(t, "48000", e.Cost.String(), "cost recomputed on load")
	assert.True(t, e.IsManuallyEdited(), "snapshot divergence survives the round trip")

	fot := loaded.FOTCalculations["anna"]
	assert.Equal(t, "30000", fot.ShareForThisProject.String())
	assert.Equal(t, 3, fot.ActiveProjectsCount)

	assert.Equal(t, "props rental", loaded.OtherDescription)
	assert.Equal(t, "150000", loaded.Revenue.String())
	assert.True(t, loaded.Frozen)
	assert.True(t, loaded.LastSyncedAt.Equal(record.LastSyncedAt))
}

func TestStore_LoadPeriod_Missing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LoadPeriod(context.Background(), "proj-1", 1)
	assert.ErrorIs(t, err, finance.ErrRecordNotFound)
}

func TestStore_SavePeriod_UpsertReplacesWholeRow(t *testing.T) {
	// The save is a single UPSERT: the second write fully replaces the first.
	store := newTestStore(t)
	ctx := context.Background()

	record := finance.NewExpensePeriodRecord("proj-1", testPeriod())
	record.Revenue = finance.MustParseMoney("100000")
	require.NoError(t, store.SavePeriod(ctx, record))

	record.Revenue = finance.MustParseMoney("120000")
	record.Frozen = true
	require.NoError(t, store.SavePeriod(ctx, record))

	loaded, err := store.LoadPeriod(ctx, "proj-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "120000", loaded.Revenue.String())
	assert.True(t, loaded.Frozen)
}

func TestStore_ListPeriods_OrderedByMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	calc := finance.PeriodCalculator{}
	start := finance.NewTimePoint(2024, time.January, 10)
	for _, n := range []int{3, 1, 2} {
		record := finance.NewExpensePeriodRecord("proj-1", calc.PeriodN("proj-1", start, n))
		require.NoError(t, store.SavePeriod(ctx, record))
	}
	other := finance.NewExpensePeriodRecord("proj-2", calc.PeriodN("proj-2", start, 1))
	require.NoError(t, store.SavePeriod(ctx, other))

	records, err := store.ListPeriods(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, i+1, r.MonthNumber)
		assert.Equal(t, finance.ProjectID("proj-1"), r.ProjectID)
	}
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestStore_Project_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := finance.Project{
		ID:           "proj-1",
		Name:         "Brand X",
		StartDate:    finance.NewTimePoint(2024, time.January, 10),
		DurationDays: 90,
		Budget:       finance.MustParseMoney("450000"),
		MediaBudget:  finance.MustParseMoney("120000"),
	}
	require.NoError(t, store.SaveProject(ctx, project))

	loaded, err := store.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, project.Name, loaded.Name)
	assert.Equal(t, project.StartDate, loaded.StartDate)
	assert.True(t, loaded.EndDate.IsZero())
	assert.Equal(t, 90, loaded.DurationDays)
	assert.Equal(t, "450000", loaded.Budget.String())

	_, err = store.GetProject(ctx, "nope")
	assert.ErrorIs(t, err, finance.ErrProjectNotFound)
}

// =============================================================================
// STAFF SOURCE
// =============================================================================

func TestStore_StaffSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	anna := finance.StaffMember{UserID: "anna", Name: "Anna", JobTitle: "AM", BaseSalary: finance.MustParseMoney("90000")}
	kpi := finance.StaffMember{UserID: "kira", Name: "Kira", JobTitle: "Sales", BaseSalary: finance.MustParseMoney("50000")}
	require.NoError(t, store.SaveStaffMember(ctx, anna, true))
	require.NoError(t, store.SaveStaffMember(ctx, kpi, false))

	roster, err := store.FixedSalaryStaff(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 1, "performance-paid members are not in the FOT roster")
	assert.Equal(t, finance.UserID("anna"), roster[0].UserID)

	// Three assignments, one of them completed
	require.NoError(t, store.SaveAssignment(ctx, "a1", "anna", "proj-1", sqlite.StatusActive))
	require.NoError(t, store.SaveAssignment(ctx, "a2", "anna", "proj-2", sqlite.StatusActive))
	require.NoError(t, store.SaveAssignment(ctx, "a3", "anna", "proj-3", sqlite.StatusCompleted))

	count, err := store.ActiveProjectCount(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "only active assignments divide the salary")

	assigned, err := store.AssignedToProject(ctx, "anna", "proj-1")
	require.NoError(t, err)
	assert.True(t, assigned)

	assigned, err = store.AssignedToProject(ctx, "anna", "proj-3")
	require.NoError(t, err)
	assert.False(t, assigned, "completed assignment no longer counts")

	// Upsert on (user, project): kickoff flips planned to active
	require.NoError(t, store.SaveAssignment(ctx, "a4", "anna", "proj-4", sqlite.StatusPlanned))
	count, err = store.ActiveProjectCount(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "planned projects don't count yet")

	require.NoError(t, store.SaveAssignment(ctx, "a4", "anna", "proj-4", sqlite.StatusActive))
	count, err = store.ActiveProjectCount(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// =============================================================================
// USAGE SOURCE
// =============================================================================

func TestStore_ServiceUsage_CountsItemsInWindow(t *testing.T) {
	// GIVEN: A rate card and dated content items around a period boundary
	// WHEN: Counting usage for the window [Jan 10, Feb 9)
	// THEN: Only items inside the half-open window count; every rate card
	//       service is reported, including zero-count ones

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRate(ctx, "reels", "Reels", finance.MustParseMoney("8000")))
	require.NoError(t, store.SaveRate(ctx, "stories", "Stories", finance.MustParseMoney("1500")))

	add := func(service finance.ServiceID, day finance.TimePoint) {
		require.NoError(t, store.AddContentItem(ctx, "proj-1", service, "item", day))
	}
	window := testPeriod()
	add("reels", window.Start)              // first day: in
	add("reels", window.Start.AddDays(15))  // mid: in
	add("reels", window.End)                // boundary day: out (exclusive)
	add("reels", window.Start.AddDays(-1))  // before: out
	add("stories", window.Start.AddDays(3)) // other service

	// Another project's items never leak in
	require.NoError(t, store.AddContentItem(ctx, "proj-2", "reels", "item", window.Start))

	usage, err := store.ServiceUsage(ctx, "proj-1", window)
	require.NoError(t, err)
	require.Len(t, usage, 2)

	assert.Equal(t, "2", usage["reels"].Count.String())
	assert.Equal(t, "8000", usage["reels"].Rate.String())
	assert.Equal(t, "1", usage["stories"].Count.String())
}

func TestStore_ServiceUsage_ProjectRateOverride(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRate(ctx, "reels", "Reels", finance.MustParseMoney("8000")))
	require.NoError(t, store.SaveProjectRate(ctx, "proj-1", "reels", finance.MustParseMoney("9500")))

	usage, err := store.ServiceUsage(ctx, "proj-1", testPeriod())
	require.NoError(t, err)
	assert.Equal(t, "9500", usage["reels"].Rate.String(), "override wins for this project")

	usage, err = store.ServiceUsage(ctx, "proj-2", testPeriod())
	require.NoError(t, err)
	assert.Equal(t, "8000", usage["reels"].Rate.String(), "other projects keep the card rate")
}

// =============================================================================
// CATEGORIES
// =============================================================================

func TestStore_Categories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cats, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)

	require.NoError(t, store.SaveCategory(ctx, finance.Category{ID: "web", Name: "Web", SortOrder: 2}))
	require.NoError(t, store.SaveCategory(ctx, finance.Category{ID: "content", Name: "Content", Icon: "edit", SortOrder: 1}))

	cats, err = store.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, finance.CategoryID("content"), cats[0].ID, "ordered by sort order")
}

// =============================================================================
// MAINTENANCE
// =============================================================================

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProject(ctx, finance.Project{ID: "proj-1", Name: "X"}))
	require.NoError(t, store.SavePeriod(ctx, finance.NewExpensePeriodRecord("proj-1", testPeriod())))

	require.NoError(t, store.Reset(ctx))

	_, err := store.GetProject(ctx, "proj-1")
	assert.ErrorIs(t, err, finance.ErrProjectNotFound)
	_, err = store.LoadPeriod(ctx, "proj-1", 1)
	assert.ErrorIs(t, err, finance.ErrRecordNotFound)
}
