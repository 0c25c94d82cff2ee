package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/api"
	"github.com/warp/finance-engine/finance"
	"github.com/warp/finance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (http.Handler, *api.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(store)
	return api.NewRouter(handler), handler
}

func doJSON(t *testing.T, router http.Handler, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

// createTestProject seeds one project that started 5 days ago, so its
// current period number is 1.
func createTestProject(t *testing.T, router http.Handler) {
	rec := doJSON(t, router, "POST", "/api/projects", "editor", api.CreateProjectRequest{
		ID:        "proj-1",
		Name:      "Brand X",
		StartDate: finance.Today().AddDays(-5).String(),
		Budget:    "450000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestAPI_CreateAndGetProject(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "GET", "/api/projects/proj-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.ProjectDTO](t, rec)
	assert.Equal(t, "proj-1", dto.ID)
	assert.Equal(t, "Brand X", dto.Name)
	assert.Equal(t, "450000", dto.Budget)

	rec = doJSON(t, router, "GET", "/api/projects/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateProject_RequiresEditor(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/api/projects", "viewer", api.CreateProjectRequest{ID: "p", Name: "n"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Missing role header defaults to viewer
	rec = doJSON(t, router, "POST", "/api/projects", "", api.CreateProjectRequest{ID: "p", Name: "n"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// PERIODS
// =============================================================================

func TestAPI_GetPeriod_LazyInit(t *testing.T) {
	// GIVEN: A project nobody has viewed yet
	// WHEN: Fetching period 1
	// THEN: A zeroed record is materialized in the auto-sync state

	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "GET", "/api/projects/proj-1/periods/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	assert.Equal(t, 1, dto.MonthNumber)
	assert.Equal(t, "0", dto.TotalExpenses)
	assert.Equal(t, "auto_sync", dto.State)
	assert.False(t, dto.Frozen)
	assert.Empty(t, dto.DynamicExpenses)
}

func TestAPI_GetPeriod_BadMonth(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "GET", "/api/projects/proj-1/periods/zero", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListPeriods_MarksCurrent(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	// Materialize two periods
	doJSON(t, router, "GET", "/api/projects/proj-1/periods/1", "", nil)
	doJSON(t, router, "GET", "/api/projects/proj-1/periods/2", "", nil)

	rec := doJSON(t, router, "GET", "/api/projects/proj-1/periods", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodListDTO](t, rec)
	assert.Equal(t, 1, dto.CurrentMonthNumber)
	require.Len(t, dto.Periods, 2)
	assert.Equal(t, 1, dto.Periods[0].MonthNumber)
	assert.Equal(t, 2, dto.Periods[1].MonthNumber)
}

// =============================================================================
// SYNC
// =============================================================================

func TestAPI_SyncPeriod_PullsUsage(t *testing.T) {
	// GIVEN: A rate card and content items inside the current period
	// WHEN: POSTing a manual sync
	// THEN: The response carries the synced line with cost and category

	router, h := newTestServer(t)
	createTestProject(t, router)
	ctx := context.Background()

	require.NoError(t, h.Store.SaveRate(ctx, "reels", "Reels", finance.MustParseMoney("8000")))
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Store.AddContentItem(ctx, "proj-1", "reels",
			fmt.Sprintf("reel %d", i), finance.Today().AddDays(-i)))
	}

	rec := doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/sync", "editor", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	dto := decode[api.PeriodRecordDTO](t, rec)
	require.Len(t, dto.DynamicExpenses, 1)
	line := dto.DynamicExpenses[0]
	assert.Equal(t, "reels", line.ServiceID)
	assert.Equal(t, "3", line.Count)
	assert.Equal(t, "24000", line.Cost)
	assert.Equal(t, "content", line.Category)
	assert.False(t, line.ManuallyEdited)
	assert.Equal(t, "24000", dto.TotalExpenses)
	assert.NotEmpty(t, dto.LastSyncedAt)
}

func TestAPI_SyncPeriod_RequiresEditor(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/sync", "viewer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// =============================================================================
// MANUAL EDITS
// =============================================================================

func TestAPI_UpdateField(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/fields", "editor",
		api.UpdateFieldRequest{Field: "revenue", Value: "150000"})
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	assert.Equal(t, "150000", dto.Revenue)
	assert.Equal(t, "100", dto.MarginPercent, "no expenses yet")

	rec = doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/fields", "editor",
		api.UpdateFieldRequest{Field: "totalExpenses", Value: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "derived fields are not editable")
}

func TestAPI_UpdateField_MalformedValueRejected(t *testing.T) {
	// GIVEN: Revenue already entered through the API
	// WHEN: Submitting a non-numeric value for the same field
	// THEN: 400 comes back and the stored figure is untouched, not zeroed

	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/fields", "editor",
		api.UpdateFieldRequest{Field: "revenue", Value: "150000"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/fields", "editor",
		api.UpdateFieldRequest{Field: "revenue", Value: "not-a-number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doJSON(t, router, "GET", "/api/projects/proj-1/periods/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150000", decode[api.PeriodRecordDTO](t, rec).Revenue)
}

func TestAPI_CreateProject_MalformedBudgetRejected(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/api/projects", "editor", api.CreateProjectRequest{
		ID: "proj-x", Name: "Brand Y", Budget: "lots",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UpdateServiceLine(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	count := "2"
	rate := "20000"
	rec := doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/services/shoot", "editor",
		api.ServiceLineRequest{Count: &count, Rate: &rate})
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	require.Len(t, dto.DynamicExpenses, 1)
	assert.Equal(t, "40000", dto.DynamicExpenses[0].Cost)
	assert.True(t, dto.DynamicExpenses[0].ManuallyEdited)
}

// =============================================================================
// FREEZE / COPY
// =============================================================================

func TestAPI_FreezeToggle(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/freeze", "editor",
		api.FreezeRequest{Frozen: true})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decode[api.PeriodRecordDTO](t, rec)
	assert.True(t, dto.Frozen)
	assert.Equal(t, "frozen", dto.State)

	rec = doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/freeze", "editor",
		api.FreezeRequest{Frozen: false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auto_sync", decode[api.PeriodRecordDTO](t, rec).State)
}

func TestAPI_CopyPrevious_FirstMonthRejected(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/copy-previous", "editor", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// VIEW LIFECYCLE
// =============================================================================

func TestAPI_ViewOpenClose(t *testing.T) {
	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/view/open", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["open_views"])

	rec = doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/view/close", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, rec)["open_views"])
}

// =============================================================================
// ADMIN & CATEGORIES
// =============================================================================

func TestAPI_Categories_BuiltinFallback(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "GET", "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cats := decode[[]api.CategoryDTO](t, rec)
	require.Len(t, cats, 4)
	assert.Equal(t, "content", cats[0].ID)
}

func TestAPI_ConfigureRules_ChangesLiveClassification(t *testing.T) {
	// GIVEN: A rule table uploaded over the admin API, with a category the
	//        built-in table doesn't know
	// WHEN: Hand-adding a service line matching the new keywords
	// THEN: The line is classified by the uploaded rules, and the configured
	//       categories replace the built-in list

	router, _ := newTestServer(t)
	createTestProject(t, router)

	ruleTable := map[string]any{
		"rules": []map[string]any{
			{"category": "influencer", "keywords": []string{"blogger", "блогер"}},
		},
		"categories": []map[string]any{
			{"id": "influencer", "name": "Influencer", "sort_order": 1},
		},
	}
	rec := doJSON(t, router, "POST", "/api/admin/rules", "editor", ruleTable)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	count := "1"
	rate := "30000"
	rec = doJSON(t, router, "PUT", "/api/projects/proj-1/periods/1/services/blogger-collab", "editor",
		api.ServiceLineRequest{Count: &count, Rate: &rate})
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	require.Len(t, dto.DynamicExpenses, 1)
	assert.Equal(t, "influencer", dto.DynamicExpenses[0].Category)

	rec = doJSON(t, router, "GET", "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]api.CategoryDTO](t, rec)
	require.Len(t, cats, 1)
	assert.Equal(t, "influencer", cats[0].ID)
}

func TestAPI_ConfigureRules_MalformedDocRejected(t *testing.T) {
	router, _ := newTestServer(t)

	rec := doJSON(t, router, "POST", "/api/admin/rules", "editor", map[string]any{
		"rules": []map[string]any{{"category": "", "keywords": []string{"x"}}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_UploadRateCard_DrivesSync(t *testing.T) {
	// GIVEN: Service rates seeded via a bulk rate card upload
	// WHEN: Content items land and the period syncs
	// THEN: Lines are priced from the uploaded card

	router, h := newTestServer(t)
	createTestProject(t, router)
	ctx := context.Background()

	rec := doJSON(t, router, "POST", "/api/admin/rate-card", "editor", map[string]any{
		"rates": []map[string]any{
			{"service_id": "reels", "name": "Reels", "rate": "8000"},
			{"service_id": "stories", "name": "Stories", "rate": "1500"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, h.Store.AddContentItem(ctx, "proj-1", "reels", "reel", finance.Today()))

	rec = doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/sync", "editor", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	var reels api.DynamicExpenseDTO
	for _, line := range dto.DynamicExpenses {
		if line.ServiceID == "reels" {
			reels = line
		}
	}
	assert.Equal(t, "8000", reels.Rate)
	assert.Equal(t, "8000", reels.Cost)
}

func TestAPI_AdminSeedsDriveFOT(t *testing.T) {
	// GIVEN: A staff member on two active projects, seeded over the API
	// WHEN: Syncing the project's current period
	// THEN: The FOT table carries half the salary

	router, _ := newTestServer(t)
	createTestProject(t, router)

	rec := doJSON(t, router, "POST", "/api/admin/staff", "editor", api.StaffRequest{
		UserID: "anna", Name: "Anna", JobTitle: "AM", BaseSalary: "90000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, p := range []string{"proj-1", "proj-2"} {
		rec = doJSON(t, router, "POST", "/api/admin/assignments", "editor", api.AssignmentRequest{
			UserID: "anna", ProjectID: p,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = doJSON(t, router, "POST", "/api/projects/proj-1/periods/1/sync", "editor", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	dto := decode[api.PeriodRecordDTO](t, rec)
	require.Len(t, dto.FOTCalculations, 1)
	assert.Equal(t, "45000", dto.FOTCalculations[0].ShareForThisProject)
	assert.Equal(t, 2, dto.FOTCalculations[0].ActiveProjectsCount)
	assert.Equal(t, "45000", dto.FOTTotal)
}
