/*
handlers.go - HTTP API handlers for the period engine

PURPOSE:
  Exposes the financial period engine via REST. Handles HTTP
  request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Projects:
    GET    /api/projects                          List projects
    POST   /api/projects                          Create/update project
    GET    /api/projects/{id}                     Get project
    GET    /api/projects/{id}/periods             List stored periods
    GET    /api/projects/{id}/periods/{month}     Get or lazily init a period

  Period operations (editor role):
    POST   /api/projects/{id}/periods/{month}/sync           Manual resync (?force=true re-pulls manual edits)
    PUT    /api/projects/{id}/periods/{month}/fields         Update a manual field
    PUT    /api/projects/{id}/periods/{month}/services/{sid} Hand-edit a service line
    POST   /api/projects/{id}/periods/{month}/freeze         Freeze/unfreeze
    POST   /api/projects/{id}/periods/{month}/copy-previous  Seed from prior month

  View lifecycle (drives the auto-sync scheduler):
    POST   /api/projects/{id}/periods/{month}/view/open
    POST   /api/projects/{id}/periods/{month}/view/close

  Admin (editor role):
    POST   /api/admin/staff         Upsert staff member
    POST   /api/admin/assignments   Upsert project assignment
    POST   /api/admin/rates         Upsert rate (project override optional)
    POST   /api/admin/rate-card     Bulk-upsert rates from a JSON rate card
    POST   /api/admin/rules         Replace the classification rule table
    POST   /api/admin/content       Record a content item
    POST   /api/admin/reset         Wipe database (dev only)

  Misc:
    GET    /api/categories          Configured or built-in categories

ERROR HANDLING:
  - 400: Validation errors, unknown field, no previous period
  - 403: Viewer role on a mutating endpoint
  - 404: Project/record not found
  - 502: Collaborator unreachable (sync endpoints return the last-known
         record with a warning instead when one exists)
  - 500: Store failures

AUTHORIZATION:
  The caller arrives already authenticated; this layer only honors the
  X-Role header ("viewer"/"editor") as the authorized-caller role flag.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/factory"
	"github.com/warp/finance-engine/finance"
	"github.com/warp/finance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Engine    *finance.Engine
	Rules     *factory.RuleFactory
	Scheduler *AutoSyncScheduler
}

// NewHandler wires an engine and scheduler over the given store.
func NewHandler(store *sqlite.Store) *Handler {
	engine := finance.NewEngine(store, store, store, store, store)
	return &Handler{
		Store:     store,
		Engine:    engine,
		Rules:     factory.NewRuleFactory(),
		Scheduler: NewAutoSyncScheduler(engine),
	}
}

// ApplyRuleTable parses a JSON rule-table document, swaps the live
// classification rules and persists any configured categories. Shared by
// the admin endpoint and the -rules startup flag.
func (h *Handler) ApplyRuleTable(ctx context.Context, doc string) error {
	rules, err := h.Rules.ParseRules(doc)
	if err != nil {
		return err
	}
	cats, err := h.Rules.ParseCategories(doc)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if err := h.Store.SaveCategory(ctx, c); err != nil {
			return err
		}
	}
	h.Engine.Registry.Rules = rules
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" || req.Name == "" {
		writeBadRequest(w, "id and name are required")
		return
	}

	budget, err := parseMoneyParam(req.Budget)
	if err != nil {
		writeBadRequest(w, "invalid budget")
		return
	}
	mediaBudget, err := parseMoneyParam(req.MediaBudget)
	if err != nil {
		writeBadRequest(w, "invalid media budget")
		return
	}

	project := finance.Project{
		ID:           finance.ProjectID(req.ID),
		Name:         req.Name,
		StartDate:    parseDateParam(req.StartDate),
		EndDate:      parseDateParam(req.EndDate),
		DurationDays: req.DurationDays,
		Budget:       budget,
		MediaBudget:  mediaBudget,
	}
	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	project, err := h.Store.GetProject(r.Context(), finance.ProjectID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(*project))
}

// =============================================================================
// PERIODS
// =============================================================================

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))

	records, err := h.Engine.ListPeriods(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	current, err := h.Engine.CurrentPeriodNumber(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := PeriodListDTO{CurrentMonthNumber: current, Periods: make([]PeriodRecordDTO, 0, len(records))}
	for _, rec := range records {
		out.Periods = append(out.Periods, toPeriodDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	record, err := h.Engine.GetOrInitPeriod(r.Context(), projectID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

// SyncPeriod is the manual "resync now" action, allowed regardless of
// freeze state. ?force=true re-pulls hand-edited counts/rates too.
func (h *Handler) SyncPeriod(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}

	opts := finance.SyncOptions{OverwriteManual: r.URL.Query().Get("force") == "true"}
	record, err := h.Engine.SyncNow(r.Context(), projectID, month, opts)
	if err != nil {
		if finance.IsWarning(err) {
			// Collaborator down: return the last-known record with a
			// stale-data warning instead of blanking the dashboard.
			if last, lerr := h.Engine.GetOrInitPeriod(r.Context(), projectID, month); lerr == nil {
				dto := toPeriodDTO(last)
				dto.Warning = err.Error()
				writeJSON(w, http.StatusOK, dto)
				return
			}
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	var req UpdateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	record, err := h.Engine.UpdateManualField(r.Context(), projectID, month, req.Field, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

func (h *Handler) UpdateServiceLine(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	serviceID := finance.ServiceID(chi.URLParam(r, "serviceID"))

	var req ServiceLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var count *decimal.Decimal
	if req.Count != nil {
		c, err := decimal.NewFromString(*req.Count)
		if err != nil {
			writeBadRequest(w, "invalid count")
			return
		}
		count = &c
	}
	var rate *finance.Money
	if req.Rate != nil {
		m, err := finance.ParseMoney(*req.Rate)
		if err != nil {
			writeBadRequest(w, "invalid rate")
			return
		}
		rate = &m
	}

	record, err := h.Engine.UpdateServiceLine(r.Context(), projectID, month, serviceID, count, rate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

func (h *Handler) SetFrozen(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.Engine.SetFrozen(r.Context(), projectID, month, req.Frozen); err != nil {
		writeError(w, err)
		return
	}
	record, err := h.Engine.GetOrInitPeriod(r.Context(), projectID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

func (h *Handler) CopyPreviousPeriod(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	record, err := h.Engine.CopyFromPreviousPeriod(r.Context(), projectID, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(record))
}

// =============================================================================
// VIEW LIFECYCLE
// =============================================================================

func (h *Handler) OpenPeriodView(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	h.Scheduler.OpenView(projectID, month)
	writeJSON(w, http.StatusOK, map[string]any{"open_views": h.Scheduler.OpenViewCount()})
}

func (h *Handler) ClosePeriodView(w http.ResponseWriter, r *http.Request) {
	projectID, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	h.Scheduler.CloseView(projectID, month)
	writeJSON(w, http.StatusOK, map[string]any{"open_views": h.Scheduler.OpenViewCount()})
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.Engine.Registry.AllCategories(r.Context())
	dtos := make([]CategoryDTO, 0, len(cats))
	for _, c := range cats {
		dtos = append(dtos, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) SaveStaff(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Name == "" {
		writeBadRequest(w, "user_id and name are required")
		return
	}

	salary, err := parseMoneyParam(req.BaseSalary)
	if err != nil {
		writeBadRequest(w, "invalid base salary")
		return
	}
	fixed := true
	if req.FixedSalary != nil {
		fixed = *req.FixedSalary
	}
	member := finance.StaffMember{
		UserID:     finance.UserID(req.UserID),
		Name:       req.Name,
		JobTitle:   req.JobTitle,
		BaseSalary: salary,
	}
	if err := h.Store.SaveStaffMember(r.Context(), member, fixed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

func (h *Handler) SaveAssignment(w http.ResponseWriter, r *http.Request) {
	var req AssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.ProjectID == "" {
		writeBadRequest(w, "user_id and project_id are required")
		return
	}
	if req.Status == "" {
		req.Status = sqlite.StatusActive
	}
	if req.ID == "" {
		req.ID = req.UserID + ":" + req.ProjectID
	}

	err := h.Store.SaveAssignment(r.Context(), req.ID,
		finance.UserID(req.UserID), finance.ProjectID(req.ProjectID), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

func (h *Handler) SaveRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ServiceID == "" {
		writeBadRequest(w, "service_id is required")
		return
	}

	rate, err := parseMoneyParam(req.Rate)
	if err != nil {
		writeBadRequest(w, "invalid rate")
		return
	}
	if req.ProjectID != "" {
		err = h.Store.SaveProjectRate(r.Context(), finance.ProjectID(req.ProjectID), finance.ServiceID(req.ServiceID), rate)
	} else {
		err = h.Store.SaveRate(r.Context(), finance.ServiceID(req.ServiceID), req.Name, rate)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"service_id": req.ServiceID})
}

func (h *Handler) AddContentItem(w http.ResponseWriter, r *http.Request) {
	var req ContentItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.ProjectID == "" || req.ServiceID == "" || req.PublishedAt == "" {
		writeBadRequest(w, "project_id, service_id and published_at are required")
		return
	}

	publishedAt := parseDateParam(req.PublishedAt)
	if publishedAt.IsZero() {
		writeBadRequest(w, "published_at must be YYYY-MM-DD")
		return
	}
	err := h.Store.AddContentItem(r.Context(),
		finance.ProjectID(req.ProjectID), finance.ServiceID(req.ServiceID), req.Title, publishedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// ConfigureRules replaces the live classification rule table from a JSON
// rule-table document. Subsequent syncs and hand-edits classify with the
// new rules; already-tagged lines keep their category.
func (h *Handler) ConfigureRules(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}
	if err := h.ApplyRuleTable(r.Context(), string(doc)); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": len(h.Engine.Registry.Rules)})
}

// UploadRateCard bulk-upserts service rates from a JSON rate card.
func (h *Handler) UploadRateCard(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}
	card, err := h.Rules.ParseRateCard(string(doc))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	for id, entry := range card {
		if err := h.Store.SaveRate(r.Context(), id, entry.ServiceName, entry.Rate); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": len(card)})
}

func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func periodParams(w http.ResponseWriter, r *http.Request) (finance.ProjectID, int, bool) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 {
		writeBadRequest(w, "month must be a positive integer")
		return "", 0, false
	}
	return projectID, month, true
}

// parseMoneyParam treats an omitted value as zero but rejects garbage, so a
// typo never silently zeroes a submitted amount.
func parseMoneyParam(raw string) (finance.Money, error) {
	if raw == "" {
		return finance.ZeroMoney(), nil
	}
	return finance.ParseMoney(raw)
}

func parseDateParam(raw string) finance.TimePoint {
	if raw == "" {
		return finance.TimePoint{}
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return finance.TimePoint{}
	}
	return finance.TimePointFrom(t)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, finance.ErrProjectNotFound), errors.Is(err, finance.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, finance.ErrEditNotAllowed):
		status = http.StatusForbidden
	case finance.IsClientError(err):
		status = http.StatusBadRequest
	case errors.Is(err, finance.ErrSyncUnavailable):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
