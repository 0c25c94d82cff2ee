/*
Package sqlite provides a SQLite-backed implementation of the engine's
storage interfaces.

PURPOSE:
  Implements every collaborator interface the period engine consumes
  (finance.RecordStore, ProjectSource, UsageSource, StaffSource,
  CategorySource) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  expense_periods:     One row per project x month number (the record)
  projects:            Project metadata (dates, budgets)
  staff:               Fixed-salary roster
  project_assignments: Staff-to-project links with status
  rate_cards:          Default per-service rates
  project_rates:       Per-project rate overrides
  content_items:       Dated content/task rows driving usage counts
  categories:          Configured cost categories

RECORD ENCODING:
  The dynamic expense map and FOT calculations are stored as JSON columns
  on the period row; money values are decimal strings. Derived fields
  (costs, totals, margin) are NOT persisted - the aggregator recomputes
  them on every load, so storage can never drift from the inputs.

ATOMIC SAVES:
  SavePeriod is a single UPSERT of the whole row, so a period record is
  replaced all-or-nothing. The engine's merge step prepares the full row
  before the write; a failed write leaves the previous row intact.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WAL mode keeps readers unblocked
  while the single writer proceeds.

USAGE:
  store, err := sqlite.New("./data/agency.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := finance.NewEngine(store, store, store, store, store)

SEE ALSO:
  - finance/sources.go: Interface definitions
  - finance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/finance-engine/finance"
)

// Statuses an assignment can carry. Only StatusActive counts toward the
// labor allocation divisor; pre-kickoff projects deliberately do not (see
// DESIGN.md open-question decisions).
const (
	StatusPlanned   = "planned"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		duration_days INTEGER NOT NULL DEFAULT 0,
		budget TEXT NOT NULL DEFAULT '0',
		media_budget TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS staff (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		job_title TEXT,
		base_salary TEXT NOT NULL DEFAULT '0',
		fixed_salary INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS project_assignments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_assignment_user_project
		ON project_assignments(user_id, project_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_user_status
		ON project_assignments(user_id, status);

	CREATE TABLE IF NOT EXISTS rate_cards (
		service_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rate TEXT NOT NULL DEFAULT '0'
	);

	CREATE TABLE IF NOT EXISTS project_rates (
		project_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		rate TEXT NOT NULL,
		PRIMARY KEY (project_id, service_id)
	);

	CREATE TABLE IF NOT EXISTS content_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		title TEXT,
		published_at TEXT NOT NULL
	);
	-- Usage counting per (project, service, window) is the hot path
	CREATE INDEX IF NOT EXISTS idx_content_project_service_date
		ON content_items(project_id, service_id, published_at);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT,
		sort_order INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS expense_periods (
		project_id TEXT NOT NULL,
		month_number INTEGER NOT NULL,
		calendar_month TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		dynamic_expenses_json TEXT NOT NULL DEFAULT '{}',
		smm_expenses TEXT NOT NULL DEFAULT '0',
		production_expenses TEXT NOT NULL DEFAULT '0',
		fot_json TEXT NOT NULL DEFAULT '{}',
		models_expenses TEXT NOT NULL DEFAULT '0',
		other_expenses TEXT NOT NULL DEFAULT '0',
		other_description TEXT NOT NULL DEFAULT '',
		revenue TEXT NOT NULL DEFAULT '0',
		frozen INTEGER NOT NULL DEFAULT 0,
		last_synced_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project_id, month_number)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE - finance.RecordStore
// =============================================================================

// dynamicExpenseRow is the JSON encoding of one service line. Money and
// count values are decimal strings so the column stays human-readable and
// precision never leaks through float64.
type dynamicExpenseRow struct {
	ServiceName string `json:"service_name"`
	Category    string `json:"category"`
	Count       string `json:"count"`
	Rate        string `json:"rate"`
	SyncedCount string `json:"synced_count"`
	SyncedRate  string `json:"synced_rate"`
	SyncedAt    string `json:"synced_at,omitempty"`
}

type fotRow struct {
	UserName            string `json:"user_name"`
	JobTitle            string `json:"job_title"`
	BaseSalary          string `json:"base_salary"`
	ActiveProjectsCount int    `json:"active_projects_count"`
	ShareForThisProject string `json:"share_for_this_project"`
}

func (s *Store) LoadPeriod(ctx context.Context, projectID finance.ProjectID, monthNumber int) (*finance.ExpensePeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, month_number, period_start, period_end,
		       dynamic_expenses_json, smm_expenses, production_expenses, fot_json,
		       models_expenses, other_expenses, other_description, revenue,
		       frozen, last_synced_at
		FROM expense_periods
		WHERE project_id = ? AND month_number = ?`,
		string(projectID), monthNumber)

	record, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, finance.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Store) SavePeriod(ctx context.Context, record *finance.ExpensePeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dynJSON, err := encodeDynamicExpenses(record.DynamicExpenses)
	if err != nil {
		return err
	}
	fotJSON, err := encodeFOT(record.FOTCalculations)
	if err != nil {
		return err
	}

	lastSynced := ""
	if !record.LastSyncedAt.IsZero() {
		lastSynced = record.LastSyncedAt.UTC().Format(time.RFC3339)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO expense_periods (
			project_id, month_number, calendar_month, period_start, period_end,
			dynamic_expenses_json, smm_expenses, production_expenses, fot_json,
			models_expenses, other_expenses, other_description, revenue,
			frozen, last_synced_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, month_number) DO UPDATE SET
			calendar_month = excluded.calendar_month,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			dynamic_expenses_json = excluded.dynamic_expenses_json,
			smm_expenses = excluded.smm_expenses,
			production_expenses = excluded.production_expenses,
			fot_json = excluded.fot_json,
			models_expenses = excluded.models_expenses,
			other_expenses = excluded.other_expenses,
			other_description = excluded.other_description,
			revenue = excluded.revenue,
			frozen = excluded.frozen,
			last_synced_at = excluded.last_synced_at,
			updated_at = excluded.updated_at`,
		string(record.ProjectID), record.MonthNumber, record.CalendarMonth.String(),
		record.PeriodStart.String(), record.PeriodEnd.String(),
		dynJSON, record.SMMExpenses.String(), record.ProductionExpenses.String(), fotJSON,
		record.ModelsExpenses.String(), record.OtherExpenses.String(), record.OtherDescription,
		record.Revenue.String(), boolToInt(record.Frozen), lastSynced,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListPeriods(ctx context.Context, projectID finance.ProjectID) ([]*finance.ExpensePeriodRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, month_number, period_start, period_end,
		       dynamic_expenses_json, smm_expenses, production_expenses, fot_json,
		       models_expenses, other_expenses, other_description, revenue,
		       frozen, last_synced_at
		FROM expense_periods
		WHERE project_id = ?
		ORDER BY month_number`,
		string(projectID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*finance.ExpensePeriodRecord
	for rows.Next() {
		record, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (*finance.ExpensePeriodRecord, error) {
	var (
		projectID, pStart, pEnd                 string
		dynJSON, fotJSON                        string
		smm, production, models, other, revenue string
		otherDesc, lastSynced                   string
		monthNumber, frozen                     int
	)
	err := row.Scan(&projectID, &monthNumber, &pStart, &pEnd,
		&dynJSON, &smm, &production, &fotJSON,
		&models, &other, &otherDesc, &revenue,
		&frozen, &lastSynced)
	if err != nil {
		return nil, err
	}

	record := &finance.ExpensePeriodRecord{
		ProjectID:          finance.ProjectID(projectID),
		MonthNumber:        monthNumber,
		SMMExpenses:        finance.MustParseMoney(smm),
		ProductionExpenses: finance.MustParseMoney(production),
		ModelsExpenses:     finance.MustParseMoney(models),
		OtherExpenses:      finance.MustParseMoney(other),
		OtherDescription:   otherDesc,
		Revenue:            finance.MustParseMoney(revenue),
		Frozen:             frozen != 0,
		CategoryTotals:     make(map[finance.CategoryID]finance.Money),
	}
	record.PeriodStart = parseDate(pStart)
	record.PeriodEnd = parseDate(pEnd)
	record.CalendarMonth = finance.CalendarMonthOf(record.PeriodStart)
	if lastSynced != "" {
		if t, err := time.Parse(time.RFC3339, lastSynced); err == nil {
			record.LastSyncedAt = t
		}
	}

	record.DynamicExpenses, err = decodeDynamicExpenses(dynJSON)
	if err != nil {
		return nil, err
	}
	record.FOTCalculations, err = decodeFOT(fotJSON)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func encodeDynamicExpenses(m map[finance.ServiceID]finance.DynamicExpense) (string, error) {
	out := make(map[string]dynamicExpenseRow, len(m))
	for id, e := range m {
		r := dynamicExpenseRow{
			ServiceName: e.ServiceName,
			Category:    string(e.Category),
			Count:       e.Count.String(),
			Rate:        e.Rate.String(),
			SyncedCount: e.SyncedCount.String(),
			SyncedRate:  e.SyncedRate.String(),
		}
		if !e.SyncedAt.IsZero() {
			r.SyncedAt = e.SyncedAt.UTC().Format(time.RFC3339)
		}
		out[string(id)] = r
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeDynamicExpenses(raw string) (map[finance.ServiceID]finance.DynamicExpense, error) {
	var in map[string]dynamicExpenseRow
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	out := make(map[finance.ServiceID]finance.DynamicExpense, len(in))
	for id, r := range in {
		e := finance.DynamicExpense{
			ServiceID:   finance.ServiceID(id),
			ServiceName: r.ServiceName,
			Category:    finance.CategoryID(r.Category),
			Count:       finance.MustParseMoney(r.Count).Value,
			Rate:        finance.MustParseMoney(r.Rate),
			SyncedCount: finance.MustParseMoney(r.SyncedCount).Value,
			SyncedRate:  finance.MustParseMoney(r.SyncedRate),
		}
		if r.SyncedAt != "" {
			if t, err := time.Parse(time.RFC3339, r.SyncedAt); err == nil {
				e.SyncedAt = t
			}
		}
		e.RecomputeCost()
		out[e.ServiceID] = e
	}
	return out, nil
}

func encodeFOT(m map[finance.UserID]finance.FOTCalculation) (string, error) {
	out := make(map[string]fotRow, len(m))
	for id, c := range m {
		out[string(id)] = fotRow{
			UserName:            c.UserName,
			JobTitle:            c.JobTitle,
			BaseSalary:          c.BaseSalary.String(),
			ActiveProjectsCount: c.ActiveProjectsCount,
			ShareForThisProject: c.ShareForThisProject.String(),
		}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func decodeFOT(raw string) (map[finance.UserID]finance.FOTCalculation, error) {
	var in map[string]fotRow
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}
	out := make(map[finance.UserID]finance.FOTCalculation, len(in))
	for id, r := range in {
		out[finance.UserID(id)] = finance.FOTCalculation{
			UserName:            r.UserName,
			JobTitle:            r.JobTitle,
			BaseSalary:          finance.MustParseMoney(r.BaseSalary),
			ActiveProjectsCount: r.ActiveProjectsCount,
			ShareForThisProject: finance.MustParseMoney(r.ShareForThisProject),
		}
	}
	return out, nil
}

// =============================================================================
// PROJECTS - finance.ProjectSource + admin CRUD
// =============================================================================

func (s *Store) GetProject(ctx context.Context, id finance.ProjectID) (*finance.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, end_date, duration_days, budget, media_budget
		FROM projects WHERE id = ?`, string(id))

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, finance.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) SaveProject(ctx context.Context, p finance.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, start_date, end_date, duration_days, budget, media_budget)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			duration_days = excluded.duration_days,
			budget = excluded.budget,
			media_budget = excluded.media_budget`,
		string(p.ID), p.Name, formatDate(p.StartDate), formatDate(p.EndDate),
		p.DurationDays, p.Budget.String(), p.MediaBudget.String())
	return err
}

func (s *Store) ListProjects(ctx context.Context) ([]finance.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, duration_days, budget, media_budget
		FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []finance.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func scanProject(row rowScanner) (*finance.Project, error) {
	var (
		id, name, start, end, budget, mediaBudget string
		durationDays                              int
	)
	if err := row.Scan(&id, &name, &start, &end, &durationDays, &budget, &mediaBudget); err != nil {
		return nil, err
	}
	return &finance.Project{
		ID:           finance.ProjectID(id),
		Name:         name,
		StartDate:    parseDate(start),
		EndDate:      parseDate(end),
		DurationDays: durationDays,
		Budget:       finance.MustParseMoney(budget),
		MediaBudget:  finance.MustParseMoney(mediaBudget),
	}, nil
}

// =============================================================================
// STAFF & ASSIGNMENTS - finance.StaffSource + admin CRUD
// =============================================================================

func (s *Store) FixedSalaryStaff(ctx context.Context) ([]finance.StaffMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, name, job_title, base_salary
		FROM staff WHERE fixed_salary = 1 ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []finance.StaffMember
	for rows.Next() {
		var userID, name, jobTitle, salary string
		if err := rows.Scan(&userID, &name, &jobTitle, &salary); err != nil {
			return nil, err
		}
		roster = append(roster, finance.StaffMember{
			UserID:     finance.UserID(userID),
			Name:       name,
			JobTitle:   jobTitle,
			BaseSalary: finance.MustParseMoney(salary),
		})
	}
	return roster, rows.Err()
}

func (s *Store) ActiveProjectCount(ctx context.Context, userID finance.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT project_id) FROM project_assignments
		WHERE user_id = ? AND status = ?`,
		string(userID), StatusActive).Scan(&count)
	return count, err
}

func (s *Store) AssignedToProject(ctx context.Context, userID finance.UserID, projectID finance.ProjectID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM project_assignments
		WHERE user_id = ? AND project_id = ? AND status = ?`,
		string(userID), string(projectID), StatusActive).Scan(&count)
	return count > 0, err
}

// SaveStaffMember upserts a roster entry. fixedSalary=false marks
// KPI/performance-paid members the allocator must skip.
func (s *Store) SaveStaffMember(ctx context.Context, m finance.StaffMember, fixedSalary bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (user_id, name, job_title, base_salary, fixed_salary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			job_title = excluded.job_title,
			base_salary = excluded.base_salary,
			fixed_salary = excluded.fixed_salary`,
		string(m.UserID), m.Name, m.JobTitle, m.BaseSalary.String(), boolToInt(fixedSalary))
	return err
}

// SaveAssignment upserts a staff-to-project assignment with a status.
func (s *Store) SaveAssignment(ctx context.Context, id string, userID finance.UserID, projectID finance.ProjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_assignments (id, user_id, project_id, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, project_id) DO UPDATE SET
			status = excluded.status`,
		id, string(userID), string(projectID), status)
	return err
}

// =============================================================================
// USAGE - finance.UsageSource (rate cards + content items)
// =============================================================================

// ServiceUsage counts dated content items per billable service within the
// period window [start, end) and pairs each count with the effective rate
// (project override first, rate card default otherwise). Every rate card
// service is reported, including zero-count ones, so the record always
// carries the full service list.
func (s *Store) ServiceUsage(ctx context.Context, projectID finance.ProjectID, window finance.BillingPeriod) (map[finance.ServiceID]finance.UsageEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT rc.service_id, rc.name,
		       COALESCE(pr.rate, rc.rate) AS rate,
		       (SELECT COUNT(1) FROM content_items ci
		        WHERE ci.project_id = ?
		          AND ci.service_id = rc.service_id
		          AND ci.published_at >= ? AND ci.published_at < ?) AS cnt
		FROM rate_cards rc
		LEFT JOIN project_rates pr
		       ON pr.service_id = rc.service_id AND pr.project_id = ?`,
		string(projectID), window.Start.String(), window.End.String(), string(projectID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make(map[finance.ServiceID]finance.UsageEntry)
	for rows.Next() {
		var serviceID, name, rate string
		var count int64
		if err := rows.Scan(&serviceID, &name, &rate, &count); err != nil {
			return nil, err
		}
		usage[finance.ServiceID(serviceID)] = finance.UsageEntry{
			ServiceName: name,
			Count:       decimal.NewFromInt(count),
			Rate:        finance.MustParseMoney(rate),
		}
	}
	return usage, rows.Err()
}

func (s *Store) SaveRate(ctx context.Context, serviceID finance.ServiceID, name string, rate finance.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_cards (service_id, name, rate)
		VALUES (?, ?, ?)
		ON CONFLICT(service_id) DO UPDATE SET
			name = excluded.name,
			rate = excluded.rate`,
		string(serviceID), name, rate.String())
	return err
}

func (s *Store) SaveProjectRate(ctx context.Context, projectID finance.ProjectID, serviceID finance.ServiceID, rate finance.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_rates (project_id, service_id, rate)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id, service_id) DO UPDATE SET
			rate = excluded.rate`,
		string(projectID), string(serviceID), rate.String())
	return err
}

// AddContentItem records one published content/task item; its date decides
// which period window counts it.
func (s *Store) AddContentItem(ctx context.Context, projectID finance.ProjectID, serviceID finance.ServiceID, title string, publishedAt finance.TimePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_items (project_id, service_id, title, published_at)
		VALUES (?, ?, ?, ?)`,
		string(projectID), string(serviceID), title, publishedAt.String())
	return err
}

// =============================================================================
// CATEGORIES - finance.CategorySource + admin CRUD
// =============================================================================

func (s *Store) Categories(ctx context.Context) ([]finance.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, icon, sort_order FROM categories ORDER BY sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []finance.Category
	for rows.Next() {
		var id, name, icon string
		var sortOrder int
		if err := rows.Scan(&id, &name, &icon, &sortOrder); err != nil {
			return nil, err
		}
		cats = append(cats, finance.Category{
			ID:        finance.CategoryID(id),
			Name:      name,
			Icon:      icon,
			SortOrder: sortOrder,
		})
	}
	return cats, rows.Err()
}

func (s *Store) SaveCategory(ctx context.Context, c finance.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, icon, sort_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			sort_order = excluded.sort_order`,
		string(c.ID), c.Name, c.Icon, c.SortOrder)
	return err
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears all data (dev/testing only).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"expense_periods", "content_items", "project_rates", "rate_cards",
		"project_assignments", "staff", "projects", "categories",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatDate(tp finance.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func parseDate(raw string) finance.TimePoint {
	if raw == "" {
		return finance.TimePoint{}
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return finance.TimePoint{}
	}
	return finance.TimePointFrom(t)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
