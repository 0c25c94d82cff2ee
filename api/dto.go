/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the internal domain
  model from the external contract. Money values travel as decimal strings
  so precision never leaks through float64 on the wire.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"sort"
	"time"

	"github.com/warp/finance-engine/finance"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type ProjectDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	DurationDays int    `json:"duration_days,omitempty"`
	Budget       string `json:"budget"`
	MediaBudget  string `json:"media_budget"`
}

type DynamicExpenseDTO struct {
	ServiceID       string `json:"service_id"`
	ServiceName     string `json:"service_name"`
	Category        string `json:"category"`
	Count           string `json:"count"`
	Rate            string `json:"rate"`
	Cost            string `json:"cost"`
	ManuallyEdited  bool   `json:"manually_edited"`
	SyncedAt        string `json:"synced_at,omitempty"`
}

type FOTCalculationDTO struct {
	UserID              string `json:"user_id"`
	UserName            string `json:"user_name"`
	JobTitle            string `json:"job_title"`
	BaseSalary          string `json:"base_salary"`
	ActiveProjectsCount int    `json:"active_projects_count"`
	ShareForThisProject string `json:"share_for_this_project"`
}

type PeriodRecordDTO struct {
	ProjectID     string `json:"project_id"`
	MonthNumber   int    `json:"month_number"`
	CalendarMonth string `json:"calendar_month"`
	PeriodStart   string `json:"period_start"`
	PeriodEnd     string `json:"period_end"`

	DynamicExpenses []DynamicExpenseDTO `json:"dynamic_expenses"`
	FOTCalculations []FOTCalculationDTO `json:"fot_calculations"`
	CategoryTotals  map[string]string   `json:"category_totals"`

	SMMExpenses        string `json:"smm_expenses"`
	ProductionExpenses string `json:"production_expenses"`
	FOTTotal           string `json:"fot_total"`
	ModelsExpenses     string `json:"models_expenses"`
	OtherExpenses      string `json:"other_expenses"`
	OtherDescription   string `json:"other_description,omitempty"`
	Revenue            string `json:"revenue"`
	TotalExpenses      string `json:"total_expenses"`
	MarginPercent      string `json:"margin_percent"`

	Frozen       bool   `json:"frozen"`
	State        string `json:"state"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`

	// Warning carries the non-fatal stale-data signal ("sync failed,
	// showing last synced state") when a pass could not complete.
	Warning string `json:"warning,omitempty"`
}

type PeriodListDTO struct {
	CurrentMonthNumber int               `json:"current_month_number"`
	Periods            []PeriodRecordDTO `json:"periods"`
}

type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	SortOrder int    `json:"sort_order"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type CreateProjectRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date"` // 2006-01-02, may be empty
	EndDate      string `json:"end_date"`
	DurationDays int    `json:"duration_days"`
	Budget       string `json:"budget"`
	MediaBudget  string `json:"media_budget"`
}

type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type ServiceLineRequest struct {
	Count *string `json:"count,omitempty"`
	Rate  *string `json:"rate,omitempty"`
}

type FreezeRequest struct {
	Frozen bool `json:"frozen"`
}

type StaffRequest struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	JobTitle    string `json:"job_title"`
	BaseSalary  string `json:"base_salary"`
	FixedSalary *bool  `json:"fixed_salary,omitempty"` // default true
}

type AssignmentRequest struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

type RateRequest struct {
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
	Rate      string `json:"rate"`
	ProjectID string `json:"project_id,omitempty"` // set = project override
}

type ContentItemRequest struct {
	ProjectID   string `json:"project_id"`
	ServiceID   string `json:"service_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"` // 2006-01-02
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProjectDTO(p finance.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:           string(p.ID),
		Name:         p.Name,
		DurationDays: p.DurationDays,
		Budget:       p.Budget.String(),
		MediaBudget:  p.MediaBudget.String(),
	}
	if !p.StartDate.IsZero() {
		dto.StartDate = p.StartDate.String()
	}
	if !p.EndDate.IsZero() {
		dto.EndDate = p.EndDate.String()
	}
	return dto
}

func toPeriodDTO(r *finance.ExpensePeriodRecord) PeriodRecordDTO {
	dto := PeriodRecordDTO{
		ProjectID:          string(r.ProjectID),
		MonthNumber:        r.MonthNumber,
		CalendarMonth:      r.CalendarMonth.String(),
		PeriodStart:        r.PeriodStart.String(),
		PeriodEnd:          r.PeriodEnd.String(),
		SMMExpenses:        r.SMMExpenses.String(),
		ProductionExpenses: r.ProductionExpenses.String(),
		FOTTotal:           r.FOTTotal.String(),
		ModelsExpenses:     r.ModelsExpenses.String(),
		OtherExpenses:      r.OtherExpenses.String(),
		OtherDescription:   r.OtherDescription,
		Revenue:            r.Revenue.String(),
		TotalExpenses:      r.TotalExpenses.String(),
		MarginPercent:      r.MarginPercent.String(),
		Frozen:             r.Frozen,
		State:              string(finance.StateOf(r)),
		CategoryTotals:     make(map[string]string, len(r.CategoryTotals)),
		DynamicExpenses:    make([]DynamicExpenseDTO, 0, len(r.DynamicExpenses)),
		FOTCalculations:    make([]FOTCalculationDTO, 0, len(r.FOTCalculations)),
	}
	if !r.LastSyncedAt.IsZero() {
		dto.LastSyncedAt = r.LastSyncedAt.UTC().Format(time.RFC3339)
	}

	for cat, total := range r.CategoryTotals {
		dto.CategoryTotals[string(cat)] = total.String()
	}

	for _, e := range r.DynamicExpenses {
		ed := DynamicExpenseDTO{
			ServiceID:      string(e.ServiceID),
			ServiceName:    e.ServiceName,
			Category:       string(e.Category),
			Count:          e.Count.String(),
			Rate:           e.Rate.String(),
			Cost:           e.Cost.String(),
			ManuallyEdited: e.IsManuallyEdited(),
		}
		if !e.SyncedAt.IsZero() {
			ed.SyncedAt = e.SyncedAt.UTC().Format(time.RFC3339)
		}
		dto.DynamicExpenses = append(dto.DynamicExpenses, ed)
	}
	sort.Slice(dto.DynamicExpenses, func(i, j int) bool {
		return dto.DynamicExpenses[i].ServiceID < dto.DynamicExpenses[j].ServiceID
	})

	for id, c := range r.FOTCalculations {
		dto.FOTCalculations = append(dto.FOTCalculations, FOTCalculationDTO{
			UserID:              string(id),
			UserName:            c.UserName,
			JobTitle:            c.JobTitle,
			BaseSalary:          c.BaseSalary.String(),
			ActiveProjectsCount: c.ActiveProjectsCount,
			ShareForThisProject: c.ShareForThisProject.String(),
		})
	}
	sort.Slice(dto.FOTCalculations, func(i, j int) bool {
		return dto.FOTCalculations[i].UserID < dto.FOTCalculations[j].UserID
	})

	return dto
}

func toCategoryDTO(c finance.Category) CategoryDTO {
	return CategoryDTO{
		ID:        string(c.ID),
		Name:      c.Name,
		Icon:      c.Icon,
		SortOrder: c.SortOrder,
	}
}
