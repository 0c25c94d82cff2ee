/*
period.go - Billing period derivation

PURPOSE:
  Converts a project's start date (+ end date or duration) into an ordered
  sequence of monthly billing periods, and locates which period number
  "today" falls into. Pure functions of their inputs: finite, deterministic,
  restartable.

PERIOD MODES:
  ThirtyDay (default): period N covers [start+30(N-1)d, start+30Nd).
    A 90-day project starting 2024-01-10 yields
    #1 [01-10, 02-09), #2 [02-09, 03-10), #3 [03-10, 04-09).
  CalendarMonth: period 1 runs from the start date to the first day of the
    next month; subsequent periods are whole calendar months.

INVARIANTS:
  - Periods are contiguous and non-overlapping; End is exclusive.
  - MonthNumber is monotonic starting at 1.
  - The union of all periods exactly covers [start, end).
  - Ongoing projects (no end) grow new periods implicitly; the current
    period number keeps increasing with the calendar.

LENIENCY:
  A missing/zero start date yields period 1 over today's calendar month
  instead of failing, so the dashboard stays usable for incompletely
  configured projects. No financial data is at risk: only the window
  defaults. Callers get ErrInvalidPeriodWindow alongside the fallback so
  they can log/alert on the data-quality problem.

SEE ALSO:
  - types.go: Project, TimePoint
  - engine.go: Loads or initializes the record for a resolved period
*/
package finance

// =============================================================================
// BILLING PERIOD
// =============================================================================

// BillingPeriod is one monthly slice of a project's financial life.
// Derived on demand, never stored independently.
type BillingPeriod struct {
	ProjectID     ProjectID
	MonthNumber   int // 1-based
	CalendarMonth CalendarMonth
	Start         TimePoint
	End           TimePoint // exclusive
}

// Contains returns true if t falls within [Start, End).
func (p BillingPeriod) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.Before(p.End)
}

func (p BillingPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// PeriodMode selects how a project's life is sliced into periods.
type PeriodMode string

const (
	PeriodModeThirtyDay     PeriodMode = "thirty_day"
	PeriodModeCalendarMonth PeriodMode = "calendar_month"
)

const thirtyDays = 30

// =============================================================================
// PERIOD CALCULATOR
// =============================================================================

// PeriodCalculator derives billing periods for projects. Zero value uses
// thirty-day mode.
type PeriodCalculator struct {
	Mode PeriodMode
}

func (pc PeriodCalculator) mode() PeriodMode {
	if pc.Mode == "" {
		return PeriodModeThirtyDay
	}
	return pc.Mode
}

// PeriodN returns the Nth billing period for a project starting at start.
// n must be >= 1. The period is untruncated; callers with an end date use
// PeriodsFor or truncate against it themselves.
func (pc PeriodCalculator) PeriodN(projectID ProjectID, start TimePoint, n int) BillingPeriod {
	if n < 1 {
		n = 1
	}
	var pStart, pEnd TimePoint
	switch pc.mode() {
	case PeriodModeCalendarMonth:
		if n == 1 {
			pStart = start
		} else {
			pStart = StartOfNextMonth(start).AddMonths(n - 2)
		}
		pEnd = StartOfNextMonth(start).AddMonths(n - 1)
	default: // thirty-day
		pStart = start.AddDays(thirtyDays * (n - 1))
		pEnd = start.AddDays(thirtyDays * n)
	}
	return BillingPeriod{
		ProjectID:     projectID,
		MonthNumber:   n,
		CalendarMonth: CalendarMonthOf(pStart),
		Start:         pStart,
		End:           pEnd,
	}
}

// PeriodsFor returns the full ordered period sequence for a bounded project.
// The last period is truncated when end cuts it short. Returns nil when the
// bounds are unusable.
func (pc PeriodCalculator) PeriodsFor(projectID ProjectID, start, end TimePoint) []BillingPeriod {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil
	}
	var periods []BillingPeriod
	for n := 1; ; n++ {
		p := pc.PeriodN(projectID, start, n)
		if p.Start.AfterOrEqual(end) {
			break
		}
		if p.End.After(end) {
			p.End = end
		}
		periods = append(periods, p)
		if p.End.Equal(end) {
			break
		}
	}
	return periods
}

// PeriodsThrough returns periods 1..n for an open-ended project. Ongoing
// projects have no bound to truncate against, so all windows are whole.
func (pc PeriodCalculator) PeriodsThrough(projectID ProjectID, start TimePoint, n int) []BillingPeriod {
	if start.IsZero() || n < 1 {
		return nil
	}
	periods := make([]BillingPeriod, 0, n)
	for i := 1; i <= n; i++ {
		periods = append(periods, pc.PeriodN(projectID, start, i))
	}
	return periods
}

// CurrentPeriodNumber locates the period whose [start, end) window contains
// today. Days before the project start map to period 1; ongoing projects
// keep growing new periods as the calendar advances.
func (pc PeriodCalculator) CurrentPeriodNumber(start, today TimePoint) int {
	if start.IsZero() {
		return 1
	}
	if today.Before(start) {
		return 1
	}
	switch pc.mode() {
	case PeriodModeCalendarMonth:
		n := (today.Year()-start.Year())*12 + int(today.Month()) - int(start.Month()) + 1
		if n < 1 {
			return 1
		}
		return n
	default:
		return DaysBetween(start, today)/thirtyDays + 1
	}
}

// ResolvePeriod resolves the window for (project, monthNumber), clamping the
// end to the project's own end when one is set.
//
// A zero start date falls back to today's calendar month and reports
// ErrInvalidPeriodWindow so the caller can surface the data-quality signal;
// the returned period is still usable.
func (pc PeriodCalculator) ResolvePeriod(project Project, monthNumber int) (BillingPeriod, error) {
	if project.StartDate.IsZero() {
		today := Today()
		monthStart := StartOfMonth(today.Year(), today.Month())
		return BillingPeriod{
			ProjectID:     project.ID,
			MonthNumber:   1,
			CalendarMonth: CalendarMonthOf(monthStart),
			Start:         monthStart,
			End:           StartOfNextMonth(monthStart),
		}, ErrInvalidPeriodWindow
	}
	p := pc.PeriodN(project.ID, project.StartDate, monthNumber)
	if end := project.EffectiveEnd(); !end.IsZero() && end.After(p.Start) && p.End.After(end) {
		p.End = end
	}
	return p, nil
}
