package finance

import "time"

// =============================================================================
// TIME POINT - Day-granularity time abstraction
// =============================================================================

// TimePoint is a calendar day in UTC. All period boundaries, sync timestamps
// and content dates in this system are day-granular; a thin wrapper keeps
// comparisons normalized and stops raw time.Time zone/clock noise from
// leaking into period arithmetic.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func TimePointFrom(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return TimePointFrom(time.Now().UTC())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePointFrom(tp.Time.AddDate(0, 0, n)) }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePointFrom(tp.Time.AddDate(0, n, 0)) }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.normalize().Format("2006-01-02") }

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

// StartOfNextMonth returns the first day of the month after the given point.
func StartOfNextMonth(tp TimePoint) TimePoint {
	return NewTimePoint(tp.Year(), tp.Month(), 1).AddMonths(1)
}

// CalendarMonth is a year+month label for a billing period ("2024-02").
// It identifies which calendar month a period is reported under, even in
// thirty-day mode where the window straddles two months.
type CalendarMonth struct {
	Year  int
	Month time.Month
}

func CalendarMonthOf(tp TimePoint) CalendarMonth {
	return CalendarMonth{Year: tp.Year(), Month: tp.Month()}
}

func (cm CalendarMonth) String() string {
	return time.Date(cm.Year, cm.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
