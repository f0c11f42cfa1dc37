package recurrence

import "time"

// DefaultSkipLimit bounds SkipExcluded. Ten years of consecutive excluded
// days means the configuration excludes everything.
const DefaultSkipLimit = 3650

// ExclusionEvaluator decides whether a calendar date may carry a due date.
type ExclusionEvaluator struct {
	holidays HolidayCalendar
	loc      *time.Location
	limit    int
}

// NewExclusionEvaluator creates an evaluator over the given holiday table.
// Dates are compared in loc; a non-positive limit means DefaultSkipLimit.
func NewExclusionEvaluator(holidays HolidayCalendar, loc *time.Location, limit int) *ExclusionEvaluator {
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = DefaultSkipLimit
	}
	return &ExclusionEvaluator{holidays: holidays, loc: loc, limit: limit}
}

// IsExcluded reports whether t's calendar date is a holiday or one of the
// exception dates. The time of day is ignored.
func (e *ExclusionEvaluator) IsExcluded(t time.Time, exceptions []Date) bool {
	local := t.In(e.loc)
	if e.holidays.IsHoliday(local) {
		return true
	}
	d := DateOf(local)
	for _, ex := range exceptions {
		if ex == d {
			return true
		}
	}
	return false
}

// SkipExcluded moves t forward one day at a time until it is no longer
// excluded. If the limit is hit, the original t is returned with ok=false.
func (e *ExclusionEvaluator) SkipExcluded(t time.Time, exceptions []Date) (time.Time, bool) {
	candidate := t
	for i := 0; i < e.limit; i++ {
		if !e.IsExcluded(candidate, exceptions) {
			return candidate, true
		}
		candidate = candidate.In(e.loc).AddDate(0, 0, 1)
	}
	return t, false
}
