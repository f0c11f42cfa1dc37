package recurrence

import (
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ruleAdvancer evaluates recurrence rules with rrule-go.
type ruleAdvancer struct {
	exclusion   *ExclusionEvaluator
	holidays    HolidayCalendar
	loc         *time.Location
	yearsBefore int
	yearsAfter  int
	limit       int
}

// advance returns the first non-excluded occurrence strictly after the
// later of from and lastCompletedAt. The rule is anchored (DTSTART) at
// lastCompletedAt when present, else at from.
func (a *ruleAdvancer) advance(spec RuleSpec, from time.Time, lastCompletedAt *time.Time, exceptions []Date) mo.Result[time.Time] {
	from = from.In(a.loc).Truncate(time.Second)
	base := from
	if lastCompletedAt != nil {
		base = lastCompletedAt.In(a.loc).Truncate(time.Second)
	}
	after := base
	if from.After(after) {
		after = from
	}
	after = after.Add(time.Second)

	set, err := a.buildSet(spec, base, after, exceptions)
	if err != nil {
		return mo.Err[time.Time](err)
	}

	next := set.Iterator()
	examined := 0
	for occ, ok := next(); ok; occ, ok = next() {
		if occ.Before(after) {
			continue
		}
		// EXDATEs only cover the holiday window; anything past it is
		// screened here.
		if !a.exclusion.IsExcluded(occ, exceptions) {
			return mo.Ok(occ)
		}
		examined++
		if examined >= a.limit {
			return mo.Err[time.Time](ErrSkipLimit)
		}
	}
	return mo.Err[time.Time](ErrRuleExhausted)
}

// buildSet anchors the rule at dtstart and registers exception dates and
// the holidays of the years around after as EXDATEs.
func (a *ruleAdvancer) buildSet(spec RuleSpec, dtstart, after time.Time, exceptions []Date) (*rrule.Set, error) {
	opt, err := spec.options(a.loc)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRule, err)
	}

	set := &rrule.Set{}
	set.RRule(r)

	h, m, s := dtstart.Clock()
	for _, ex := range exceptions {
		set.ExDate(time.Date(ex.Year, ex.Month, ex.Day, h, m, s, 0, a.loc))
	}
	year := after.Year()
	for _, hd := range a.holidays.Dates(year-a.yearsBefore, year+a.yearsAfter, dtstart, a.loc) {
		set.ExDate(hd)
	}
	return set, nil
}
