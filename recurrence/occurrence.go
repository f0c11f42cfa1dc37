package recurrence

import (
	"time"
)

// Occurrences enumerates the occurrences of s in [rangeStart, rangeEnd),
// starting from anchor, without touching any stored state. At most
// MaxOccurrences results are returned.
//
// Rule schedules expand the rule with anchor as DTSTART. Frequency
// schedules chain the same advance-then-skip step the engine uses on
// completion, starting at anchor. A malformed rule projects only anchor.
func (e *Engine) Occurrences(s Schedule, anchor, rangeStart, rangeEnd time.Time) []time.Time {
	anchor = anchor.In(e.loc)
	rangeStart = rangeStart.In(e.loc)
	rangeEnd = rangeEnd.In(e.loc)
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	var key uint64
	if e.cache != nil {
		key = projectionKey(s, anchor, rangeStart, rangeEnd)
		if cached, ok := e.cache.Get(key); ok {
			return cached
		}
	}

	var out []time.Time
	if s.HasRule() {
		out = e.projectRule(s, anchor, rangeStart, rangeEnd)
	} else {
		out = e.projectFrequency(s, anchor, rangeStart, rangeEnd)
	}

	if e.cache != nil {
		e.cache.Set(key, out)
	}
	return out
}

// OccursOn reports whether s has an occurrence on calendar date d.
func (e *Engine) OccursOn(s Schedule, anchor time.Time, d Date) bool {
	return len(e.Occurrences(s, anchor, d.In(e.loc), d.AddDays(1).In(e.loc))) > 0
}

func (e *Engine) projectRule(s Schedule, anchor, rangeStart, rangeEnd time.Time) []time.Time {
	dtstart := anchor.Truncate(time.Second)
	set, err := e.rules.buildSet(*s.Rule, dtstart, rangeStart, s.ExceptionDates)
	if err != nil {
		e.logger.Debug("projecting malformed rule as a single occurrence",
			"rule", s.Rule.Raw(),
			"error", err)
		if inRange(anchor, rangeStart, rangeEnd) && !e.exclusion.IsExcluded(anchor, s.ExceptionDates) {
			return []time.Time{anchor}
		}
		return nil
	}

	var out []time.Time
	next := set.Iterator()
	for occ, ok := next(); ok; occ, ok = next() {
		if !occ.Before(rangeEnd) {
			break
		}
		if occ.Before(rangeStart) || e.exclusion.IsExcluded(occ, s.ExceptionDates) {
			continue
		}
		out = append(out, occ)
		if len(out) >= e.config.MaxOccurrences {
			break
		}
	}
	return out
}

func (e *Engine) projectFrequency(s Schedule, anchor, rangeStart, rangeEnd time.Time) []time.Time {
	cur, ok := e.exclusion.SkipExcluded(anchor, s.ExceptionDates)
	if !ok {
		return nil
	}

	var out []time.Time
	for cur.Before(rangeEnd) {
		if !cur.Before(rangeStart) {
			out = append(out, cur)
			if len(out) >= e.config.MaxOccurrences {
				break
			}
		}
		cur, ok = e.exclusion.SkipExcluded(Advance(s.Frequency, s.CustomDays, cur), s.ExceptionDates)
		if !ok {
			break
		}
	}
	return out
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
