package recurrence

import (
	"strings"
	"time"
)

// Frequency is the coarse repeat unit of a task without a recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// ParseFrequency normalizes s. Unknown values are returned as-is so that
// Advance can apply its weekly default.
func ParseFrequency(s string) Frequency {
	return Frequency(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// Advance computes the next date after from for a simple frequency,
// ignoring exclusions. The time of day is kept.
//
// Monthly keeps the day of month and clamps to the last day of shorter
// months (Jan 31 -> Feb 28/29). Custom advances max(customDays, 1) days.
// Anything unrecognized advances one week.
func Advance(f Frequency, customDays int, from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addMonthClamped(from, 1)
	case FrequencyCustom:
		return from.AddDate(0, 0, max(customDays, 1))
	default:
		return from.AddDate(0, 0, 7)
	}
}

func addMonthClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, m+time.Month(months), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}
