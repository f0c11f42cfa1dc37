package recurrence

import (
	"fmt"
	"sort"
	"time"
)

// Holiday is a fixed-date public holiday.
type Holiday struct {
	Day  MonthDay
	Name string
}

// HolidayCalendar is an immutable table of fixed-date holidays. Only month
// and day are compared; the year never matters.
type HolidayCalendar struct {
	days map[MonthDay]string
}

// NewHolidayCalendar builds a calendar from the given holidays. Later
// entries with the same month-day replace earlier names.
func NewHolidayCalendar(holidays ...Holiday) HolidayCalendar {
	days := make(map[MonthDay]string, len(holidays))
	for _, h := range holidays {
		days[h.Day] = h.Name
	}
	return HolidayCalendar{days: days}
}

// ParseHolidayCalendar builds a calendar from MM-DD keys.
func ParseHolidayCalendar(keys []string) (HolidayCalendar, error) {
	holidays := make([]Holiday, 0, len(keys))
	for _, k := range keys {
		md, err := ParseMonthDay(k)
		if err != nil {
			return HolidayCalendar{}, fmt.Errorf("holiday calendar: %w", err)
		}
		holidays = append(holidays, Holiday{Day: md})
	}
	return NewHolidayCalendar(holidays...), nil
}

// FranceHolidays returns the French fixed-date public holidays.
func FranceHolidays() HolidayCalendar {
	return NewHolidayCalendar(
		Holiday{Day: MonthDay{time.January, 1}, Name: "Jour de l'an"},
		Holiday{Day: MonthDay{time.May, 1}, Name: "Fête du Travail"},
		Holiday{Day: MonthDay{time.May, 8}, Name: "Victoire 1945"},
		Holiday{Day: MonthDay{time.July, 14}, Name: "Fête nationale"},
		Holiday{Day: MonthDay{time.August, 15}, Name: "Assomption"},
		Holiday{Day: MonthDay{time.November, 1}, Name: "Toussaint"},
		Holiday{Day: MonthDay{time.November, 11}, Name: "Armistice 1918"},
		Holiday{Day: MonthDay{time.December, 25}, Name: "Noël"},
	)
}

// IsHoliday reports whether t falls on a holiday, by t's own month and day.
func (c HolidayCalendar) IsHoliday(t time.Time) bool {
	_, ok := c.days[MonthDayOf(t)]
	return ok
}

// Name returns the holiday name for md, if any.
func (c HolidayCalendar) Name(md MonthDay) (string, bool) {
	name, ok := c.days[md]
	return name, ok
}

// Len returns the number of holidays in the table.
func (c HolidayCalendar) Len() int {
	return len(c.days)
}

// Days returns the holiday keys sorted by month and day.
func (c HolidayCalendar) Days() []MonthDay {
	out := make([]MonthDay, 0, len(c.days))
	for md := range c.days {
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Day < out[j].Day
	})
	return out
}

// Dates returns every holiday date for the years in [fromYear, toYear],
// located in loc at the given clock time. Feb 29 is skipped in common years.
func (c HolidayCalendar) Dates(fromYear, toYear int, clock time.Time, loc *time.Location) []time.Time {
	h, m, s := clock.Clock()
	var out []time.Time
	for y := fromYear; y <= toYear; y++ {
		for _, md := range c.Days() {
			if md.Day > daysIn(y, md.Month) {
				continue
			}
			out = append(out, time.Date(y, md.Month, md.Day, h, m, s, 0, loc))
		}
	}
	return out
}
