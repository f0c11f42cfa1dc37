package recurrence

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// Non-standard properties carrying the simple frequency of a task and the
// JSON form of a structured rule.
const (
	PropFrequency  = "X-CHORECAL-FREQUENCY"
	PropCustomDays = "X-CHORECAL-CUSTOM-DAYS"
	PropRule       = "X-CHORECAL-RULE"
)

// ScheduleFromComponent extracts a schedule from an iCal component
// (usually a VTODO). Dates are resolved in loc. A structured rule in
// PropRule takes precedence over RRULE.
func ScheduleFromComponent(comp *ical.Component, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	s := Schedule{}

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		spec := ParseRuleSpec(rruleProp.Value)
		s.Rule = &spec
	}
	if text, err := comp.Props.Text(PropRule); err == nil && text != "" {
		var spec RuleSpec
		if err := json.Unmarshal([]byte(text), &spec); err == nil && !spec.IsZero() {
			s.Rule = &spec
		}
	}

	for _, exdateProp := range comp.Props.Values(ical.PropExceptionDates) {
		s.ExceptionDates = append(s.ExceptionDates, parseExceptionDates(exdateProp.Value, exdateProp.Params, loc)...)
	}
	s.ExceptionDates = UniqueDates(s.ExceptionDates)

	if freqProp := comp.Props.Get(PropFrequency); freqProp != nil {
		s.Frequency = ParseFrequency(freqProp.Value)
	}
	if daysProp := comp.Props.Get(PropCustomDays); daysProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(daysProp.Value)); err == nil {
			s.CustomDays = n
		}
	}

	if completed, err := comp.Props.DateTime(ical.PropCompleted, loc); err == nil && !completed.IsZero() {
		s.LastCompletedAt = &completed
	}

	return s
}

// ApplySchedule writes s onto comp as RRULE, EXDATE and the extension
// properties. Structured rules render UNTIL in loc and are also written to
// PropRule so that invalid ones survive a round trip.
func ApplySchedule(comp *ical.Component, s Schedule, loc *time.Location) {
	if s.HasRule() {
		text := s.Rule.Raw()
		if r, ok := s.Rule.Structured(); ok {
			text = r.Format(loc)
			if b, err := json.Marshal(r); err == nil {
				comp.Props.SetText(PropRule, string(b))
			}
		}
		if text != "" {
			comp.Props.Set(&ical.Prop{
				Name:   ical.PropRecurrenceRule,
				Params: ical.Params{},
				Value:  strings.TrimPrefix(text, "RRULE:"),
			})
		}
	}

	if len(s.ExceptionDates) > 0 {
		values := make([]string, 0, len(s.ExceptionDates))
		for _, d := range UniqueDates(s.ExceptionDates) {
			values = append(values, d.In(time.UTC).Format("20060102"))
		}
		comp.Props.Set(&ical.Prop{
			Name:   ical.PropExceptionDates,
			Params: ical.Params{ical.ParamValue: []string{string(ical.ValueDate)}},
			Value:  strings.Join(values, ","),
		})
	}

	if s.Frequency != "" {
		comp.Props.SetText(PropFrequency, string(s.Frequency))
	}
	if s.Frequency == FrequencyCustom {
		comp.Props.SetText(PropCustomDays, strconv.Itoa(s.CustomDays))
	}
	if s.LastCompletedAt != nil {
		comp.Props.SetDateTime(ical.PropCompleted, s.LastCompletedAt.UTC())
	}
}

// parseExceptionDates parses an EXDATE property value into calendar dates
func parseExceptionDates(value string, params ical.Params, loc *time.Location) []Date {
	if value == "" {
		return nil
	}

	isDateOnly := false
	if valueParam := params[ical.ParamValue]; len(valueParam) > 0 && strings.EqualFold(valueParam[0], "DATE") {
		isDateOnly = true
	}

	// Floating and TZID date-times are read in the TZID zone when known.
	zone := loc
	if tzid := params.Get(ical.ParamTimezoneID); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			zone = l
		}
	}

	var exdates []Date
	for _, exdateStr := range strings.Split(value, ",") {
		exdateStr = strings.TrimSpace(exdateStr)
		if exdateStr == "" {
			continue
		}

		var t time.Time
		var err error
		switch {
		case isDateOnly:
			t, err = time.ParseInLocation("20060102", exdateStr, loc)
		case strings.HasSuffix(exdateStr, "Z"):
			t, err = time.Parse("20060102T150405Z", exdateStr)
		default:
			t, err = time.ParseInLocation("20060102T150405", exdateStr, zone)
			if err != nil {
				t, err = time.ParseInLocation("20060102", exdateStr, loc)
			}
		}
		if err == nil {
			exdates = append(exdates, DateOf(t.In(loc)))
		}
	}
	return exdates
}

// UniqueDates returns dates sorted with duplicates removed.
func UniqueDates(dates []Date) []Date {
	if len(dates) == 0 {
		return nil
	}
	seen := make(map[Date]struct{}, len(dates))
	out := make([]Date, 0, len(dates))
	for _, d := range dates {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
