package recurrence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

var (
	// ErrMalformedRule is reported when a recurrence rule cannot be parsed or validated.
	ErrMalformedRule = errors.New("malformed recurrence rule")
	// ErrRuleExhausted is reported when a rule has no occurrence after the search point.
	ErrRuleExhausted = errors.New("recurrence rule has no further occurrence")
	// ErrSkipLimit is reported when every examined candidate was excluded.
	ErrSkipLimit = errors.New("exclusion skip limit reached")
)

// Rule is the structured form of a recurrence rule.
type Rule struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
	// DaysOfWeek uses 0=Sunday ... 6=Saturday and only applies to weekly rules.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`
	EndDate    *Date `json:"endDate,omitempty"`
}

var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Validate checks the structured rule invariants.
func (r Rule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("%w: unsupported frequency %q", ErrMalformedRule, r.Frequency)
	}
	if r.Interval < 1 {
		return fmt.Errorf("%w: interval must be at least 1", ErrMalformedRule)
	}
	if r.DaysOfWeek != nil {
		if r.Frequency != FrequencyWeekly {
			return fmt.Errorf("%w: daysOfWeek requires a weekly frequency", ErrMalformedRule)
		}
		if len(r.DaysOfWeek) == 0 {
			return fmt.Errorf("%w: daysOfWeek must not be empty", ErrMalformedRule)
		}
		for _, d := range r.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: day of week %d out of range", ErrMalformedRule, d)
			}
		}
	}
	return nil
}

// String renders the rule as RFC 5545 RRULE text with UNTIL at the last
// second of EndDate in UTC. Use Format for rules evaluated elsewhere.
func (r Rule) String() string {
	return r.Format(time.UTC)
}

// Format renders the rule as RRULE text with UNTIL at the last second of
// EndDate in loc, written as a UTC instant. Invalid rules render best
// effort.
func (r Rule) Format(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	parts := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if len(r.DaysOfWeek) > 0 {
		codes := make([]string, 0, len(r.DaysOfWeek))
		for _, d := range r.DaysOfWeek {
			if d >= 0 && d <= 6 {
				codes = append(codes, weekdayCodes[d])
			}
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if r.EndDate != nil {
		parts = append(parts, "UNTIL="+endOfDay(*r.EndDate, loc).UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}

func (r Rule) option(loc *time.Location) rrule.ROption {
	opt := rrule.ROption{Interval: r.Interval}
	switch r.Frequency {
	case FrequencyDaily:
		opt.Freq = rrule.DAILY
	case FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
	case FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
	}
	for _, d := range r.DaysOfWeek {
		opt.Byweekday = append(opt.Byweekday, weekdays[d])
	}
	if r.EndDate != nil {
		opt.Until = endOfDay(*r.EndDate, loc)
	}
	return opt
}

func endOfDay(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 23, 59, 59, 0, loc)
}

// RuleSpec is a recurrence rule as carried on a task. It keeps the wire
// form (RRULE text, or the structured object) next to the parsed form,
// which is produced once when the RuleSpec is built. A malformed spec keeps
// its raw text and the parse error so evaluation can fall back.
type RuleSpec struct {
	raw    string
	rule   mo.Option[Rule]
	parsed mo.Option[rrule.ROption]
	err    error
}

// ParseRuleSpec parses RRULE text such as "FREQ=WEEKLY;BYDAY=MO". An
// optional "RRULE:" prefix is accepted. Parse failures are recorded on the
// returned spec rather than returned.
func ParseRuleSpec(text string) RuleSpec {
	raw := strings.TrimSpace(text)
	spec := RuleSpec{raw: raw}
	body := raw
	if len(body) >= 6 && strings.EqualFold(body[:6], "RRULE:") {
		body = body[6:]
	}
	if body == "" {
		return spec
	}
	if strings.ContainsAny(body, "\r\n") {
		spec.err = fmt.Errorf("%w: multi-line rule text", ErrMalformedRule)
		return spec
	}
	opt, err := rrule.StrToROption(body)
	if err != nil {
		spec.err = fmt.Errorf("%w: %v", ErrMalformedRule, err)
		return spec
	}
	switch opt.Freq {
	case rrule.HOURLY, rrule.MINUTELY, rrule.SECONDLY:
		spec.err = fmt.Errorf("%w: sub-daily frequency", ErrMalformedRule)
		return spec
	}
	// BYHOUR and friends expand a daily or coarser rule below a day.
	if len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		spec.err = fmt.Errorf("%w: sub-daily expansion", ErrMalformedRule)
		return spec
	}
	if opt.Interval < 0 {
		spec.err = fmt.Errorf("%w: interval must be at least 1", ErrMalformedRule)
		return spec
	}
	if opt.Interval == 0 {
		opt.Interval = 1
	}
	spec.parsed = mo.Some(*opt)
	return spec
}

// RuleSpecFromRule builds a spec from the structured form. Invalid rules
// keep their best-effort text.
func RuleSpecFromRule(r Rule) RuleSpec {
	spec := RuleSpec{rule: mo.Some(r), raw: r.String()}
	if err := r.Validate(); err != nil {
		spec.err = err
	}
	return spec
}

// IsZero reports whether the RuleSpec carries no rule at all.
func (s RuleSpec) IsZero() bool {
	return s.raw == "" && s.rule.IsAbsent() && s.err == nil
}

// Raw returns the RRULE text form. Structured rules render UNTIL in UTC.
func (s RuleSpec) Raw() string {
	return s.raw
}

// Err returns the parse or validation error, if any.
func (s RuleSpec) Err() error {
	return s.err
}

// Structured returns the structured form when the RuleSpec was built from one.
func (s RuleSpec) Structured() (Rule, bool) {
	return s.rule.Get()
}

// options returns a fresh copy of the parsed rule options with dates
// resolved in loc.
func (s RuleSpec) options(loc *time.Location) (rrule.ROption, error) {
	if s.err != nil {
		return rrule.ROption{}, s.err
	}
	if r, ok := s.rule.Get(); ok {
		return r.option(loc), nil
	}
	opt, ok := s.parsed.Get()
	if !ok {
		return rrule.ROption{}, fmt.Errorf("%w: empty rule", ErrMalformedRule)
	}
	return opt, nil
}

// MarshalJSON writes the structured object when the RuleSpec came from one,
// and the RRULE text otherwise.
func (s RuleSpec) MarshalJSON() ([]byte, error) {
	if r, ok := s.rule.Get(); ok {
		return json.Marshal(r)
	}
	return json.Marshal(s.raw)
}

// UnmarshalJSON accepts either RRULE text or the structured object.
// Invalid rules are kept with their error; only undecodable JSON fails.
func (s *RuleSpec) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*s = ParseRuleSpec(text)
		return nil
	}
	var r Rule
	if err := json.Unmarshal(b, &r); err != nil {
		return fmt.Errorf("recurrence rule must be a string or an object: %w", err)
	}
	r.Frequency = ParseFrequency(string(r.Frequency))
	*s = RuleSpecFromRule(r)
	return nil
}
