package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/cyp0633/chorecal/internal/config"
	"github.com/cyp0633/chorecal/recurrence"
)

// scheduleFlags describes a task schedule on the command line.
type scheduleFlags struct {
	frequency     string
	customDays    int
	rule          string
	exceptions    []string
	lastCompleted string
}

func (f *scheduleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.frequency, "frequency", "f", "", "Simple frequency: daily, weekly, monthly or custom")
	cmd.Flags().IntVar(&f.customDays, "custom-days", 0, "Day count for the custom frequency")
	cmd.Flags().StringVarP(&f.rule, "rule", "r", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO")
	cmd.Flags().StringSliceVarP(&f.exceptions, "exception", "x", nil, "Exception date (YYYY-MM-DD), repeatable")
	cmd.Flags().StringVar(&f.lastCompleted, "last-completed", "", "Last completion instant (RFC 3339 or YYYY-MM-DD)")
}

func (f *scheduleFlags) schedule(loc *time.Location) (recurrence.Schedule, error) {
	s := recurrence.Schedule{
		Frequency:  recurrence.ParseFrequency(f.frequency),
		CustomDays: f.customDays,
	}
	if strings.TrimSpace(f.rule) != "" {
		spec := recurrence.ParseRuleSpec(f.rule)
		s.Rule = &spec
	}
	for _, x := range f.exceptions {
		d, err := recurrence.ParseDate(x, loc)
		if err != nil {
			return s, zerr.With(zerr.Wrap(err, "invalid exception date"), "value", x)
		}
		s.ExceptionDates = append(s.ExceptionDates, d)
	}
	s.ExceptionDates = recurrence.UniqueDates(s.ExceptionDates)
	if f.lastCompleted != "" {
		t, err := parseInstant(f.lastCompleted, loc, time.Time{})
		if err != nil {
			return s, err
		}
		s.LastCompletedAt = &t
	}
	return s, nil
}

// parseInstant accepts an RFC 3339 instant or a calendar date, which means
// midnight in loc. An empty value yields fallback.
func parseInstant(v string, loc *time.Location, fallback time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	d, err := recurrence.ParseDate(v, loc)
	if err != nil {
		return time.Time{}, zerr.With(zerr.Wrap(err, "invalid instant"), "value", v)
	}
	return d.In(loc), nil
}

// offlineEngine builds a one-shot engine from the recurrence section.
func offlineEngine(cfg *config.Config) (*recurrence.Engine, error) {
	ec, err := cfg.Recurrence.EngineConfig()
	if err != nil {
		return nil, err
	}
	ec.CacheEnabled = false
	return recurrence.NewEngineWithConfig(ec), nil
}

func formatInstant(t time.Time) string {
	return t.Format(time.RFC3339)
}

func describeFallback(out recurrence.Outcome) string {
	if out.Fallback == recurrence.FallbackNone {
		return ""
	}
	if out.Err != nil {
		return fmt.Sprintf("fallback: %s (%v)", out.Fallback, out.Err)
	}
	return fmt.Sprintf("fallback: %s", out.Fallback)
}
