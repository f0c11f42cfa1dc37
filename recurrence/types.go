package recurrence

import (
	"errors"
	"time"
)

// Schedule holds the recurrence-relevant fields of a task.
type Schedule struct {
	Frequency  Frequency
	CustomDays int
	// Rule takes precedence over Frequency/CustomDays when set and non-empty.
	Rule            *RuleSpec
	ExceptionDates  []Date
	LastCompletedAt *time.Time
}

// HasRule reports whether the schedule is driven by a recurrence rule.
func (s Schedule) HasRule() bool {
	return s.Rule != nil && !s.Rule.IsZero()
}

// Strategy names the advancer that produced a due date.
type Strategy string

const (
	StrategyRule      Strategy = "rule"
	StrategyFrequency Strategy = "frequency"
)

// FallbackReason says why the engine did not use the primary result.
type FallbackReason string

const (
	FallbackNone          FallbackReason = ""
	FallbackMalformedRule FallbackReason = "malformed-rule"
	FallbackRuleExhausted FallbackReason = "rule-exhausted"
	FallbackSkipLimit     FallbackReason = "skip-limit"
)

func fallbackReasonOf(err error) FallbackReason {
	switch {
	case err == nil:
		return FallbackNone
	case errors.Is(err, ErrMalformedRule):
		return FallbackMalformedRule
	case errors.Is(err, ErrRuleExhausted):
		return FallbackRuleExhausted
	case errors.Is(err, ErrSkipLimit):
		return FallbackSkipLimit
	default:
		return FallbackMalformedRule
	}
}

// Outcome is the full result of one due-date evaluation.
type Outcome struct {
	Due      time.Time
	Strategy Strategy
	Fallback FallbackReason
	// Err is the underlying cause when Fallback is set.
	Err error
}

// Ended reports whether a recurrence rule ran past its end.
func (o Outcome) Ended() bool {
	return o.Fallback == FallbackRuleExhausted
}
