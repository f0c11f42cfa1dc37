package recurrence

import (
	"io"
	"log/slog"
	"time"
)

// Engine computes next due dates and projects occurrences. It holds no
// per-task state and is safe for concurrent use.
type Engine struct {
	config    EngineConfig
	loc       *time.Location
	exclusion *ExclusionEvaluator
	rules     *ruleAdvancer
	cache     *RecurrenceCache
	logger    *slog.Logger
}

// Option represents a configuration option for the Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new recurrence engine with DefaultEngineConfig.
func NewEngine(opts ...Option) *Engine {
	return NewEngineWithConfig(DefaultEngineConfig(), opts...)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...Option) *Engine {
	config = config.withDefaults()
	exclusion := NewExclusionEvaluator(config.Holidays, config.Location, config.SkipLimit)

	e := &Engine{
		config:    config,
		loc:       config.Location,
		exclusion: exclusion,
		rules: &ruleAdvancer{
			exclusion:   exclusion,
			holidays:    config.Holidays,
			loc:         config.Location,
			yearsBefore: config.HolidayYearsBefore,
			yearsAfter:  config.HolidayYearsAfter,
			limit:       config.SkipLimit,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.CacheEnabled {
		e.cache = NewRecurrenceCache(config.CacheConfig)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close releases the projection cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Location returns the location calendar dates are evaluated in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Exclusion returns the engine's exclusion evaluator.
func (e *Engine) Exclusion() *ExclusionEvaluator {
	return e.exclusion
}

// NextDueDate returns the next due date of s evaluated at ref. It never
// fails; see Evaluate for the fallback details.
func (e *Engine) NextDueDate(s Schedule, ref time.Time) time.Time {
	return e.Evaluate(s, ref).Due
}

// Evaluate computes the next due date of s at ref.
//
// With a recurrence rule, the first non-excluded rule occurrence after
// ref (or after LastCompletedAt, whichever is later) is used. If the rule
// is malformed or has no further occurrence, the result degrades to the
// first non-excluded day starting at ref, and the reason is recorded on
// the Outcome.
//
// Without a rule, the simple frequency is advanced from ref and then moved
// past excluded days.
func (e *Engine) Evaluate(s Schedule, ref time.Time) Outcome {
	ref = ref.In(e.loc)

	if s.HasRule() {
		res := e.rules.advance(*s.Rule, ref, s.LastCompletedAt, s.ExceptionDates)
		if due, err := res.Get(); err == nil {
			return Outcome{Due: due, Strategy: StrategyRule}
		}
		cause := res.Error()
		due, _ := e.exclusion.SkipExcluded(ref, s.ExceptionDates)
		out := Outcome{
			Due:      due,
			Strategy: StrategyRule,
			Fallback: fallbackReasonOf(cause),
			Err:      cause,
		}
		e.logger.Debug("recurrence rule fell back",
			"rule", s.Rule.Raw(),
			"reason", out.Fallback,
			"error", cause,
			"due", due)
		return out
	}

	candidate := Advance(s.Frequency, s.CustomDays, ref)
	due, ok := e.exclusion.SkipExcluded(candidate, s.ExceptionDates)
	out := Outcome{Due: due, Strategy: StrategyFrequency}
	if !ok {
		out.Fallback = FallbackSkipLimit
		out.Err = ErrSkipLimit
		e.logger.Debug("exclusion skip limit reached",
			"frequency", s.Frequency,
			"candidate", candidate)
	}
	return out
}
