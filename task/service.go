// Package task implements the task use cases on top of storage and the
// recurrence engine.
package task

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/zerr"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/storage"
)

// UnknownAuthor is recorded when a completion has neither an explicit
// author nor an assignee.
const UnknownAuthor = "unknown"

// Service owns task records: it seeds and recomputes due dates through the
// recurrence engine and persists the results.
type Service struct {
	store  storage.Storage
	engine *recurrence.Engine
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option represents a configuration option for the Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random UUID generator for new tasks.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService creates a task service.
func NewService(store storage.Storage, engine *recurrence.Engine, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the recurrence engine used by the service.
func (s *Service) Engine() *recurrence.Engine {
	return s.engine
}

func invalid(err error) error {
	return zerr.Wrap(ErrInvalidTask, err.Error())
}

// initialDueDate seeds the due date of a new task. A due date supplied by
// the client is kept, moved past excluded days; otherwise the engine is
// evaluated at now.
func (s *Service) initialDueDate(t *model.Task, now time.Time) time.Time {
	if !t.NextDueDate.IsZero() {
		due, _ := s.engine.Exclusion().SkipExcluded(t.NextDueDate, t.ExceptionDates)
		return due
	}
	return s.evaluate(t, now).Due
}

func (s *Service) evaluate(t *model.Task, ref time.Time) recurrence.Outcome {
	out := s.engine.Evaluate(t.Schedule(), ref)
	if out.Fallback != recurrence.FallbackNone {
		s.logger.Warn("due date computed through fallback",
			"task", t.ID,
			"reason", out.Fallback,
			"error", out.Err,
			"due", out.Due)
	}
	return out
}

// Create validates and stores a new task, seeding its due date.
func (s *Service) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	if t == nil {
		return nil, zerr.Wrap(ErrInvalidTask, "task is required")
	}
	t = t.Clone()
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, invalid(err)
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = s.newID()
	}

	now := s.now()
	t.NextDueDate = s.initialDueDate(t, now)
	t.CreatedAt = now
	t.ETag = ""

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create task"), "task", t.ID)
	}
	s.logger.Info("task created",
		"task", t.ID,
		"title", t.Title,
		"due", t.NextDueDate)
	return t, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id string) (*model.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to get task"), "task", id)
	}
	return t, nil
}

// ListOptions filters List results. Zero values match everything.
type ListOptions struct {
	Overdue  bool
	Category string
	Assignee string
}

// List returns the tasks matching opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*model.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to list tasks")
	}

	now := s.now()
	filtered := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if opts.Overdue && !t.IsOverdue(now) {
			continue
		}
		if opts.Category != "" && !strings.EqualFold(opts.Category, t.Category) {
			continue
		}
		if opts.Assignee != "" && !strings.EqualFold(opts.Assignee, t.Assignee) {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered, nil
}

func sameSchedule(a, b *model.Task) bool {
	if a.Frequency != b.Frequency || a.CustomDays != b.CustomDays {
		return false
	}
	ra, rb := "", ""
	if a.RecurrenceRule != nil {
		ra = a.RecurrenceRule.Raw()
	}
	if b.RecurrenceRule != nil {
		rb = b.RecurrenceRule.Raw()
	}
	if ra != rb {
		return false
	}
	if len(a.ExceptionDates) != len(b.ExceptionDates) {
		return false
	}
	for i := range a.ExceptionDates {
		if a.ExceptionDates[i] != b.ExceptionDates[i] {
			return false
		}
	}
	return true
}

// Update replaces the editable fields of a task. ifMatch, when not empty,
// must match the stored ETag. A changed schedule recomputes the due date at
// now; an explicitly changed due date is kept, moved past excluded days.
func (s *Service) Update(ctx context.Context, id, ifMatch string, input *model.Task) (*model.Task, error) {
	if input == nil {
		return nil, zerr.Wrap(ErrInvalidTask, "task is required")
	}
	in := input.Clone()
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	now := s.now()
	updated, err := s.store.UpdateTask(ctx, id, func(t *model.Task) error {
		if !storage.MatchETag(ifMatch, t.ETag) {
			return zerr.With(zerr.Wrap(storage.ErrPreconditionFailed, "etag mismatch"), "etag", t.ETag)
		}
		before := t.Clone()

		t.Title = in.Title
		t.Description = in.Description
		t.Category = in.Category
		t.Assignee = in.Assignee
		t.Frequency = in.Frequency
		t.CustomDays = in.CustomDays
		t.RecurrenceRule = in.RecurrenceRule
		t.ExceptionDates = in.ExceptionDates

		switch {
		case !in.NextDueDate.IsZero() && !in.NextDueDate.Equal(before.NextDueDate):
			t.NextDueDate, _ = s.engine.Exclusion().SkipExcluded(in.NextDueDate, t.ExceptionDates)
		case !sameSchedule(before, t):
			t.NextDueDate = s.evaluate(t, now).Due
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to update task"), "task", id)
	}
	s.logger.Info("task updated", "task", id, "due", updated.NextDueDate)
	return updated, nil
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to delete task"), "task", id)
	}
	s.logger.Info("task deleted", "task", id)
	return nil
}

// CompleteOptions describes one completion. Zero values mean "now" and
// "resolve the author from the task".
type CompleteOptions struct {
	At     time.Time
	Author string
}

// ResolveAuthor picks the completion author: the explicit author, else the
// task's assignee, else UnknownAuthor.
func ResolveAuthor(explicit string, t *model.Task) string {
	if a := strings.TrimSpace(explicit); a != "" {
		return a
	}
	if a := strings.TrimSpace(t.Assignee); a != "" {
		return a
	}
	return UnknownAuthor
}

// Complete records a completion and recomputes the due date from the
// completion instant.
func (s *Service) Complete(ctx context.Context, id string, opts CompleteOptions) (*model.Task, error) {
	at := opts.At
	if at.IsZero() {
		at = s.now()
	}

	var outcome recurrence.Outcome
	updated, err := s.store.UpdateTask(ctx, id, func(t *model.Task) error {
		completedAt := at
		t.LastCompletedAt = &completedAt
		t.History = append(t.History, model.Completion{
			Date:   at,
			Author: ResolveAuthor(opts.Author, t),
		})
		outcome = s.evaluate(t, at)
		t.NextDueDate = outcome.Due
		return nil
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to complete task"), "task", id)
	}
	s.logger.Info("task completed",
		"task", id,
		"at", at,
		"due", updated.NextDueDate,
		"strategy", outcome.Strategy)
	return updated, nil
}

// Occurrences projects the task's occurrences in [from, to) without
// changing it. The projection is anchored at the current due date.
func (s *Service) Occurrences(ctx context.Context, id string, from, to recurrence.Date) ([]time.Time, error) {
	if !from.Before(to) {
		return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidRange, "from must be before to"), "from", from.String()), "to", to.String())
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	anchor := t.NextDueDate
	if anchor.IsZero() {
		anchor = s.now()
	}
	loc := s.engine.Location()
	return s.engine.Occurrences(t.Schedule(), anchor, from.In(loc), to.In(loc)), nil
}
