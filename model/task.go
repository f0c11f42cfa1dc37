// Package model holds the task record shared by storage, the task service
// and the HTTP API.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/chorecal/recurrence"
)

// ErrInvalidTask is returned by Validate.
var ErrInvalidTask = errors.New("invalid task")

// Completion is one entry of a task's completion history.
type Completion struct {
	Date   time.Time `json:"date"`
	Author string    `json:"author"`
}

// Task is a household chore with its recurrence definition and the last
// due date computed for it.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Assignee    string `json:"assignee,omitempty"`

	Frequency      recurrence.Frequency `json:"frequency,omitempty"`
	CustomDays     int                  `json:"customDays,omitempty"`
	RecurrenceRule *recurrence.RuleSpec `json:"recurrenceRule,omitempty"`
	ExceptionDates []recurrence.Date    `json:"exceptionDates,omitempty"`

	LastCompletedAt *time.Time   `json:"lastCompletedAt,omitempty"`
	NextDueDate     time.Time    `json:"nextDueDate"`
	History         []Completion `json:"history,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// ETag changes whenever the stored record changes. It is set by storage.
	ETag string `json:"etag,omitempty"`
}

// Schedule returns the recurrence-relevant view of the task.
func (t *Task) Schedule() recurrence.Schedule {
	s := recurrence.Schedule{
		Frequency:       t.Frequency,
		CustomDays:      t.CustomDays,
		ExceptionDates:  t.ExceptionDates,
		LastCompletedAt: t.LastCompletedAt,
	}
	if t.RecurrenceRule != nil && !t.RecurrenceRule.IsZero() {
		s.Rule = t.RecurrenceRule
	}
	return s
}

// IsOverdue reports whether the task's due date has passed at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.NextDueDate.IsZero() && t.NextDueDate.Before(now)
}

// Validate checks the fields a client must get right. Schedules are never
// rejected here: unknown frequencies advance weekly, customDays below 1
// count as 1 and malformed rules go through the engine's fallback.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	return nil
}

// Normalize canonicalizes user-supplied fields in place.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	t.Frequency = recurrence.ParseFrequency(string(t.Frequency))
	t.ExceptionDates = recurrence.UniqueDates(t.ExceptionDates)
	if t.RecurrenceRule != nil && t.RecurrenceRule.IsZero() {
		t.RecurrenceRule = nil
	}
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.RecurrenceRule != nil {
		rule := *t.RecurrenceRule
		c.RecurrenceRule = &rule
	}
	if t.ExceptionDates != nil {
		c.ExceptionDates = append([]recurrence.Date(nil), t.ExceptionDates...)
	}
	if t.LastCompletedAt != nil {
		last := *t.LastCompletedAt
		c.LastCompletedAt = &last
	}
	if t.History != nil {
		c.History = append([]Completion(nil), t.History...)
	}
	return &c
}
