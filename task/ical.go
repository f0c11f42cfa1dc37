package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"go.trai.ch/zerr"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/storage"
)

// ProductID identifies calendars produced by this package.
const ProductID = "-//chorecal//Chore Calendar//EN"

// PropAssignee carries the task assignee on exported VTODOs.
const PropAssignee = "X-CHORECAL-ASSIGNEE"

// ToComponent converts a task into a VTODO. Structured rule end dates are
// rendered in loc.
func ToComponent(t *model.Task, loc *time.Location) *ical.Component {
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, t.ID)
	comp.Props.SetText(ical.PropSummary, t.Title)
	stamp := t.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if t.Description != "" {
		comp.Props.SetText(ical.PropDescription, t.Description)
	}
	if t.Category != "" {
		comp.Props.SetText(ical.PropCategories, t.Category)
	}
	if t.Assignee != "" {
		comp.Props.SetText(PropAssignee, t.Assignee)
	}
	if !t.NextDueDate.IsZero() {
		comp.Props.SetDateTime(ical.PropDue, t.NextDueDate.UTC())
	}
	recurrence.ApplySchedule(comp, t.Schedule(), loc)
	return comp
}

// FromComponent converts a VTODO into a task. Dates are resolved in loc.
func FromComponent(comp *ical.Component, loc *time.Location) (*model.Task, error) {
	if comp.Name != ical.CompToDo {
		return nil, fmt.Errorf("unexpected component %s", comp.Name)
	}

	t := &model.Task{}
	if uid, err := comp.Props.Text(ical.PropUID); err == nil {
		t.ID = strings.TrimSpace(uid)
	}
	if summary, err := comp.Props.Text(ical.PropSummary); err == nil {
		t.Title = summary
	}
	if desc, err := comp.Props.Text(ical.PropDescription); err == nil {
		t.Description = desc
	}
	if prop := comp.Props.Get(ical.PropCategories); prop != nil {
		if cats, err := prop.TextList(); err == nil && len(cats) > 0 {
			t.Category = cats[0]
		}
	}
	if assignee, err := comp.Props.Text(PropAssignee); err == nil {
		t.Assignee = assignee
	}
	if due, err := comp.Props.DateTime(ical.PropDue, loc); err == nil {
		t.NextDueDate = due
	}

	s := recurrence.ScheduleFromComponent(comp, loc)
	t.Frequency = s.Frequency
	t.CustomDays = s.CustomDays
	t.RecurrenceRule = s.Rule
	t.ExceptionDates = s.ExceptionDates
	t.LastCompletedAt = s.LastCompletedAt
	return t, nil
}

// Export writes every task as a VCALENDAR of VTODOs.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return zerr.Wrap(err, "failed to list tasks for export")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	for _, t := range tasks {
		cal.Children = append(cal.Children, ToComponent(t, s.engine.Location()))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return zerr.Wrap(err, "failed to encode calendar")
	}
	return nil
}

// Import reads a VCALENDAR and creates or replaces one task per VTODO.
// Existing tasks (matched by UID) keep their history and creation time.
func (s *Service) Import(ctx context.Context, r io.Reader) ([]*model.Task, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, zerr.Wrap(ErrInvalidCalendar, err.Error())
	}

	var imported []*model.Task
	for _, child := range cal.Children {
		if child.Name != ical.CompToDo {
			continue
		}
		in, err := FromComponent(child, s.engine.Location())
		if err != nil {
			return imported, zerr.Wrap(ErrInvalidCalendar, err.Error())
		}

		t, err := s.upsert(ctx, in)
		if err != nil {
			return imported, zerr.With(err, "uid", in.ID)
		}
		imported = append(imported, t)
	}

	s.logger.Info("calendar imported", "tasks", len(imported))
	return imported, nil
}

func (s *Service) upsert(ctx context.Context, in *model.Task) (*model.Task, error) {
	if in.ID != "" {
		_, err := s.store.GetTask(ctx, in.ID)
		switch {
		case err == nil:
			return s.replace(ctx, in)
		case !errors.Is(err, storage.ErrNotFound):
			return nil, zerr.Wrap(err, "failed to look up imported task")
		}
	}
	return s.Create(ctx, in)
}

// replace overwrites a stored task with imported data, including its
// completion state.
func (s *Service) replace(ctx context.Context, in *model.Task) (*model.Task, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	return s.store.UpdateTask(ctx, in.ID, func(t *model.Task) error {
		t.Title = in.Title
		t.Description = in.Description
		t.Category = in.Category
		t.Assignee = in.Assignee
		t.Frequency = in.Frequency
		t.CustomDays = in.CustomDays
		t.RecurrenceRule = in.RecurrenceRule
		t.ExceptionDates = in.ExceptionDates
		if in.LastCompletedAt != nil {
			t.LastCompletedAt = in.LastCompletedAt
		}
		if in.NextDueDate.IsZero() {
			t.NextDueDate = s.evaluate(t, s.now()).Due
		} else {
			t.NextDueDate, _ = s.engine.Exclusion().SkipExcluded(in.NextDueDate, t.ExceptionDates)
		}
		return nil
	})
}
