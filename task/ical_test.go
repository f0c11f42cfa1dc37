package task

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
)

func TestToComponent(t *testing.T) {
	last := at(2024, 12, 23, 9)
	task := &model.Task{
		ID:              "t1",
		Title:           "Bins",
		Description:     "Green bin on odd weeks",
		Category:        "outside",
		Assignee:        "sam",
		RecurrenceRule:  rule("FREQ=WEEKLY;BYDAY=MO"),
		ExceptionDates:  []recurrence.Date{{Year: 2024, Month: time.December, Day: 30}},
		LastCompletedAt: &last,
		NextDueDate:     at(2025, 1, 6, 9),
		UpdatedAt:       last,
	}

	comp := ToComponent(task, time.UTC)
	assert.Equal(t, ical.CompToDo, comp.Name)

	uid, err := comp.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "t1", uid)

	due, err := comp.Props.DateTime(ical.PropDue, time.UTC)
	require.NoError(t, err)
	assert.True(t, task.NextDueDate.Equal(due))

	require.NotNil(t, comp.Props.Get(ical.PropRecurrenceRule))
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", comp.Props.Get(ical.PropRecurrenceRule).Value)
	require.NotNil(t, comp.Props.Get(ical.PropExceptionDates))
	assert.Equal(t, "20241230", comp.Props.Get(ical.PropExceptionDates).Value)

	back, err := FromComponent(comp, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, task.ID, back.ID)
	assert.Equal(t, task.Title, back.Title)
	assert.Equal(t, task.Description, back.Description)
	assert.Equal(t, task.Category, back.Category)
	assert.Equal(t, task.Assignee, back.Assignee)
	assert.Equal(t, task.ExceptionDates, back.ExceptionDates)
	assert.True(t, task.NextDueDate.Equal(back.NextDueDate))
	require.NotNil(t, back.LastCompletedAt)
	assert.True(t, last.Equal(*back.LastCompletedAt))
}

func TestFromComponent_WrongKind(t *testing.T) {
	_, err := FromComponent(ical.NewComponent(ical.CompEvent), time.UTC)
	assert.Error(t, err)
}

func TestService_ExportImport(t *testing.T) {
	ctx := context.Background()

	src, _ := newTestService(t, at(2024, 7, 13, 10))
	_, err := src.Create(ctx, &model.Task{ID: "a", Title: "Dishes", Frequency: recurrence.FrequencyDaily})
	require.NoError(t, err)
	_, err = src.Create(ctx, &model.Task{ID: "b", Title: "Gutters", Frequency: recurrence.FrequencyCustom, CustomDays: 90})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf))
	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:"+ProductID)
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VTODO"))

	dst, _ := newTestService(t, at(2024, 7, 13, 10))
	imported, err := dst.Import(ctx, strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, imported, 2)

	gutters, err := dst.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, recurrence.FrequencyCustom, gutters.Frequency)
	assert.Equal(t, 90, gutters.CustomDays)

	original, err := src.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, original.NextDueDate.Equal(gutters.NextDueDate))
}

func TestService_ExportImportStructuredRule(t *testing.T) {
	ctx := context.Background()

	bad := recurrence.RuleSpecFromRule(recurrence.Rule{Frequency: recurrence.FrequencyWeekly, Interval: 0})
	end := recurrence.Date{Year: 2024, Month: time.December, Day: 31}
	good := recurrence.RuleSpecFromRule(recurrence.Rule{Frequency: recurrence.FrequencyDaily, Interval: 2, EndDate: &end})

	src, _ := newTestService(t, at(2024, 7, 1, 8))
	_, err := src.Create(ctx, &model.Task{ID: "bad", Title: "Shelves", Frequency: recurrence.FrequencyMonthly, RecurrenceRule: &bad})
	require.NoError(t, err)
	_, err = src.Create(ctx, &model.Task{ID: "good", Title: "Floors", RecurrenceRule: &good})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf))

	dst, _ := newTestService(t, at(2024, 7, 1, 8))
	_, err = dst.Import(ctx, &buf)
	require.NoError(t, err)

	for _, id := range []string{"bad", "good"} {
		original, err := src.Get(ctx, id)
		require.NoError(t, err)
		got, err := dst.Get(ctx, id)
		require.NoError(t, err)

		require.NotNil(t, got.RecurrenceRule, id)
		want, _ := original.RecurrenceRule.Structured()
		r, structured := got.RecurrenceRule.Structured()
		require.True(t, structured, id)
		assert.Equal(t, want, r, id)
		assert.Equal(t, original.RecurrenceRule.Err() != nil, got.RecurrenceRule.Err() != nil, id)
		assert.True(t, original.NextDueDate.Equal(got.NextDueDate), id)
	}

	got, err := dst.Get(ctx, "bad")
	require.NoError(t, err)
	assert.ErrorIs(t, got.RecurrenceRule.Err(), recurrence.ErrMalformedRule)
}

func TestService_ImportReplacesExisting(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, at(2024, 7, 1, 0))
	_, err := svc.Create(ctx, &model.Task{ID: "a", Title: "Old title", Frequency: recurrence.FrequencyWeekly})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, "a", CompleteOptions{Author: "sam"})
	require.NoError(t, err)

	doc := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//test//EN",
		"BEGIN:VTODO",
		"UID:a",
		"DTSTAMP:20240701T000000Z",
		"SUMMARY:New title",
		"RRULE:FREQ=MONTHLY;BYMONTHDAY=15",
		"DUE:20240815T000000Z",
		"END:VTODO",
		"BEGIN:VEVENT",
		"UID:ignored",
		"DTSTAMP:20240701T000000Z",
		"DTSTART:20240701T000000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	imported, err := svc.Import(ctx, strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, imported, 1)

	got, err := svc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Len(t, got.History, 1, "history survives an import")
	require.NotNil(t, got.RecurrenceRule)
	assert.Equal(t, "FREQ=MONTHLY;BYMONTHDAY=15", got.RecurrenceRule.Raw())
	// Aug 15 is a holiday
	assert.True(t, at(2024, 8, 16, 0).Equal(got.NextDueDate))
}

func TestService_ImportInvalid(t *testing.T) {
	svc, _ := newTestService(t, at(2024, 7, 1, 0))

	_, err := svc.Import(context.Background(), strings.NewReader("not a calendar"))
	assert.ErrorIs(t, err, ErrInvalidCalendar)

	doc := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:x\r\nBEGIN:VTODO\r\nUID:z\r\nDTSTAMP:20240701T000000Z\r\nEND:VTODO\r\nEND:VCALENDAR\r\n"
	_, err = svc.Import(context.Background(), strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrInvalidTask, "a VTODO without summary has no title")
}
