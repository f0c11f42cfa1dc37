// Package storagetest holds behavior tests every storage.Storage backend
// must pass.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/storage"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) storage.Storage

func sampleTask(id string) *model.Task {
	rule := recurrence.ParseRuleSpec("FREQ=WEEKLY;BYDAY=MO")
	last := time.Date(2024, 12, 23, 9, 0, 0, 0, time.UTC)
	return &model.Task{
		ID:              id,
		Title:           "Task " + id,
		Category:        "kitchen",
		Assignee:        "sam",
		Frequency:       recurrence.FrequencyWeekly,
		RecurrenceRule:  &rule,
		ExceptionDates:  []recurrence.Date{{Year: 2024, Month: time.December, Day: 30}},
		LastCompletedAt: &last,
		NextDueDate:     time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		History:         []model.Completion{{Date: last, Author: "sam"}},
	}
}

// Run exercises the full storage contract against the stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		task := sampleTask("a")
		require.NoError(t, s.CreateTask(ctx, task))
		assert.NotEmpty(t, task.ETag)
		assert.False(t, task.CreatedAt.IsZero())

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, task.Title, got.Title)
		assert.Equal(t, task.ETag, got.ETag)
		assert.Equal(t, task.ExceptionDates, got.ExceptionDates)
		require.NotNil(t, got.RecurrenceRule)
		assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", got.RecurrenceRule.Raw())
		require.NotNil(t, got.LastCompletedAt)
		assert.True(t, task.LastCompletedAt.Equal(*got.LastCompletedAt))
		assert.True(t, task.NextDueDate.Equal(got.NextDueDate))
		require.Len(t, got.History, 1)
		assert.Equal(t, "sam", got.History[0].Author)
	})

	t.Run("returned tasks are copies", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTask(ctx, sampleTask("a")))

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		got.Title = "changed"
		got.History[0].Author = "changed"

		again, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Task a", again.Title)
		assert.Equal(t, "sam", again.History[0].Author)
	})

	t.Run("create rejects duplicates and missing ids", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTask(ctx, sampleTask("a")))
		assert.ErrorIs(t, s.CreateTask(ctx, sampleTask("a")), storage.ErrConflict)
		assert.ErrorIs(t, s.CreateTask(ctx, &model.Task{Title: "no id"}), storage.ErrInvalidInput)
	})

	t.Run("missing task", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetTask(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, s.DeleteTask(ctx, "nope"), storage.ErrNotFound)
		_, err = s.UpdateTask(ctx, "nope", func(*model.Task) error { return nil })
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list is ordered by creation", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"c", "a", "b"} {
			task := sampleTask(id)
			task.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, s.CreateTask(ctx, task))
		}

		tasks, err := s.ListTasks(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(tasks))
		for _, task := range tasks {
			ids = append(ids, task.ID)
		}
		assert.Equal(t, []string{"c", "a", "b"}, ids)
	})

	t.Run("update changes the etag", func(t *testing.T) {
		s := newStore(t)
		task := sampleTask("a")
		require.NoError(t, s.CreateTask(ctx, task))

		updated, err := s.UpdateTask(ctx, "a", func(t *model.Task) error {
			t.Title = "renamed"
			t.ID = "hijacked"
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, "a", updated.ID)
		assert.Equal(t, "renamed", updated.Title)
		assert.NotEqual(t, task.ETag, updated.ETag)

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, updated.ETag, got.ETag)
	})

	t.Run("failed update writes nothing", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTask(ctx, sampleTask("a")))
		boom := errors.New("boom")

		_, err := s.UpdateTask(ctx, "a", func(t *model.Task) error {
			t.Title = "half-done"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "Task a", got.Title)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateTask(ctx, sampleTask("a")))
		require.NoError(t, s.DeleteTask(ctx, "a"))
		_, err := s.GetTask(ctx, "a")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("concurrent updates are linearized", func(t *testing.T) {
		s := newStore(t)
		task := sampleTask("a")
		task.CustomDays = 0
		require.NoError(t, s.CreateTask(ctx, task))

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpdateTask(ctx, "a", func(t *model.Task) error {
					t.CustomDays++
					return nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.GetTask(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, workers, got.CustomDays)
	})
}
