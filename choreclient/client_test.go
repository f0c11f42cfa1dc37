package choreclient

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/server"
	"github.com/cyp0633/chorecal/server/auth/memory"
	storagemem "github.com/cyp0633/chorecal/storage/memory"
	"github.com/cyp0633/chorecal/task"
)

var now = time.Date(2024, time.July, 13, 10, 0, 0, 0, time.UTC)

func newServer(t *testing.T, opts ...server.Option) *httptest.Server {
	t.Helper()
	cfg := recurrence.DefaultEngineConfig()
	cfg.CacheEnabled = false
	engine := recurrence.NewEngineWithConfig(cfg)
	t.Cleanup(engine.Close)

	seq := 0
	svc := task.NewService(storagemem.New(), engine,
		task.WithClock(func() time.Time { return now }),
		task.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("task-%d", seq)
		}))
	h, err := server.New(svc, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(srv.URL, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://bad"} {
		_, err := New(u)
		assert.Error(t, err, u)
	}
}

func TestClient_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newServer(t))

	require.NoError(t, c.Health(ctx))

	created, err := c.Create(ctx, &model.Task{Title: "Dishes", Frequency: recurrence.FrequencyDaily, Assignee: "sam"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", created.ID)
	assert.True(t, time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC).Equal(created.NextDueDate))
	assert.NotEmpty(t, created.ETag)

	got, err := c.Get(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, created.ETag, got.ETag)

	tasks, err := c.List(ctx, ListOptions{Assignee: "sam"})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	tasks, err = c.List(ctx, ListOptions{Overdue: true})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	got.Title = "Dishes and counters"
	_, err = c.Update(ctx, "task-1", `"stale"`, got)
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	updated, err := c.Update(ctx, "task-1", got.ETag, got)
	require.NoError(t, err)
	assert.Equal(t, "Dishes and counters", updated.Title)

	completed, err := c.Complete(ctx, "task-1", CompleteOptions{
		At:     time.Date(2024, 7, 15, 18, 0, 0, 0, time.UTC),
		Author: "alex",
	})
	require.NoError(t, err)
	require.Len(t, completed.History, 1)
	assert.Equal(t, "alex", completed.History[0].Author)
	assert.True(t, time.Date(2024, 7, 16, 18, 0, 0, 0, time.UTC).Equal(completed.NextDueDate))

	completed, err = c.Complete(ctx, "task-1", CompleteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "sam", completed.History[1].Author)

	occ, err := c.Occurrences(ctx, "task-1",
		recurrence.Date{Year: 2024, Month: time.July, Day: 20},
		recurrence.Date{Year: 2024, Month: time.July, Day: 22})
	require.NoError(t, err)
	assert.Len(t, occ, 2)

	require.NoError(t, c.Delete(ctx, "task-1"))
	_, err = c.Get(ctx, "task-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "task-1"), ErrNotFound)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newServer(t))

	_, err := c.Create(ctx, &model.Task{})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = c.Create(ctx, &model.Task{ID: "x", Title: "a"})
	require.NoError(t, err)
	_, err = c.Create(ctx, &model.Task{ID: "x", Title: "b"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = c.Occurrences(ctx, "x",
		recurrence.Date{Year: 2024, Month: time.July, Day: 22},
		recurrence.Date{Year: 2024, Month: time.July, Day: 20})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestClient_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := newClient(t, newServer(t))
	_, err := src.Create(ctx, &model.Task{ID: "bins", Title: "Bins", RecurrenceRule: rulePtr("FREQ=WEEKLY;BYDAY=MO")})
	require.NoError(t, err)

	ics, err := src.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(ics), "UID:bins")

	dst := newClient(t, newServer(t))
	imported, err := dst.Import(ctx, strings.NewReader(string(ics)))
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "Bins", imported[0].Title)

	_, err = dst.Import(ctx, strings.NewReader("garbage"))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestClient_Secret(t *testing.T) {
	ctx := context.Background()
	tokens := memory.New()
	require.NoError(t, tokens.AddToken("cli", "s3cret"))
	srv := newServer(t, server.WithAuthenticator(tokens, "X-Chore-Key"))

	anonymous := newClient(t, srv)
	require.NoError(t, anonymous.Health(ctx))
	_, err := anonymous.List(ctx, ListOptions{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	authed := newClient(t, srv, WithSecret("X-Chore-Key", "s3cret"))
	tasks, err := authed.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestListOptions_Query(t *testing.T) {
	assert.Equal(t, "", ListOptions{}.query())
	assert.Equal(t, "?assignee=sam&category=kitchen&overdue=true",
		ListOptions{Overdue: true, Category: "kitchen", Assignee: "sam"}.query())
}

func rulePtr(text string) *recurrence.RuleSpec {
	spec := recurrence.ParseRuleSpec(text)
	return &spec
}
