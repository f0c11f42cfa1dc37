package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/server/auth/memory"
	"github.com/cyp0633/chorecal/storage"
	storagemem "github.com/cyp0633/chorecal/storage/memory"
	"github.com/cyp0633/chorecal/task"
)

type apiFixture struct {
	handler http.Handler
	now     time.Time
}

func newFixture(t *testing.T, now time.Time, opts ...Option) *apiFixture {
	t.Helper()
	return newFixtureWithStore(t, now, storagemem.New(), opts...)
}

func newFixtureWithStore(t *testing.T, now time.Time, store storage.Storage, opts ...Option) *apiFixture {
	t.Helper()
	cfg := recurrence.DefaultEngineConfig()
	cfg.CacheEnabled = false
	engine := recurrence.NewEngineWithConfig(cfg)
	t.Cleanup(engine.Close)

	f := &apiFixture{now: now}
	seq := 0
	svc := task.NewService(store, engine,
		task.WithClock(func() time.Time { return f.now }),
		task.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("task-%d", seq)
		}))

	h, err := New(svc, opts...)
	require.NoError(t, err)
	f.handler = h
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) *model.Task {
	t.Helper()
	var got model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got), rec.Body.String())
	return &got
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestAPI_CreateAndGet(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))

	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Dishes","frequency":"daily","assignee":"sam"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/tasks/task-1", rec.Header().Get(headerLocation))
	assert.Equal(t, mimeTypeJSON, rec.Header().Get(headerContentType))
	etag := rec.Header().Get(headerETag)
	assert.NotEmpty(t, etag)

	created := decodeTask(t, rec)
	assert.Equal(t, "task-1", created.ID)
	// Jul 14 is a holiday
	assert.True(t, utc(2024, 7, 15, 10).Equal(created.NextDueDate), created.NextDueDate)

	rec = f.do(t, http.MethodGet, "/tasks/task-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, etag, rec.Header().Get(headerETag))
	assert.Equal(t, "Dishes", decodeTask(t, rec).Title)
}

func TestAPI_CreateCoercesSchedule(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))

	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Towels","frequency":"fortnightly"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decodeTask(t, rec)
	assert.Equal(t, recurrence.Frequency("fortnightly"), got.Frequency)
	assert.True(t, utc(2024, 7, 20, 10).Equal(got.NextDueDate), got.NextDueDate)

	// one day out lands on Bastille Day
	rec = f.do(t, http.MethodPost, "/tasks", `{"title":"Plants","frequency":"custom","customDays":-3}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	got = decodeTask(t, rec)
	assert.Equal(t, -3, got.CustomDays)
	assert.True(t, utc(2024, 7, 15, 10).Equal(got.NextDueDate), got.NextDueDate)
}

func TestAPI_CreateErrors(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed JSON", body: `{"title":`, wantStatus: http.StatusBadRequest},
		{name: "missing title", body: `{"frequency":"daily"}`, wantStatus: http.StatusBadRequest},
		{name: "blank title", body: `{"title":"  ","frequency":"custom","customDays":-1}`, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/tasks", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}

	rec := f.do(t, http.MethodPost, "/tasks", `{"id":"same","title":"a"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(t, http.MethodPost, "/tasks", `{"id":"same","title":"b"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_GetMissing(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))
	rec := f.do(t, http.MethodGet, "/tasks/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "nope")
}

func TestAPI_Update(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 1, 9))
	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Bins","recurrenceRule":"FREQ=WEEKLY;BYDAY=MO"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	etag := rec.Header().Get(headerETag)

	rec = f.do(t, http.MethodPut, "/tasks/task-1", `{"title":"Bins (green)","recurrenceRule":"FREQ=WEEKLY;BYDAY=MO"}`,
		headerIfMatch, `"stale"`)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = f.do(t, http.MethodPut, "/tasks/task-1", `{"title":"Bins (green)","recurrenceRule":"FREQ=WEEKLY;BYDAY=MO"}`,
		headerIfMatch, etag)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEqual(t, etag, rec.Header().Get(headerETag))
	assert.Equal(t, "Bins (green)", decodeTask(t, rec).Title)

	rec = f.do(t, http.MethodPut, "/tasks/task-1", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/tasks/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Complete(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))
	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Dishes","frequency":"daily","assignee":"sam"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("explicit author and instant", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/tasks/task-1/complete", `{"at":"2024-07-15T18:00:00Z"}`,
			HeaderAuthor, "alex")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeTask(t, rec)
		require.Len(t, got.History, 1)
		assert.Equal(t, "alex", got.History[0].Author)
		assert.True(t, utc(2024, 7, 16, 18).Equal(got.NextDueDate))
	})

	t.Run("empty body falls back to assignee and now", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/tasks/task-1/complete", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decodeTask(t, rec)
		require.Len(t, got.History, 2)
		assert.Equal(t, "sam", got.History[1].Author)
		assert.True(t, f.now.Equal(got.History[1].Date))
	})

	t.Run("bad body", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/tasks/task-1/complete", `{"at":"yesterday"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing task", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/tasks/nope/complete", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPI_Occurrences(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 13, 10))
	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Dishes","frequency":"daily"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/tasks/task-1/occurrences?from=2024-07-15&to=2024-07-18", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got OccurrencesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, recurrence.Date{Year: 2024, Month: time.July, Day: 15}, got.From)
	require.Len(t, got.Occurrences, 3)
	for i, occ := range got.Occurrences {
		assert.True(t, utc(2024, 7, 15+i, 10).Equal(occ), occ)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{name: "missing from", query: "to=2024-07-18", wantStatus: http.StatusBadRequest},
		{name: "bad to", query: "from=2024-07-15&to=soon", wantStatus: http.StatusBadRequest},
		{name: "empty range", query: "from=2024-07-15&to=2024-07-15", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/tasks/task-1/occurrences?"+tt.query, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	rec = f.do(t, http.MethodGet, "/tasks/nope/occurrences?from=2024-07-15&to=2024-07-18", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// window before the current due date
	rec = f.do(t, http.MethodGet, "/tasks/task-1/occurrences?from=2024-07-01&to=2024-07-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, rec.Body.Bytes(), "occurrences")))
}

func mustField(t *testing.T, body []byte, field string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &m))
	return m[field]
}

func TestAPI_List(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 1, 9))
	for _, body := range []string{
		`{"title":"Dishes","frequency":"daily","category":"kitchen","assignee":"sam"}`,
		`{"title":"Bins","frequency":"weekly","category":"outside","assignee":"alex"}`,
	} {
		rec := f.do(t, http.MethodPost, "/tasks", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var tasks []model.Task
	rec := f.do(t, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)

	rec = f.do(t, http.MethodGet, "/tasks?category=KITCHEN", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Dishes", tasks[0].Title)

	rec = f.do(t, http.MethodGet, "/tasks?overdue=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	// three days later the daily task is overdue
	f.now = utc(2024, 7, 4, 9)
	rec = f.do(t, http.MethodGet, "/tasks?overdue=1&assignee=sam", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Dishes", tasks[0].Title)

	rec = f.do(t, http.MethodGet, "/tasks?overdue=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Delete(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 1, 9))
	rec := f.do(t, http.MethodPost, "/tasks", `{"title":"Dishes"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodDelete, "/tasks/task-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/tasks/task-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/tasks/task-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Routing(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 1, 9))

	rec := f.do(t, http.MethodPatch, "/tasks", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, POST", rec.Header().Get(headerAllow))

	rec = f.do(t, http.MethodGet, "/tasks/import", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get(headerAllow))

	rec = f.do(t, http.MethodGet, "/chores", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_Calendar(t *testing.T) {
	f := newFixture(t, utc(2024, 7, 1, 9))
	rec := f.do(t, http.MethodPost, "/tasks", `{"id":"bins","title":"Bins","recurrenceRule":"FREQ=WEEKLY;BYDAY=MO","exceptionDates":["2024-07-08"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mimeTypeCalendar, rec.Header().Get(headerContentType))
	ics := rec.Body.String()
	assert.Contains(t, ics, "BEGIN:VTODO")
	assert.Contains(t, ics, "UID:bins")
	assert.Contains(t, ics, "RRULE:FREQ=WEEKLY;BYDAY=MO")

	other := newFixture(t, utc(2024, 7, 1, 9))
	rec = other.do(t, http.MethodPost, "/tasks/import", ics, headerContentType, mimeTypeCalendar)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var imported []model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	require.Len(t, imported, 1)
	assert.Equal(t, "bins", imported[0].ID)
	assert.Equal(t, []recurrence.Date{{Year: 2024, Month: time.July, Day: 8}}, imported[0].ExceptionDates)

	rec = other.do(t, http.MethodPost, "/tasks/import", "garbage")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Auth(t *testing.T) {
	tokens := memory.New()
	require.NoError(t, tokens.AddToken("cli", "s3cret"))
	f := newFixture(t, utc(2024, 7, 1, 9), WithAuthenticator(tokens, ""))

	rec := f.do(t, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/tasks", "", "X-Auth-Token", "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_StorageFailure(t *testing.T) {
	store := &storage.MockStorage{}
	store.On("GetTask", mock.Anything, "t1").Return(nil, storage.Unavailable("database down", io.ErrUnexpectedEOF))
	f := newFixtureWithStore(t, utc(2024, 7, 1, 9), store)

	rec := f.do(t, http.MethodGet, "/tasks/t1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeError(t, rec))
	store.AssertExpectations(t)
}
