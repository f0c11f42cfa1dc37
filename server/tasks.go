package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
	"github.com/cyp0633/chorecal/task"
)

// CompleteRequest is the optional body of a completion.
type CompleteRequest struct {
	At *time.Time `json:"at,omitempty"`
}

// OccurrencesResponse lists the projected occurrences of one task.
type OccurrencesResponse struct {
	TaskID      string          `json:"taskId"`
	From        recurrence.Date `json:"from"`
	To          recurrence.Date `json:"to"`
	Occurrences []time.Time     `json:"occurrences"`
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodySize)).Decode(v)
}

func writeTask(w http.ResponseWriter, status int, t *model.Task) {
	if t.ETag != "" {
		w.Header().Set(headerETag, t.ETag)
	}
	writeJSON(w, status, t)
}

func (r *Router) handleList(w http.ResponseWriter, req *http.Request, _ *ResourcePath) {
	q := req.URL.Query()
	opts := task.ListOptions{
		Category: q.Get("category"),
		Assignee: q.Get("assignee"),
	}
	if v := q.Get("overdue"); v != "" {
		overdue, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "overdue must be a boolean")
			return
		}
		opts.Overdue = overdue
	}

	tasks, err := r.svc.List(req.Context(), opts)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request, _ *ResourcePath) {
	var in model.Task
	if err := decodeBody(w, req, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task body: "+err.Error())
		return
	}

	created, err := r.svc.Create(req.Context(), &in)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	w.Header().Set(headerLocation, (&ResourcePath{Type: ResourceTypeTask, TaskID: created.ID}).String())
	writeTask(w, http.StatusCreated, created)
}

func (r *Router) handleGet(w http.ResponseWriter, req *http.Request, path *ResourcePath) {
	t, err := r.svc.Get(req.Context(), path.TaskID)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeTask(w, http.StatusOK, t)
}

func (r *Router) handlePut(w http.ResponseWriter, req *http.Request, path *ResourcePath) {
	var in model.Task
	if err := decodeBody(w, req, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid task body: "+err.Error())
		return
	}

	updated, err := r.svc.Update(req.Context(), path.TaskID, req.Header.Get(headerIfMatch), &in)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeTask(w, http.StatusOK, updated)
}

func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request, path *ResourcePath) {
	if err := r.svc.Delete(req.Context(), path.TaskID); err != nil {
		r.fail(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleComplete records a completion. The body is optional; the author
// comes from the X-Author header.
func (r *Router) handleComplete(w http.ResponseWriter, req *http.Request, path *ResourcePath) {
	var body CompleteRequest
	if err := decodeBody(w, req, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid completion body: "+err.Error())
		return
	}

	opts := task.CompleteOptions{Author: req.Header.Get(HeaderAuthor)}
	if body.At != nil {
		opts.At = *body.At
	}

	updated, err := r.svc.Complete(req.Context(), path.TaskID, opts)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeTask(w, http.StatusOK, updated)
}

func (r *Router) handleOccurrences(w http.ResponseWriter, req *http.Request, path *ResourcePath) {
	loc := r.svc.Engine().Location()
	q := req.URL.Query()

	from, err := recurrence.ParseDate(q.Get("from"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date: "+err.Error())
		return
	}
	to, err := recurrence.ParseDate(q.Get("to"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date: "+err.Error())
		return
	}

	occurrences, err := r.svc.Occurrences(req.Context(), path.TaskID, from, to)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if occurrences == nil {
		occurrences = []time.Time{}
	}

	writeJSON(w, http.StatusOK, OccurrencesResponse{
		TaskID:      path.TaskID,
		From:        from,
		To:          to,
		Occurrences: occurrences,
	})
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request, _ *ResourcePath) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
