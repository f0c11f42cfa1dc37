package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyp0633/chorecal/storage"
	"github.com/cyp0633/chorecal/task"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusOf maps service and storage errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, task.ErrInvalidRange),
		errors.Is(err, task.ErrInvalidCalendar),
		errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		writeError(w, status, "internal server error")
		return
	}

	r.logger.Info("request rejected",
		"method", req.Method,
		"path", req.URL.Path,
		"status", status,
		"error", err)
	writeError(w, status, err.Error())
}
