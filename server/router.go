package server

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/cyp0633/chorecal/task"
)

type handlerFunc func(w http.ResponseWriter, req *http.Request, path *ResourcePath)

// Router dispatches API requests by resource type and method
type Router struct {
	svc      *task.Service
	handlers map[ResourceType]map[string]handlerFunc
	logger   *slog.Logger
}

// NewRouter creates a new API router
func NewRouter(svc *task.Service, logger *slog.Logger) *Router {
	r := &Router{
		svc:    svc,
		logger: logger,
		handlers: map[ResourceType]map[string]handlerFunc{
			ResourceTypeTasks:       {},
			ResourceTypeTask:        {},
			ResourceTypeCompletion:  {},
			ResourceTypeOccurrences: {},
			ResourceTypeImport:      {},
			ResourceTypeCalendar:    {},
			ResourceTypeHealth:      {},
		},
	}

	// Register method handlers
	r.handlers[ResourceTypeTasks][http.MethodGet] = r.handleList
	r.handlers[ResourceTypeTasks][http.MethodPost] = r.handleCreate
	r.handlers[ResourceTypeTask][http.MethodGet] = r.handleGet
	r.handlers[ResourceTypeTask][http.MethodPut] = r.handlePut
	r.handlers[ResourceTypeTask][http.MethodDelete] = r.handleDelete
	r.handlers[ResourceTypeCompletion][http.MethodPost] = r.handleComplete
	r.handlers[ResourceTypeOccurrences][http.MethodGet] = r.handleOccurrences
	r.handlers[ResourceTypeImport][http.MethodPost] = r.handleImport
	r.handlers[ResourceTypeCalendar][http.MethodGet] = r.handleExport
	r.handlers[ResourceTypeHealth][http.MethodGet] = r.handleHealth

	return r
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.logger.Info("received request",
		"method", req.Method,
		"path", req.URL.Path,
		"remote_addr", req.RemoteAddr)

	path, err := ParseResourcePath(req.URL.Path)
	if err != nil {
		r.logger.Debug("unknown resource path",
			"error", err,
			"path", req.URL.Path)
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	methods := r.handlers[path.Type]
	handler, ok := methods[req.Method]
	if !ok {
		r.logger.Warn("method not allowed",
			"method", req.Method,
			"path", req.URL.Path)
		w.Header().Set(headerAllow, allowed(methods))
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	handler(w, req, path)
}

func allowed(methods map[string]handlerFunc) string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
