package server

import (
	"bytes"
	"net/http"

	"github.com/cyp0633/chorecal/model"
)

// handleExport serves every task as one VCALENDAR.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request, _ *ResourcePath) {
	var buf bytes.Buffer
	if err := r.svc.Export(req.Context(), &buf); err != nil {
		r.fail(w, req, err)
		return
	}

	w.Header().Set(headerContentType, mimeTypeCalendar)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handleImport creates or replaces one task per VTODO of the posted calendar.
func (r *Router) handleImport(w http.ResponseWriter, req *http.Request, _ *ResourcePath) {
	imported, err := r.svc.Import(req.Context(), http.MaxBytesReader(w, req.Body, maxBodySize))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	if imported == nil {
		imported = []*model.Task{}
	}
	writeJSON(w, http.StatusOK, imported)
}
