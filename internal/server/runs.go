package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"legacylift/internal/artifact"
	"legacylift/internal/store"
)

// loadRun reads the manifest of a persisted run and writes the error
// response itself when that fails.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*store.Manifest, bool) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "runs are not persisted"})
		return nil, false
	}
	runID := r.PathValue("run")
	m, err := store.LoadManifest(r.Context(), h.store, runID)
	switch {
	case err == nil:
		return m, true
	case errors.Is(err, store.ErrInvalidKey):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid run id"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
	default:
		h.log.Warn("load manifest failed", zap.String("run_id", runID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not load run"})
	}
	return nil, false
}

// handleGetRun returns the manifest of any persisted run, so a bundle stays
// reachable after its session moved on.
func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	m, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) handleGetRunFile(w http.ResponseWriter, r *http.Request) {
	kind, err := artifact.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	m, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	item, ok := m.Item(kind)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "artifact not in run"})
		return
	}
	runID := r.PathValue("run")
	raw, redirected, err := h.readStored(w, r, runID, kind)
	if redirected {
		return
	}
	if err != nil {
		h.log.Warn("read stored artifact failed", zap.String("run_id", runID), zap.Stringer("kind", kind), zap.Error(err))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "artifact not found"})
		return
	}
	if item.Failed {
		w.Header().Set("X-Artifact-Failed", "true")
	}
	writeAttachment(w, kind, raw)
}

// handleStoreMetrics reports cache counters when the store keeps them.
func (h *Handler) handleStoreMetrics(w http.ResponseWriter, _ *http.Request) {
	mr, ok := h.store.(store.MetricsReporter)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "store keeps no metrics"})
		return
	}
	writeJSON(w, http.StatusOK, mr.Metrics())
}
