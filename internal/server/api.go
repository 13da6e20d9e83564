package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"legacylift/internal/session"
)

type migrateRequest struct {
	RepoURL string `json:"repoUrl"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleCreateMigration(w http.ResponseWriter, r *http.Request) {
	sid, slot := h.session(w, r)
	var in migrateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	b, err := h.migrate(r.Context(), sid, slot, in.RepoURL)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: session.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, newBundleView(b))
}

func (h *Handler) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	_, slot := h.session(w, r)
	view := newBundleView(slot.Current())
	if view == nil {
		resp := errorResponse{Error: "no artifacts generated yet"}
		if msg := strings.TrimSpace(slot.LastError()); msg != "" {
			resp.Error = msg
		}
		writeJSON(w, http.StatusNotFound, resp)
		return
	}
	view.LastError = slot.LastError()
	writeJSON(w, http.StatusOK, view)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
