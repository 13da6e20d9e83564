package server

import "net/http"

func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	// Browser
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /migrate", h.handleMigrateForm)
	mux.HandleFunc("GET /download/{kind}", h.handleDownload)
	mux.HandleFunc("GET /ws", h.handleProgressWS)

	// JSON
	mux.HandleFunc("POST /api/migrations", h.handleCreateMigration)
	mux.HandleFunc("GET /api/bundle", h.handleGetBundle)
	mux.HandleFunc("GET /api/runs/{run}", h.handleGetRun)
	mux.HandleFunc("GET /api/runs/{run}/files/{kind}", h.handleGetRunFile)

	mux.HandleFunc("GET /debug/store", h.handleStoreMetrics)

	return CORS(h.origins, mux)
}
