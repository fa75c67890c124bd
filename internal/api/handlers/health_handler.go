package handlers

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/isdelr/notes-be/internal/database"
	"github.com/isdelr/notes-be/internal/monitoring"
)

// Banner is the plain text served at the root path.
const Banner = "Notes API is running"

// StoreStatus reports the last observed health of the store connection.
type StoreStatus interface {
	Status() database.Status
}

// HealthHandler reports service health.
type HealthHandler struct {
	store StoreStatus
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store StoreStatus) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string                    `json:"status"`
	Store  database.Status           `json:"store"`
	System monitoring.SystemSnapshot `json:"system"`
}

// Root serves the liveness banner.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, Banner)
}

// Health reports store connectivity and host resources. It answers 503
// while the store is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Store:  h.store.Status(),
		System: monitoring.Snapshot(r.Context()),
	}
	status := http.StatusOK
	if !resp.Store.Connected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, r, status, resp)
}
