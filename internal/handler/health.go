// Package handler contains the HTTP handlers of the API.
//
// Handlers parse the request, call one service method and shape the
// response. They hold no business rules; errors are translated to HTTP in
// writeError only.
package handler

import (
	"context"
	"net/http"
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness together with the state of the profile store.
type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the body of GET /health. Status is always "healthy";
// Supabase is "connected" or "error: <reason>".
type HealthResponse struct {
	Status   string `json:"status"`
	Supabase string `json:"supabase"`
}

// HandleHealth always answers 200 so the process stays in rotation while the
// store is down; the store state is informational.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "connected"
	if err := h.store.Ping(r.Context()); err != nil {
		status = "error: " + err.Error()
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Supabase: status})
}

// HandleRoot confirms the API is up.
//
// HTTP: GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Dev Dating API is running"})
}
