package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks connectivity to a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	DB Pinger
}

// Check handles GET /healthz.
func (h HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			respondError(ctx, w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}

	respond(ctx, w, http.StatusOK, map[string]string{"status": "ok"}, "service healthy")
}
