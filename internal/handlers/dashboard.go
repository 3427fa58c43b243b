package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

// DashboardHandler serves channel owner statistics.
type DashboardHandler struct {
	Dashboard DashboardStore
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	stats, err := h.Dashboard.ChannelStats(ctx, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found")
		return
	}

	respond(ctx, w, http.StatusOK, stats, "channel stats fetched successfully")
}

// Videos handles GET /api/v1/dashboard/videos. Returns every video the
// caller owns, published or not.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	videos, err := h.Dashboard.ChannelVideos(ctx, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found")
		return
	}
	if videos == nil {
		videos = []models.VideoWithLikes{}
	}

	respond(ctx, w, http.StatusOK, videos, "channel videos fetched successfully")
}
