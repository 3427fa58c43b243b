package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

// PlaylistHandler implements playlist CRUD and membership endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	NowFunc   func() time.Time
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     identity.UserID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Playlists.Create(ctx, playlist); err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}

	respond(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.PathValue("userId")
	if userID == "" {
		respondError(ctx, w, http.StatusBadRequest, "userId is required")
		return
	}

	playlists, err := h.Playlists.ListForUser(ctx, userID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}
	if playlists == nil {
		playlists = []models.PlaylistWithOwner{}
	}

	respond(ctx, w, http.StatusOK, playlists, "playlists fetched successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	playlistID := r.PathValue("playlistId")
	if playlistID == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlistId is required")
		return
	}

	detail, err := h.Playlists.FindDetail(ctx, playlistID)
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respond(ctx, w, http.StatusOK, detail, "playlist fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	playlistID := r.PathValue("playlistId")
	if playlistID == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlistId is required")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondError(ctx, w, http.StatusBadRequest, "name is required")
		return
	}

	playlist, err := h.Playlists.Update(ctx, playlistID, identity.UserID, name, strings.TrimSpace(req.Description))
	if err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respond(ctx, w, http.StatusOK, playlist, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	playlistID := r.PathValue("playlistId")
	if playlistID == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlistId is required")
		return
	}

	if err := h.Playlists.Delete(ctx, playlistID, identity.UserID); err != nil {
		respondStoreError(ctx, w, err, "playlist not found")
		return
	}

	respond(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
// Adding a video that is already present is a no-op success.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	playlistID := r.PathValue("playlistId")
	videoID := r.PathValue("videoId")
	if playlistID == "" || videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlistId and videoId are required")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlistID, videoID, identity.UserID); err != nil {
		respondStoreError(ctx, w, err, "playlist or video not found")
		return
	}

	respond(ctx, w, http.StatusOK, struct{}{}, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	playlistID := r.PathValue("playlistId")
	videoID := r.PathValue("videoId")
	if playlistID == "" || videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "playlistId and videoId are required")
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlistID, videoID, identity.UserID); err != nil {
		respondStoreError(ctx, w, err, "playlist or video not found")
		return
	}

	respond(ctx, w, http.StatusOK, struct{}{}, "video removed from playlist")
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
