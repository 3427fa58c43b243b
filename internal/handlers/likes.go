package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

// LikeHandler implements the like toggle and listing endpoints.
type LikeHandler struct {
	Likes LikeStore
}

type toggleResponse struct {
	Liked bool `json:"liked"`
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	videos, err := h.Likes.ListLikedVideos(ctx, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}
	if videos == nil {
		videos = []models.VideoWithOwner{}
	}

	respond(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, target models.LikeTarget, param string) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	targetID := r.PathValue(param)
	if targetID == "" {
		respondError(ctx, w, http.StatusBadRequest, param+" is required")
		return
	}

	liked, err := h.Likes.Toggle(ctx, target, targetID, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, string(target)+" not found")
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	respond(ctx, w, http.StatusOK, toggleResponse{Liked: liked}, message)
}
