package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// VideoHandler implements video publishing, retrieval, and management.
type VideoHandler struct {
	Videos  VideoStore
	Users   UserStore
	Media   MediaStore
	Prober  DurationProber
	NowFunc func() time.Time
}

type updateVideoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// List handles GET /api/v1/videos. Only published videos are returned unless
// the caller filters by their own userId, which the repository still limits
// to published rows for everyone else.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q := r.URL.Query()
	params := repositories.ListVideosParams{
		Query:   strings.TrimSpace(q.Get("query")),
		OwnerID: strings.TrimSpace(q.Get("userId")),
		Page:    parsePositiveInt(q.Get("page"), defaultPage),
		Limit:   parsePositiveInt(q.Get("limit"), defaultLimit),
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	if sortBy := strings.TrimSpace(q.Get("sortBy")); sortBy != "" {
		params.SortBy = sortBy
		params.SortDesc = !strings.EqualFold(q.Get("sortType"), "asc")
	}

	page, err := h.Videos.List(ctx, params)
	if err != nil {
		respondStoreError(ctx, w, err, "videos not found")
		return
	}

	respond(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos. The request is multipart with a
// mandatory videoFile and thumbnail. Duration is probed locally before the
// file leaves the host; a probe failure is logged but does not block the
// publish.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)
	logger := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	videoPath, videoCleanup, err := spoolFormFile(r, "videoFile")
	if err != nil {
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "videoFile is required")
			return
		}
		logger.Error("spool video file", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "could not read video file")
		return
	}
	defer videoCleanup()

	var duration float64
	if h.Prober != nil {
		duration, err = h.Prober.Duration(ctx, videoPath)
		if err != nil {
			logger.Warn("probe video duration", "error", err)
			duration = 0
		}
	}

	videoURL, err := h.Media.Upload(ctx, videoPath)
	if err != nil {
		logger.Error("upload video file", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	thumbnailURL, err := uploadFormFile(ctx, h.Media, r, "thumbnail")
	if err != nil {
		if deleteErr := h.Media.Delete(ctx, videoURL); deleteErr != nil {
			logger.Warn("rollback video upload", "url", videoURL, "error", deleteErr)
		}
		if errors.Is(err, errMissingFile) {
			respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
			return
		}
		logger.Error("upload thumbnail", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "media upload failed")
		return
	}

	now := h.now()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      identity.UserID,
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     duration,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		respondStoreError(ctx, w, err, "owner not found")
		return
	}

	respond(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}. Fetching increments the view
// counter atomically and, for signed-in viewers, records the watch.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	video, err := h.Videos.GetAndCountView(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if identity, ok := auth.IdentityFromContext(ctx); ok {
		if err := h.Users.RecordWatch(ctx, identity.UserID, videoID); err != nil {
			logger.Warn("record watch history", "videoId", videoID, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. Accepts either JSON with
// title/description or multipart carrying an optional replacement thumbnail.
// A replaced thumbnail is removed from the media store after the row commits.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)
	logger := logging.FromContext(ctx)

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	var title, description string
	var thumbnailURL *string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		title = strings.TrimSpace(r.FormValue("title"))
		description = strings.TrimSpace(r.FormValue("description"))

		url, err := uploadFormFile(ctx, h.Media, r, "thumbnail")
		switch {
		case err == nil:
			thumbnailURL = &url
		case errors.Is(err, errMissingFile):
			// thumbnail unchanged
		default:
			logger.Error("upload thumbnail", "error", err)
			respondError(ctx, w, http.StatusBadGateway, "media upload failed")
			return
		}
	} else {
		var req updateVideoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(ctx, w, http.StatusBadRequest, "invalid request body")
			return
		}
		title = strings.TrimSpace(req.Title)
		description = strings.TrimSpace(req.Description)
	}

	if title == "" && description == "" && thumbnailURL == nil {
		respondError(ctx, w, http.StatusBadRequest, "nothing to update")
		return
	}

	video, previousThumbnail, err := h.Videos.UpdateDetails(ctx, videoID, identity.UserID, title, description, thumbnailURL)
	if err != nil {
		if thumbnailURL != nil {
			if deleteErr := h.Media.Delete(ctx, *thumbnailURL); deleteErr != nil {
				logger.Warn("rollback thumbnail upload", "url", *thumbnailURL, "error", deleteErr)
			}
		}
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	if thumbnailURL != nil && previousThumbnail != "" && previousThumbnail != *thumbnailURL {
		if err := h.Media.Delete(ctx, previousThumbnail); err != nil {
			logger.Warn("delete replaced thumbnail", "url", previousThumbnail, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, video, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. The row is removed first;
// media cleanup failures are logged, not surfaced.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)
	logger := logging.FromContext(ctx)

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	video, err := h.Videos.Delete(ctx, videoID, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	for _, url := range []string{video.VideoURL, video.ThumbnailURL} {
		if url == "" {
			continue
		}
		if err := h.Media.Delete(ctx, url); err != nil {
			logger.Warn("delete video media", "url", url, "error", err)
		}
	}

	respond(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/{videoId}/toggle-publish.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	videoID := r.PathValue("videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	video, err := h.Videos.TogglePublish(ctx, videoID, identity.UserID)
	if err != nil {
		respondStoreError(ctx, w, err, "video not found")
		return
	}

	respond(ctx, w, http.StatusOK, video, "publish status toggled successfully")
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
