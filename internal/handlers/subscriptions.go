package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

// SubscriptionHandler implements channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

type subscribeResponse struct {
	Subscribed bool `json:"subscribed"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}. Subscribing to
// your own channel is rejected.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := auth.IdentityFromContext(ctx)

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}
	if channelID == identity.UserID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, identity.UserID, channelID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found")
		return
	}

	message := "unsubscribed from channel"
	if subscribed {
		message = "subscribed to channel"
	}
	respond(ctx, w, http.StatusOK, subscribeResponse{Subscribed: subscribed}, message)
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channelID := r.PathValue("channelId")
	if channelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	subscribers, err := h.Subscriptions.Subscribers(ctx, channelID)
	if err != nil {
		respondStoreError(ctx, w, err, "channel not found")
		return
	}
	if subscribers == nil {
		subscribers = []models.OwnerProfile{}
	}

	respond(ctx, w, http.StatusOK, subscribers, "subscribers fetched successfully")
}

// Subscribed handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) Subscribed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subscriberID := r.PathValue("subscriberId")
	if subscriberID == "" {
		respondError(ctx, w, http.StatusBadRequest, "subscriberId is required")
		return
	}

	channels, err := h.Subscriptions.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		respondStoreError(ctx, w, err, "user not found")
		return
	}
	if channels == nil {
		channels = []models.OwnerProfile{}
	}

	respond(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}
