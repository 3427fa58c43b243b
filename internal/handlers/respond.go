package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// apiResponse is the uniform envelope every endpoint answers with.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// respond writes a success envelope with the provided payload and message.
func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// respondError writes a failure envelope carrying only a message.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, apiResponse{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
	})
}

// respondStoreError translates repository sentinel errors into the envelope.
// Ownership mismatches arrive here as ErrNotFound and stay that way: a
// non-owner is never told the resource exists.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error, notFoundMessage string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, "resource already exists")
	default:
		logging.FromContext(ctx).Error("store operation failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(payload.StatusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", payload.StatusCode, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case payload.StatusCode >= http.StatusInternalServerError:
		logger.Error("request failed", "status", payload.StatusCode, "message", payload.Message)
	case payload.StatusCode >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", payload.StatusCode, "message", payload.Message)
	}
}
