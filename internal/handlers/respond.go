package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
)

// apiResponse is the uniform success envelope returned on every 2xx/3xx
// response.
type apiResponse struct {
	Data       any    `json:"data"`
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

// apiErrorResponse is the envelope for every error response.
type apiErrorResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// respondData writes the success envelope with the provided payload.
func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeJSON(ctx, w, status, apiResponse{
		Data:       data,
		StatusCode: status,
		Success:    status < http.StatusBadRequest,
		Message:    message,
	})
}

// respondError writes the error envelope and logs according to severity.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, apiErrorResponse{Message: message, Success: false})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// authorizeOwner is the single ownership check used by every mutating
// resource handler: the actor must be the stored owner.
func authorizeOwner(actorID, ownerID string) bool {
	return actorID != "" && actorID == ownerID
}
