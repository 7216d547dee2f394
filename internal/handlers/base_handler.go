package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/middleware"
	"github.com/safetyspeak/backend/internal/services"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error to a status code and sends it
func (h *BaseHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		h.RespondError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": "))
	case errors.Is(err, services.ErrUserNotFound):
		h.RespondError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrStorageUnavailable):
		h.RespondError(w, http.StatusServiceUnavailable, "storage unavailable, please retry")
	case errors.Is(err, services.ErrGeneration):
		h.RespondError(w, http.StatusBadGateway, "lesson generation failed")
	default:
		h.Logger.Error("unexpected error",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON decodes the request body into "dst", rejecting unknown fields
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// dayParam parses the {dayId} URL parameter
func dayParam(r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "dayId"))
	if err != nil {
		return 0, false
	}
	return day, true
}

// userID returns the authenticated user ID, responding 401 when it is missing
func (h *BaseHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok || identity.UserID == "" {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return identity.UserID, true
}
