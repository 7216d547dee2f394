package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// RegenerationService is the interface that wraps the admin lesson tools
type RegenerationService interface {
	// Method RegenerateLesson regenerates one lesson synchronously and returns it.
	//
	// If only the fallback lesson could be produced, ErrGeneration is returned.
	RegenerateLesson(ctx context.Context, topicID string, dayID int) (*models.Lesson, error)
	// Method EnqueueTopicRegeneration queues the forced regeneration of every day of a topic.
	//
	// Returns the number of queued lessons.
	EnqueueTopicRegeneration(ctx context.Context, topicID string) (int, error)
	// Method DeleteTopicLessons removes every stored lesson of a topic.
	//
	// Returns the number of removed lessons.
	DeleteTopicLessons(ctx context.Context, topicID string) (int64, error)
}

// AdminHandler handles HTTP requests for the admin lesson tools
type AdminHandler struct {
	BaseHandler
	service RegenerationService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(svc RegenerationService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:     svc,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/lessons/{topicId}", func(r chi.Router) {
		r.Post("/regenerate", h.RegenerateTopic)
		r.Post("/days/{dayId}/regenerate", h.RegenerateLesson)
		r.Delete("/", h.DeleteTopicLessons)
	})
}

// RegenerateTopic handles POST /api/v1/admin/lessons/{topicId}/regenerate
// @Summary Regenerate topic lessons
// @Description Queue the regeneration of all 60 lessons of a topic
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path string true "Topic ID"
// @Success 202 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /admin/lessons/{topicId}/regenerate [post]
func (h *AdminHandler) RegenerateTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "topicId")

	queued, err := h.service.EnqueueTopicRegeneration(r.Context(), topicID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusAccepted, map[string]int{"queued": queued})
}

// RegenerateLesson handles POST /api/v1/admin/lessons/{topicId}/days/{dayId}/regenerate
// @Summary Regenerate lesson
// @Description Regenerate one lesson and return it
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path string true "Topic ID"
// @Param dayId path int true "Day (1-60)"
// @Success 200 {object} models.Lesson
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /admin/lessons/{topicId}/days/{dayId}/regenerate [post]
func (h *AdminHandler) RegenerateLesson(w http.ResponseWriter, r *http.Request) {
	dayID, ok := dayParam(r)
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid day")
		return
	}

	lesson, err := h.service.RegenerateLesson(r.Context(), chi.URLParam(r, "topicId"), dayID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, lesson)
}

// DeleteTopicLessons handles DELETE /api/v1/admin/lessons/{topicId}
// @Summary Delete topic lessons
// @Description Delete every stored lesson of a topic
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param topicId path string true "Topic ID"
// @Success 200 {object} map[string]int64
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /admin/lessons/{topicId} [delete]
func (h *AdminHandler) DeleteTopicLessons(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteTopicLessons(r.Context(), chi.URLParam(r, "topicId"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.Logger.Info("topic lessons deleted by admin", zap.String("topic_id", chi.URLParam(r, "topicId")), zap.Int64("count", deleted))
	h.RespondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
