package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// LessonService is the interface that wraps lesson retrieval
type LessonService interface {
	// Method GetLesson returns the lesson of a topic day.
	//
	// A missing lesson is generated and stored. With "forceRegenerate" the stored lesson is replaced.
	// Generation and storage failures produce the fallback lesson, so only validation errors are returned.
	GetLesson(ctx context.Context, topicID string, dayID int, forceRegenerate bool) (*models.Lesson, error)
}

// LessonHandler handles HTTP requests for lessons
type LessonHandler struct {
	BaseHandler
	service LessonService
	limiter func(http.Handler) http.Handler
}

// NewLessonHandler creates a new lesson handler.
//
// "limiter" wraps the lesson route, since a miss may trigger a generation. It may be nil.
func NewLessonHandler(svc LessonService, limiter func(http.Handler) http.Handler, logger *zap.Logger) *LessonHandler {
	return &LessonHandler{
		service:     svc,
		limiter:     limiter,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the lesson routes
func (h *LessonHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Get("/topics/{topicId}/days/{dayId}/lesson", h.GetLesson)
	})
}

// GetLesson handles GET /api/v1/topics/{topicId}/days/{dayId}/lesson
// @Summary Get lesson
// @Description Get the lesson of a topic day. Missing lessons are generated on the first request.
// @Tags lessons
// @Produce json
// @Security BearerAuth
// @Param topicId path string true "Topic ID"
// @Param dayId path int true "Day (1-60)"
// @Param regenerate query bool false "Replace the stored lesson with a new one"
// @Success 200 {object} models.Lesson
// @Failure 400 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /topics/{topicId}/days/{dayId}/lesson [get]
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	dayID, ok := dayParam(r)
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid day")
		return
	}

	force := false
	if v := r.URL.Query().Get("regenerate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "invalid regenerate flag")
			return
		}
		force = parsed
	}

	lesson, err := h.service.GetLesson(r.Context(), chi.URLParam(r, "topicId"), dayID, force)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, lesson)
}
