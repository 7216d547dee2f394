package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// ProgressService is the interface that wraps methods for topic progress business logic
type ProgressService interface {
	// Method InitializeTopic starts a topic track for the user.
	//
	// Starting an already started topic returns the existing progress without any write.
	// An unknown topic returns a validation error, a missing account ErrUserNotFound.
	InitializeTopic(ctx context.Context, userID, topicID string) (*models.TopicProgress, error)
	// Method SubmitQuizResult records a quiz score of a topic day and returns the new state.
	//
	// "score" is a percentage in [0, 100] and "dayID" a day in [1, 60].
	// Submitting for a topic that was never started returns a validation error.
	// A passing score on a locked day is recorded without completing or unlocking anything.
	SubmitQuizResult(ctx context.Context, userID, topicID string, dayID, score int) (*models.QuizSubmissionResult, error)
	// Method GetTopicProgress returns the progress of a started topic.
	GetTopicProgress(ctx context.Context, userID, topicID string) (*models.TopicProgress, error)
}

// ProgressHandler handles HTTP requests for topic progress
type ProgressHandler struct {
	BaseHandler
	service ProgressService
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		service:     svc,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the progress routes
func (h *ProgressHandler) RegisterRoutes(r chi.Router) {
	r.Route("/topics/{topicId}", func(r chi.Router) {
		r.Post("/start", h.StartTopic)
		r.Get("/progress", h.GetProgress)
		r.Post("/days/{dayId}/quiz", h.SubmitQuiz)
	})
}

// StartTopic handles POST /api/v1/topics/{topicId}/start
// @Summary Start topic
// @Description Start a topic track. Starting an already started topic keeps its progress.
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param topicId path string true "Topic ID"
// @Success 200 {object} models.TopicProgress
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /topics/{topicId}/start [post]
func (h *ProgressHandler) StartTopic(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	progress, err := h.service.InitializeTopic(r.Context(), userID, chi.URLParam(r, "topicId"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, progress)
}

// GetProgress handles GET /api/v1/topics/{topicId}/progress
// @Summary Get topic progress
// @Description Get the progress of a started topic
// @Tags progress
// @Produce json
// @Security BearerAuth
// @Param topicId path string true "Topic ID"
// @Success 200 {object} models.TopicProgress
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /topics/{topicId}/progress [get]
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	progress, err := h.service.GetTopicProgress(r.Context(), userID, chi.URLParam(r, "topicId"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, progress)
}

// SubmitQuiz handles POST /api/v1/topics/{topicId}/days/{dayId}/quiz
// @Summary Submit quiz result
// @Description Record a quiz score. 80 or more passes the day and unlocks the next one.
// @Tags progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param topicId path string true "Topic ID"
// @Param dayId path int true "Day (1-60)"
// @Param request body models.SubmitQuizRequest true "Quiz score in percent"
// @Success 200 {object} models.QuizSubmissionResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /topics/{topicId}/days/{dayId}/quiz [post]
func (h *ProgressHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	dayID, ok := dayParam(r)
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid day")
		return
	}

	var req models.SubmitQuizRequest
	if err := decodeJSON(r, &req); err != nil || req.Score == nil {
		h.RespondError(w, http.StatusBadRequest, "score is required")
		return
	}

	result, err := h.service.SubmitQuizResult(r.Context(), userID, chi.URLParam(r, "topicId"), dayID, *req.Score)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}
