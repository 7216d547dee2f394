package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// CatalogReader is the interface that wraps read access to the curriculum catalog
type CatalogReader interface {
	// Method Topics returns every topic of the catalog in display order.
	Topics() []models.Topic
	// Method Dictionary returns the safety glossary.
	Dictionary() []models.DictionaryTerm
}

// TopicHandler handles HTTP requests for the public curriculum catalog
type TopicHandler struct {
	BaseHandler
	catalog CatalogReader
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(catalog CatalogReader, logger *zap.Logger) *TopicHandler {
	return &TopicHandler{
		catalog:     catalog,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the catalog routes
func (h *TopicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/topics", h.ListTopics)
	r.Get("/dictionary", h.GetDictionary)
}

// ListTopics handles GET /api/v1/topics
// @Summary List topics
// @Description Get every topic track of the curriculum
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Topic
// @Router /topics [get]
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, h.catalog.Topics())
}

// GetDictionary handles GET /api/v1/dictionary
// @Summary Get dictionary
// @Description Get the safety glossary
// @Tags catalog
// @Produce json
// @Success 200 {array} models.DictionaryTerm
// @Router /dictionary [get]
func (h *TopicHandler) GetDictionary(w http.ResponseWriter, r *http.Request) {
	h.RespondJSON(w, http.StatusOK, h.catalog.Dictionary())
}
