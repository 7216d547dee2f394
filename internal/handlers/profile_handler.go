package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safetyspeak/backend/internal/middleware"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// ProfileService is the interface that wraps methods for account and profile business logic
type ProfileService interface {
	// Method EnsureAccount returns the account of an authenticated user, creating it on first sign-in.
	//
	// Name, e-mail and photo of "identity" are mirrored into an existing account when they are not empty.
	EnsureAccount(ctx context.Context, identity models.Identity) (*models.UserAccount, error)
	// Method SaveProfile updates the non-nil fields of "req" and returns the updated account.
	//
	// An empty name, an overlong field or an empty request returns a validation error.
	SaveProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.UserAccount, error)
}

// CertificateService is the interface that wraps certificate statistics
type CertificateService interface {
	// Method GetSummary computes the certificate statistics of a user.
	GetSummary(ctx context.Context, userID string) (*models.CertificateSummary, error)
}

// ProfileHandler handles HTTP requests for the signed-in user's account
type ProfileHandler struct {
	BaseHandler
	profiles     ProfileService
	certificates CertificateService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles ProfileService, certificates CertificateService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:     profiles,
		certificates: certificates,
		BaseHandler:  BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers the account routes
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.GetMe)
		r.Put("/profile", h.UpdateProfile)
		r.Get("/certificate", h.GetCertificate)
	})
}

// GetMe handles GET /api/v1/me
// @Summary Get current account
// @Description Get the account of the signed-in user, creating it on first sign-in
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserAccount
// @Failure 401 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /me [get]
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	account, err := h.profiles.EnsureAccount(r.Context(), identity)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, account)
}

// UpdateProfile handles PUT /api/v1/me/profile
// @Summary Update profile
// @Description Update name, job title, company or photo of the signed-in user. Omitted fields are kept.
// @Tags account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.UserAccount
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /me/profile [put]
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.profiles.SaveProfile(r.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, account)
}

// GetCertificate handles GET /api/v1/me/certificate
// @Summary Get certificate summary
// @Description Get per-topic completion and quiz statistics of the signed-in user
// @Tags account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.CertificateSummary
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /me/certificate [get]
func (h *ProfileHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	summary, err := h.certificates.GetSummary(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.RespondJSON(w, http.StatusOK, summary)
}
