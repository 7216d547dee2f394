package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
	"go.uber.org/zap"
)

const maxProfileFieldLength = 200

type profileService struct {
	repo   UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewProfileService creates a new profile service
func NewProfileService(repo UserRepository, logger *zap.Logger) *profileService {
	return &profileService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureAccount returns the account of an authenticated user, creating it on first sign-in.
//
// Name, e-mail and photo reported by the identity provider are mirrored into an existing account.
// Empty identity fields never overwrite stored values.
func (s *profileService) EnsureAccount(ctx context.Context, identity models.Identity) (*models.UserAccount, error) {
	if identity.UserID == "" {
		return nil, validationError("user id is required")
	}

	account, err := s.repo.GetByID(ctx, identity.UserID)
	if errors.Is(err, repositories.ErrDocumentNotFound) {
		account, err = s.createAccount(ctx, identity)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, repositories.ErrDocumentExists) {
			return nil, mapStoreError(s.logger, "create account", err)
		}
		// Created by a concurrent sign-in
		account, err = s.repo.GetByID(ctx, identity.UserID)
	}
	if err != nil {
		return nil, mapStoreError(s.logger, "get account", err)
	}

	fields := models.FieldUpdates{}
	if identity.Name != "" && identity.Name != account.Name {
		fields["name"] = identity.Name
		account.Name = identity.Name
	}
	if identity.Email != "" && identity.Email != account.Email {
		fields["email"] = identity.Email
		account.Email = identity.Email
	}
	if identity.PhotoURL != "" && identity.PhotoURL != account.PhotoURL {
		fields["photoURL"] = identity.PhotoURL
		account.PhotoURL = identity.PhotoURL
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, identity.UserID, fields); err != nil {
			return nil, mapStoreError(s.logger, "mirror identity", err)
		}
	}

	return account, nil
}

func (s *profileService) createAccount(ctx context.Context, identity models.Identity) (*models.UserAccount, error) {
	account := &models.UserAccount{
		ID:       identity.UserID,
		Name:     displayName(identity),
		Email:    identity.Email,
		PhotoURL: identity.PhotoURL,
		Topics:   map[string]models.TopicProgress{},
		// LastActivityDate stays zero so the first activity counts as a new day
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created", zap.String("user_id", account.ID))
	return account, nil
}

// displayName picks the name of a new account: the provider name, the e-mail local part or "User"
func displayName(identity models.Identity) string {
	if name := strings.TrimSpace(identity.Name); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(identity.Email, "@"); strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return "User"
}

// SaveProfile updates the provided profile fields and returns the updated account.
//
// Fields left nil in the request are not touched.
func (s *profileService) SaveProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.UserAccount, error) {
	fields := models.FieldUpdates{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("name must not be empty")
		}
		fields["name"] = name
	}
	optional := []struct {
		path  string
		value *string
	}{
		{"jobTitle", req.JobTitle},
		{"company", req.Company},
		{"photoURL", req.PhotoURL},
	}
	for _, field := range optional {
		if field.value != nil {
			fields[field.path] = strings.TrimSpace(*field.value)
		}
	}
	for path, value := range fields {
		if len(value.(string)) > maxProfileFieldLength {
			return nil, validationError("%s must be at most %d characters", path, maxProfileFieldLength)
		}
	}
	if len(fields) == 0 {
		return nil, validationError("no fields to update")
	}

	if err := s.repo.Update(ctx, userID, fields); err != nil {
		return nil, mapStoreError(s.logger, "save profile", err)
	}

	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(s.logger, "get account", err)
	}
	return account, nil
}

// GetAccount returns the account of a user
func (s *profileService) GetAccount(ctx context.Context, userID string) (*models.UserAccount, error) {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(s.logger, "get account", err)
	}
	return account, nil
}
