package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupProfileService(repo *mockUserRepository) *profileService {
	svc := NewProfileService(repo, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func strPtr(s string) *string {
	return &s
}

func TestProfileService_EnsureAccount(t *testing.T) {
	tests := []struct {
		name           string
		existing       *models.UserAccount
		identity       models.Identity
		expectedName   string
		expectedEmail  string
		expectedPhoto  string
		expectedWrites int
		expectedCreate int
	}{
		{
			name:           "first sign-in creates account",
			identity:       models.Identity{UserID: "u1", Name: "Lan Nguyen", Email: "lan@example.com"},
			expectedName:   "Lan Nguyen",
			expectedEmail:  "lan@example.com",
			expectedWrites: 1,
			expectedCreate: 1,
		},
		{
			name:           "name falls back to e-mail local part",
			identity:       models.Identity{UserID: "u1", Email: "minh.tran@example.com"},
			expectedName:   "minh.tran",
			expectedEmail:  "minh.tran@example.com",
			expectedWrites: 1,
			expectedCreate: 1,
		},
		{
			name:           "name falls back to User",
			identity:       models.Identity{UserID: "u1"},
			expectedName:   "User",
			expectedWrites: 1,
			expectedCreate: 1,
		},
		{
			name:           "existing account mirrors identity",
			existing:       &models.UserAccount{ID: "u1", Name: "Old", Email: "old@example.com", JobTitle: "Welder"},
			identity:       models.Identity{UserID: "u1", Name: "New", Email: "new@example.com", PhotoURL: "https://img/new.png"},
			expectedName:   "New",
			expectedEmail:  "new@example.com",
			expectedPhoto:  "https://img/new.png",
			expectedWrites: 1,
		},
		{
			name:           "empty identity fields keep stored values",
			existing:       &models.UserAccount{ID: "u1", Name: "Old", Email: "old@example.com"},
			identity:       models.Identity{UserID: "u1"},
			expectedName:   "Old",
			expectedEmail:  "old@example.com",
			expectedWrites: 0,
		},
		{
			name:           "unchanged identity does not write",
			existing:       &models.UserAccount{ID: "u1", Name: "Same", Email: "same@example.com"},
			identity:       models.Identity{UserID: "u1", Name: "Same", Email: "same@example.com"},
			expectedName:   "Same",
			expectedEmail:  "same@example.com",
			expectedWrites: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			if tt.existing != nil {
				repo = newMockUserRepository(tt.existing)
			}
			svc := setupProfileService(repo)

			account, err := svc.EnsureAccount(context.Background(), tt.identity)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedName, account.Name)
			assert.Equal(t, tt.expectedEmail, account.Email)
			assert.Equal(t, tt.expectedPhoto, account.PhotoURL)
			assert.Equal(t, tt.expectedWrites, repo.writes)
			assert.Equal(t, tt.expectedCreate, repo.createCalls)

			stored := repo.account("u1")
			assert.Equal(t, tt.expectedName, stored.Name)
			assert.Equal(t, tt.expectedEmail, stored.Email)
		})
	}
}

func TestProfileService_EnsureAccount_NewAccountDefaults(t *testing.T) {
	repo := newMockUserRepository()
	svc := setupProfileService(repo)

	account, err := svc.EnsureAccount(context.Background(), models.Identity{UserID: "u1", Name: "Lan"})

	require.NoError(t, err)
	assert.Equal(t, 0, account.Streak)
	assert.True(t, account.LastActivityDate.IsZero())
	assert.Empty(t, account.Topics)
	assert.Equal(t, testNow, account.CreatedAt)
}

func TestProfileService_EnsureAccount_ConcurrentCreate(t *testing.T) {
	// Another sign-in created the account between the read and the create
	repo := newMockUserRepository(&models.UserAccount{ID: "u1", Name: "Lan", Email: "lan@example.com"})
	getCalls := 0
	svc := setupProfileService(repo)
	svc.repo = &raceUserRepository{mockUserRepository: repo, missingReads: 1, getCalls: &getCalls}

	account, err := svc.EnsureAccount(context.Background(), models.Identity{UserID: "u1", Name: "Lan"})

	require.NoError(t, err)
	assert.Equal(t, "Lan", account.Name)
	assert.Equal(t, 2, getCalls)
	assert.Equal(t, 1, repo.createCalls)
}

// raceUserRepository reports the first reads as not found
type raceUserRepository struct {
	*mockUserRepository
	missingReads int
	getCalls     *int
}

func (r *raceUserRepository) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	*r.getCalls++
	if *r.getCalls <= r.missingReads {
		return nil, repositories.ErrDocumentNotFound
	}
	return r.mockUserRepository.GetByID(ctx, id)
}

func TestProfileService_EnsureAccount_Errors(t *testing.T) {
	tests := []struct {
		name          string
		setupRepo     func(repo *mockUserRepository)
		identity      models.Identity
		expectedError error
	}{
		{
			name:          "missing user id",
			setupRepo:     func(repo *mockUserRepository) {},
			identity:      models.Identity{Name: "Lan"},
			expectedError: ErrValidation,
		},
		{
			name:          "read failure",
			setupRepo:     func(repo *mockUserRepository) { repo.getErr = errors.New("connection refused") },
			identity:      models.Identity{UserID: "u1"},
			expectedError: ErrStorageUnavailable,
		},
		{
			name:          "create failure",
			setupRepo:     func(repo *mockUserRepository) { repo.createErr = errors.New("connection refused") },
			identity:      models.Identity{UserID: "u1"},
			expectedError: ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository()
			tt.setupRepo(repo)
			svc := setupProfileService(repo)

			account, err := svc.EnsureAccount(context.Background(), tt.identity)

			assert.ErrorIs(t, err, tt.expectedError)
			assert.Nil(t, account)
		})
	}
}

func TestProfileService_SaveProfile(t *testing.T) {
	tests := []struct {
		name          string
		req           *models.UpdateProfileRequest
		expectedError error
		check         func(t *testing.T, account *models.UserAccount)
	}{
		{
			name: "updates provided fields only",
			req:  &models.UpdateProfileRequest{JobTitle: strPtr("  Site Supervisor "), Company: strPtr("ACME")},
			check: func(t *testing.T, account *models.UserAccount) {
				assert.Equal(t, "Lan", account.Name)
				assert.Equal(t, "Site Supervisor", account.JobTitle)
				assert.Equal(t, "ACME", account.Company)
			},
		},
		{
			name: "renames",
			req:  &models.UpdateProfileRequest{Name: strPtr("Lan Nguyen")},
			check: func(t *testing.T, account *models.UserAccount) {
				assert.Equal(t, "Lan Nguyen", account.Name)
				assert.Equal(t, "Welder", account.JobTitle)
			},
		},
		{
			name: "clears optional field",
			req:  &models.UpdateProfileRequest{JobTitle: strPtr("")},
			check: func(t *testing.T, account *models.UserAccount) {
				assert.Empty(t, account.JobTitle)
			},
		},
		{
			name:          "empty name",
			req:           &models.UpdateProfileRequest{Name: strPtr("   ")},
			expectedError: ErrValidation,
		},
		{
			name:          "too long",
			req:           &models.UpdateProfileRequest{Company: strPtr(strings.Repeat("a", maxProfileFieldLength+1))},
			expectedError: ErrValidation,
		},
		{
			name:          "nothing to update",
			req:           &models.UpdateProfileRequest{},
			expectedError: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockUserRepository(&models.UserAccount{ID: "u1", Name: "Lan", JobTitle: "Welder"})
			svc := setupProfileService(repo)

			account, err := svc.SaveProfile(context.Background(), "u1", tt.req)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, account)
				assert.Equal(t, 0, repo.writes)
				return
			}
			require.NoError(t, err)
			tt.check(t, account)
			assert.Equal(t, 1, repo.writes)
		})
	}
}

func TestProfileService_SaveProfile_UnknownUser(t *testing.T) {
	svc := setupProfileService(newMockUserRepository())

	_, err := svc.SaveProfile(context.Background(), "ghost", &models.UpdateProfileRequest{Name: strPtr("Lan")})

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestProfileService_GetAccount(t *testing.T) {
	repo := newMockUserRepository(&models.UserAccount{ID: "u1", Name: "Lan"})
	svc := setupProfileService(repo)

	account, err := svc.GetAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Lan", account.Name)

	_, err = svc.GetAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	repo.getErr = errors.New("connection refused")
	_, err = svc.GetAccount(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
