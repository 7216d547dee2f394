package main

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
	"github.com/safetyspeak/backend/internal/services"
	"github.com/safetyspeak/backend/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockLessonGenerator is a mock implementation of LessonGenerator
type mockLessonGenerator struct {
	lesson *models.Lesson
	err    error
	force  bool
}

func (m *mockLessonGenerator) GetLesson(ctx context.Context, topicID string, dayID int, forceRegenerate bool) (*models.Lesson, error) {
	m.force = forceRegenerate
	return m.lesson, m.err
}

// mockAccountRepository is a mock implementation of AccountRepository
type mockAccountRepository struct {
	account *models.UserAccount
	err     error
}

func (m *mockAccountRepository) GetByID(ctx context.Context, id string) (*models.UserAccount, error) {
	return m.account, m.err
}

// mockCatalog is a mock implementation of TopicCatalog
type mockCatalog struct{}

func (mockCatalog) Topics() []models.Topic {
	return []models.Topic{{ID: "general-safety", Name: "General Safety"}, {ID: "electrical", Name: "Electrical Safety"}}
}

type sentEmail struct {
	to, subject, body string
}

func newTestWorker(lessons LessonGenerator, accounts AccountRepository) (*Worker, *[]sentEmail) {
	w := NewWorker(zap.NewNop(), lessons, accounts, mockCatalog{}, SMTPConfig{From: "noreply@safetyspeak.app"})
	sent := &[]sentEmail{}
	w.send = func(to, subject, body string) error {
		*sent = append(*sent, sentEmail{to: to, subject: subject, body: body})
		return nil
	}
	return w, sent
}

func finishedProgress() models.TopicProgress {
	progress := models.NewTopicProgress()
	progress.CurrentDay = models.MaxDay
	for day := models.FirstDay; day <= models.MaxDay; day++ {
		progress.CompletedDays = append(progress.CompletedDays, day)
		progress.QuizScores[day] = 90
	}
	return progress
}

func TestWorker_HandleLessonGenerate(t *testing.T) {
	tests := []struct {
		name           string
		generator      *mockLessonGenerator
		expectError    bool
		expectSkipping bool
	}{
		{
			name:      "generated",
			generator: &mockLessonGenerator{lesson: &models.Lesson{Source: models.LessonSourceGenerated}},
		},
		{
			name:           "fallback is not retried",
			generator:      &mockLessonGenerator{lesson: &models.Lesson{Source: models.LessonSourceFallback}},
			expectError:    true,
			expectSkipping: true,
		},
		{
			name:        "storage error is retried",
			generator:   &mockLessonGenerator{err: services.ErrStorageUnavailable},
			expectError: true,
		},
		{
			name:           "unknown topic is not retried",
			generator:      &mockLessonGenerator{err: services.ErrUnknownTopic},
			expectError:    true,
			expectSkipping: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWorker(tt.generator, &mockAccountRepository{})
			task, err := tasks.NewLessonGenerateTask("electrical", 5, true)
			require.NoError(t, err)

			err = w.HandleLessonGenerate(context.Background(), task)

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.expectSkipping, errors.Is(err, asynq.SkipRetry))
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, tt.generator.force)
		})
	}
}

func TestWorker_HandleLessonGenerate_InvalidPayload(t *testing.T) {
	generator := &mockLessonGenerator{}
	w, _ := newTestWorker(generator, &mockAccountRepository{})

	err := w.HandleLessonGenerate(context.Background(), asynq.NewTask(tasks.TypeLessonGenerate, []byte("not json")))

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestWorker_HandleCertificateEmail(t *testing.T) {
	account := &models.UserAccount{
		ID:      "u1",
		Name:    "Lan <Nguyen>",
		Email:   "lan@example.com",
		Company: "Acme Builders",
		Topics:  map[string]models.TopicProgress{"electrical": finishedProgress()},
	}
	w, sent := newTestWorker(&mockLessonGenerator{}, &mockAccountRepository{account: account})
	task, err := tasks.NewCertificateEmailTask("u1", "electrical")
	require.NoError(t, err)

	require.NoError(t, w.HandleCertificateEmail(context.Background(), task))

	require.Len(t, *sent, 1)
	email := (*sent)[0]
	assert.Equal(t, "lan@example.com", email.to)
	assert.Equal(t, "SafetySpeak certificate: Electrical Safety", email.subject)
	assert.Contains(t, email.body, "Lan &lt;Nguyen&gt;")
	assert.Contains(t, email.body, "average quiz score of 90%")
	assert.Contains(t, email.body, "Acme Builders")
	assert.Contains(t, email.body, "1 of 2 topics")
}

func TestWorker_HandleCertificateEmail_Skipped(t *testing.T) {
	tests := []struct {
		name           string
		accounts       *mockAccountRepository
		topicID        string
		expectError    bool
		expectSkipping bool
	}{
		{
			name:     "account deleted",
			accounts: &mockAccountRepository{err: repositories.ErrDocumentNotFound},
			topicID:  "electrical",
		},
		{
			name:     "no email",
			accounts: &mockAccountRepository{account: &models.UserAccount{ID: "u1", Topics: map[string]models.TopicProgress{"electrical": finishedProgress()}}},
			topicID:  "electrical",
		},
		{
			name:           "topic not finished",
			accounts:       &mockAccountRepository{account: &models.UserAccount{ID: "u1", Email: "lan@example.com", Topics: map[string]models.TopicProgress{"electrical": models.NewTopicProgress()}}},
			topicID:        "electrical",
			expectError:    true,
			expectSkipping: true,
		},
		{
			name:        "storage error is retried",
			accounts:    &mockAccountRepository{err: errors.New("connection refused")},
			topicID:     "electrical",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, sent := newTestWorker(&mockLessonGenerator{}, tt.accounts)
			task, err := tasks.NewCertificateEmailTask("u1", tt.topicID)
			require.NoError(t, err)

			err = w.HandleCertificateEmail(context.Background(), task)

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, tt.expectSkipping, errors.Is(err, asynq.SkipRetry))
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, *sent)
		})
	}
}

func TestWorker_HandleCertificateEmail_SendFailure(t *testing.T) {
	account := &models.UserAccount{ID: "u1", Email: "lan@example.com", Topics: map[string]models.TopicProgress{"electrical": finishedProgress()}}
	w, _ := newTestWorker(&mockLessonGenerator{}, &mockAccountRepository{account: account})
	w.send = func(to, subject, body string) error { return errors.New("smtp unavailable") }
	task, err := tasks.NewCertificateEmailTask("u1", "electrical")
	require.NoError(t, err)

	err = w.HandleCertificateEmail(context.Background(), task)

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
