package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
	"go.uber.org/zap"
)

// UserRepository is the interface that wraps methods for user account data access
type UserRepository interface {
	// Method GetByID retrieves a user account by its ID.
	//
	// "ctx" is the context of the request.
	// If the account does not exist repositories.ErrDocumentNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.UserAccount, error)
	// Method Create inserts a new user account.
	//
	// If an account with the same ID already exists repositories.ErrDocumentExists is returned.
	Create(ctx context.Context, account *models.UserAccount) error
	// Method Update applies partial field updates to a user account.
	//
	// Keys of "fields" are dotted paths, for example "topics.electrical.currentDay".
	Update(ctx context.Context, id string, fields models.FieldUpdates) error
	// Method Transact runs an atomic read-modify-write cycle on a user account.
	//
	// "fn" receives the current account and returns the fields to change; returning no fields skips the write.
	// Concurrent transactions on the same account are serialized.
	// Returns the account as it is after the transaction and an error if any.
	Transact(ctx context.Context, id string, fn func(account *models.UserAccount) (models.FieldUpdates, error)) (*models.UserAccount, error)
}

// TopicCatalog is the interface that wraps read access to the topic catalog
type TopicCatalog interface {
	// Method Topic returns a topic by its ID and whether it exists.
	Topic(id string) (models.Topic, bool)
	// Method Topics returns all topics in catalog order.
	Topics() []models.Topic
}

// CertificateNotifier is the interface that wraps the certificate e-mail trigger
type CertificateNotifier interface {
	// Method EnqueueCertificateEmail schedules the certificate e-mail for a completed topic.
	EnqueueCertificateEmail(ctx context.Context, userID, topicID string) error
}

type progressService struct {
	repo     UserRepository
	catalog  TopicCatalog
	notifier CertificateNotifier
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressService creates a new progress service.
//
// "location" defines the calendar day boundaries of the login streak.
// "notifier" may be nil, in which case no certificate e-mails are sent.
func NewProgressService(repo UserRepository, catalog TopicCatalog, notifier CertificateNotifier, location *time.Location, logger *zap.Logger) *progressService {
	if location == nil {
		location = time.UTC
	}
	return &progressService{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// InitializeTopic starts a topic track for the user.
//
// Starting an already started topic returns the existing progress without writing anything.
func (s *progressService) InitializeTopic(ctx context.Context, userID, topicID string) (*models.TopicProgress, error) {
	if _, ok := s.catalog.Topic(topicID); !ok {
		return nil, ErrUnknownTopic
	}

	account, err := s.repo.Transact(ctx, userID, func(account *models.UserAccount) (models.FieldUpdates, error) {
		if _, started := account.Topic(topicID); started {
			return nil, nil
		}
		return models.FieldUpdates{topicPath(topicID): models.NewTopicProgress()}, nil
	})
	if err != nil {
		return nil, s.storeError("initialize topic", err)
	}

	progress, ok := account.Topic(topicID)
	if !ok {
		return nil, fmt.Errorf("%w: topic %s missing after initialization", ErrStorageUnavailable, topicID)
	}
	progress = progress.Clone()
	return &progress, nil
}

// SubmitQuizResult records a quiz score and updates the topic progress and the login streak.
//
// A score of at least models.PassThreshold passes the day. A passed day that is unlocked becomes completed,
// and passing the frontier day unlocks the next one. Passing a locked day only records its score:
// the day is not completed and the unlocked frontier does not move. Failing never takes anything away.
// The new state is computed and committed in one transaction.
func (s *progressService) SubmitQuizResult(ctx context.Context, userID, topicID string, dayID, score int) (*models.QuizSubmissionResult, error) {
	if score < 0 || score > models.MaxScore {
		return nil, validationError("score must be between 0 and %d", models.MaxScore)
	}
	if !models.IsValidDay(dayID) {
		return nil, validationError("day must be between %d and %d", models.FirstDay, models.MaxDay)
	}
	if _, ok := s.catalog.Topic(topicID); !ok {
		return nil, ErrUnknownTopic
	}

	now := s.now()
	var (
		passed        bool
		advanced      bool
		finishedTopic bool
	)
	account, err := s.repo.Transact(ctx, userID, func(account *models.UserAccount) (models.FieldUpdates, error) {
		progress, started := account.Topic(topicID)
		if !started {
			return nil, ErrTopicNotStarted
		}

		prefix := topicPath(topicID) + "."
		fields := models.FieldUpdates{
			fmt.Sprintf("%squizScores.%d", prefix, dayID): score,
		}

		passed = score >= models.PassThreshold
		advanced = false
		finishedTopic = false
		if passed && progress.IsReachable(dayID) {
			if !progress.IsCompleted(dayID) {
				fields[prefix+"completedDays"] = models.ArrayUnionOf(dayID)
				finishedTopic = len(progress.CompletedDays)+1 == models.MaxDay
			}
			if dayID == progress.CurrentDay && progress.CurrentDay < models.MaxDay {
				fields[prefix+"currentDay"] = progress.CurrentDay + 1
				advanced = true
			}
		}

		if !s.sameDay(account.LastActivityDate, now) {
			fields["streak"] = account.Streak + 1
			fields["lastActivityDate"] = now
		}

		return fields, nil
	})
	if err != nil {
		return nil, s.storeError("submit quiz result", err)
	}

	progress, _ := account.Topic(topicID)
	result := &models.QuizSubmissionResult{
		Passed:   passed,
		Advanced: advanced,
		Progress: progress.Clone(),
		Account:  account,
	}

	s.logger.Info("quiz result submitted",
		zap.String("user_id", userID),
		zap.String("topic_id", topicID),
		zap.Int("day_id", dayID),
		zap.Int("score", score),
		zap.Bool("passed", passed),
		zap.Bool("advanced", advanced),
	)

	if finishedTopic && s.notifier != nil {
		if err := s.notifier.EnqueueCertificateEmail(ctx, userID, topicID); err != nil {
			s.logger.Warn("failed to enqueue certificate email",
				zap.String("user_id", userID),
				zap.String("topic_id", topicID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// GetTopicProgress returns the progress of a started topic
func (s *progressService) GetTopicProgress(ctx context.Context, userID, topicID string) (*models.TopicProgress, error) {
	if _, ok := s.catalog.Topic(topicID); !ok {
		return nil, ErrUnknownTopic
	}

	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, s.storeError("get topic progress", err)
	}

	progress, ok := account.Topic(topicID)
	if !ok {
		return nil, ErrTopicNotStarted
	}
	progress = progress.Clone()
	return &progress, nil
}

// sameDay reports whether both instants fall on the same calendar day of the streak time zone
func (s *progressService) sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.In(s.location).Date()
	by, bm, bd := b.In(s.location).Date()
	return ay == by && am == bm && ad == bd
}

// storeError maps a repository error to a service error.
// Validation errors raised inside transactions pass through unchanged.
func (s *progressService) storeError(op string, err error) error {
	return mapStoreError(s.logger, op, err)
}

func mapStoreError(logger *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return err
	case errors.Is(err, repositories.ErrDocumentNotFound):
		return ErrUserNotFound
	default:
		logger.Error("store operation failed", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("%w: failed to %s: %v", ErrStorageUnavailable, op, err)
	}
}

func topicPath(topicID string) string {
	return "topics." + topicID
}
