package services

import (
	"context"
	"fmt"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// LessonProvider is the interface that wraps the lesson cache operations used by admin tools
type LessonProvider interface {
	// Method GetLesson returns the lesson of a topic day, generating it on a miss or when forced.
	GetLesson(ctx context.Context, topicID string, dayID int, forceRegenerate bool) (*models.Lesson, error)
	// Method IsStored reports whether a lesson is in the durable store.
	IsStored(ctx context.Context, topicID string, dayID int) (bool, error)
	// Method DeleteTopicLessons removes every stored lesson of a topic.
	DeleteTopicLessons(ctx context.Context, topicID string) (int64, error)
}

// GenerationEnqueuer is the interface that wraps background lesson generation
type GenerationEnqueuer interface {
	// Method EnqueueLessonGeneration schedules the generation of a lesson after "delay".
	//
	// With "force" set the stored lesson is replaced.
	EnqueueLessonGeneration(ctx context.Context, topicID string, dayID int, force bool, delay time.Duration) error
}

type regenerationService struct {
	lessons  LessonProvider
	enqueuer GenerationEnqueuer
	catalog  TopicCatalog
	spacing  time.Duration
	logger   *zap.Logger
}

// NewRegenerationService creates a new service for admin lesson tools.
//
// "spacing" is the delay between two queued generations of the same batch.
func NewRegenerationService(lessons LessonProvider, enqueuer GenerationEnqueuer, catalog TopicCatalog, spacing time.Duration, logger *zap.Logger) *regenerationService {
	return &regenerationService{
		lessons:  lessons,
		enqueuer: enqueuer,
		catalog:  catalog,
		spacing:  spacing,
		logger:   logger,
	}
}

// RegenerateLesson regenerates one lesson synchronously and returns it.
//
// Returns ErrGeneration when only the fallback lesson could be produced.
func (s *regenerationService) RegenerateLesson(ctx context.Context, topicID string, dayID int) (*models.Lesson, error) {
	lesson, err := s.lessons.GetLesson(ctx, topicID, dayID, true)
	if err != nil {
		return nil, err
	}
	if lesson.Source == models.LessonSourceFallback {
		return nil, fmt.Errorf("%w: %s day %d", ErrGeneration, topicID, dayID)
	}
	return lesson, nil
}

// EnqueueTopicRegeneration queues the forced regeneration of every day of a topic.
//
// Returns the number of queued lessons and an error if any.
func (s *regenerationService) EnqueueTopicRegeneration(ctx context.Context, topicID string) (int, error) {
	if _, ok := s.catalog.Topic(topicID); !ok {
		return 0, ErrUnknownTopic
	}

	queued := 0
	for day := models.FirstDay; day <= models.MaxDay; day++ {
		delay := time.Duration(queued) * s.spacing
		if err := s.enqueuer.EnqueueLessonGeneration(ctx, topicID, day, true, delay); err != nil {
			s.logger.Error("failed to enqueue lesson regeneration",
				zap.String("topic_id", topicID), zap.Int("day_id", day), zap.Error(err))
			return queued, fmt.Errorf("failed to enqueue day %d: %w", day, err)
		}
		queued++
	}

	s.logger.Info("topic regeneration enqueued", zap.String("topic_id", topicID), zap.Int("count", queued))
	return queued, nil
}

// EnqueueWarmup queues the generation of every lesson that is not stored yet.
//
// Returns the number of queued lessons and an error if any.
func (s *regenerationService) EnqueueWarmup(ctx context.Context) (int, error) {
	queued := 0
	for _, topic := range s.catalog.Topics() {
		for day := models.FirstDay; day <= models.MaxDay; day++ {
			stored, err := s.lessons.IsStored(ctx, topic.ID, day)
			if err != nil {
				return queued, err
			}
			if stored {
				continue
			}

			delay := time.Duration(queued) * s.spacing
			if err := s.enqueuer.EnqueueLessonGeneration(ctx, topic.ID, day, false, delay); err != nil {
				s.logger.Error("failed to enqueue lesson warmup",
					zap.String("topic_id", topic.ID), zap.Int("day_id", day), zap.Error(err))
				return queued, fmt.Errorf("failed to enqueue %s day %d: %w", topic.ID, day, err)
			}
			queued++
		}
	}

	s.logger.Info("lesson warmup enqueued", zap.Int("count", queued))
	return queued, nil
}

// DeleteTopicLessons removes every stored lesson of a topic
func (s *regenerationService) DeleteTopicLessons(ctx context.Context, topicID string) (int64, error) {
	return s.lessons.DeleteTopicLessons(ctx, topicID)
}
