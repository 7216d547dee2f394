package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safetyspeak/backend/internal/curriculum"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxGenerationAttempts bounds generator calls per lesson: the first attempt plus one retry
const maxGenerationAttempts = 2

// LessonStore is the interface that wraps methods for lesson data access
type LessonStore interface {
	// Method Get retrieves a stored lesson.
	//
	// "ctx" is the context of the request.
	// Returns (nil, nil) if the lesson was never stored.
	Get(ctx context.Context, topicID string, dayID int) (*models.Lesson, error)
	// Method Save stores a lesson, replacing any previous version.
	Save(ctx context.Context, lesson *models.Lesson) error
	// Method DeleteByTopic removes every stored lesson of a topic.
	//
	// Returns the number of removed lessons and an error if any.
	DeleteByTopic(ctx context.Context, topicID string) (int64, error)
}

// ContentGenerator is the interface that wraps the LLM lesson generator
type ContentGenerator interface {
	// Method Generate asks the model for the content of one lesson.
	//
	// The returned content is not validated.
	Generate(ctx context.Context, req models.GenerationRequest) (*models.LessonContent, error)
}

// LessonCatalog is the interface that wraps the curriculum data needed to build lessons
type LessonCatalog interface {
	// Method Topic returns a topic by its ID and whether it exists.
	Topic(id string) (models.Topic, bool)
	// Method GenerationRequest builds the generator input for a lesson.
	GenerationRequest(topicID string, day int) models.GenerationRequest
	// Method FallbackLesson builds the local lesson served when generation is not possible.
	FallbackLesson(topicID string, day int, now time.Time) *models.Lesson
}

type lessonService struct {
	store     LessonStore
	cache     LessonStore
	generator ContentGenerator
	catalog   LessonCatalog
	timeout   time.Duration
	logger    *zap.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewLessonService creates a new lesson service.
//
// "store" is the durable lesson storage and "cache" an optional hot cache in front of it (may be nil).
// "timeout" bounds every single generator call.
func NewLessonService(store LessonStore, cache LessonStore, generator ContentGenerator, catalog LessonCatalog, timeout time.Duration, logger *zap.Logger) *lessonService {
	return &lessonService{
		store:     store,
		cache:     cache,
		generator: generator,
		catalog:   catalog,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}
}

// GetLesson returns the lesson of a topic day, generating and storing it on a miss.
//
// When "forceRegenerate" is set the stored lesson is ignored and overwritten.
// Only validation errors are returned: generation or storage failures produce the fallback lesson.
// The returned lesson may be shared with concurrent callers and must not be modified.
func (s *lessonService) GetLesson(ctx context.Context, topicID string, dayID int, forceRegenerate bool) (*models.Lesson, error) {
	if !models.IsValidDay(dayID) {
		return nil, validationError("day must be between %d and %d", models.FirstDay, models.MaxDay)
	}
	if _, ok := s.catalog.Topic(topicID); !ok {
		return nil, ErrUnknownTopic
	}

	if !forceRegenerate {
		if s.cache != nil {
			lesson, err := s.cache.Get(ctx, topicID, dayID)
			if err != nil {
				s.logger.Warn("failed to read lesson cache", zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Error(err))
			} else if lesson != nil {
				return lesson, nil
			}
		}

		lesson, err := s.store.Get(ctx, topicID, dayID)
		if err != nil {
			s.logger.Error("failed to read lesson store, serving fallback lesson",
				zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Error(err))
			return s.catalog.FallbackLesson(topicID, dayID, s.now()), nil
		}
		if lesson != nil {
			s.saveToCache(ctx, lesson)
			return lesson, nil
		}
	}

	return s.generateShared(ctx, topicID, dayID), nil
}

// IsStored reports whether a lesson is in the durable store
func (s *lessonService) IsStored(ctx context.Context, topicID string, dayID int) (bool, error) {
	lesson, err := s.store.Get(ctx, topicID, dayID)
	if err != nil {
		return false, fmt.Errorf("%w: failed to get lesson: %v", ErrStorageUnavailable, err)
	}
	return lesson != nil, nil
}

// DeleteTopicLessons removes every stored lesson of a topic from the store and the cache
func (s *lessonService) DeleteTopicLessons(ctx context.Context, topicID string) (int64, error) {
	if _, ok := s.catalog.Topic(topicID); !ok {
		return 0, ErrUnknownTopic
	}

	deleted, err := s.store.DeleteByTopic(ctx, topicID)
	if err != nil {
		s.logger.Error("failed to delete lessons", zap.String("topic_id", topicID), zap.Error(err))
		return 0, fmt.Errorf("%w: failed to delete lessons: %v", ErrStorageUnavailable, err)
	}
	if s.cache != nil {
		if _, err := s.cache.DeleteByTopic(ctx, topicID); err != nil {
			s.logger.Warn("failed to evict cached lessons", zap.String("topic_id", topicID), zap.Error(err))
		}
	}

	s.logger.Info("lessons deleted", zap.String("topic_id", topicID), zap.Int64("count", deleted))
	return deleted, nil
}

// generateShared runs one generation per lesson key no matter how many callers miss at once.
//
// The generation is detached from the caller: a caller that gives up receives the fallback lesson
// while the generation completes and is stored for later requests.
func (s *lessonService) generateShared(ctx context.Context, topicID string, dayID int) *models.Lesson {
	key := models.LessonKey(topicID, dayID)
	detached := context.WithoutCancel(ctx)

	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.generateAndStore(detached, topicID, dayID), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*models.Lesson)
	case <-ctx.Done():
		s.logger.Warn("caller gave up waiting for lesson generation",
			zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Error(ctx.Err()))
		return s.catalog.FallbackLesson(topicID, dayID, s.now())
	}
}

func (s *lessonService) generateAndStore(ctx context.Context, topicID string, dayID int) *models.Lesson {
	req := s.catalog.GenerationRequest(topicID, dayID)

	content, err := s.generateWithRetry(ctx, req)
	if err != nil {
		s.logger.Error("lesson generation failed, serving fallback lesson",
			zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Error(err))
		return s.catalog.FallbackLesson(topicID, dayID, s.now())
	}

	lesson := &models.Lesson{
		DayID:        dayID,
		TopicID:      topicID,
		Title:        req.DayTitle,
		IsCheckpoint: req.IsCheckpoint,
		ReviewRange:  req.ReviewRange,
		Vocabulary:   content.Vocabulary,
		Dialogue:     content.Dialogue,
		Scenario:     content.Scenario,
		Quiz:         content.Quiz,
		Source:       models.LessonSourceGenerated,
		GeneratedAt:  s.now().UTC(),
	}
	if lesson.Scenario.ImageURL == "" {
		lesson.Scenario.ImageURL = curriculum.LessonImageURL(dayID)
	}

	if err := s.store.Save(ctx, lesson); err != nil {
		s.logger.Error("failed to store generated lesson",
			zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Error(err))
	}
	s.saveToCache(ctx, lesson)

	s.logger.Info("lesson generated",
		zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Int("questions", len(lesson.Quiz)))
	return lesson
}

// generateWithRetry calls the generator until it returns valid content or the attempts are used up.
//
// Content whose only defect is duplicated quiz prompts is kept and returned if no attempt does better.
func (s *lessonService) generateWithRetry(ctx context.Context, req models.GenerationRequest) (*models.LessonContent, error) {
	var (
		bestEffort *models.LessonContent
		lastErr    error
	)
	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		content, err := s.generateOnce(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if errors.Is(err, ErrDuplicateQuestions) {
			bestEffort = content
			req.AvoidDuplicatePrompts = true
		}
		s.logger.Warn("lesson generation attempt failed",
			zap.String("topic_id", req.TopicID), zap.Int("day_id", req.DayID),
			zap.Int("attempt", attempt), zap.Error(err))
	}

	if bestEffort != nil {
		return bestEffort, nil
	}
	return nil, lastErr
}

// generateOnce runs a single generator call under the per-attempt timeout and validates its output.
// On ErrDuplicateQuestions the otherwise valid content is returned along with the error.
func (s *lessonService) generateOnce(ctx context.Context, req models.GenerationRequest) (*models.LessonContent, error) {
	attemptCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.generator.Generate(attemptCtx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if content == nil {
		return nil, fmt.Errorf("%w: empty content", ErrGeneration)
	}

	if err := validateLessonContent(content, req.QuestionCount); err != nil {
		if errors.Is(err, ErrDuplicateQuestions) {
			return content, err
		}
		return nil, err
	}
	return content, nil
}

// validateLessonContent checks the generated content and normalizes it in place.
//
// Quiz IDs are reassigned by position and the risk level is canonicalized.
// Duplicate quiz prompts are reported last, so ErrDuplicateQuestions means the content is otherwise valid.
func validateLessonContent(content *models.LessonContent, questionCount int) error {
	if len(content.Vocabulary) == 0 {
		return fmt.Errorf("%w: no vocabulary", ErrGeneration)
	}
	for i, v := range content.Vocabulary {
		if strings.TrimSpace(v.Term) == "" {
			return fmt.Errorf("%w: vocabulary %d has no term", ErrGeneration, i)
		}
	}
	if len(content.Dialogue) == 0 {
		return fmt.Errorf("%w: no dialogue", ErrGeneration)
	}
	for i, line := range content.Dialogue {
		if strings.TrimSpace(line.Text) == "" {
			return fmt.Errorf("%w: dialogue line %d has no text", ErrGeneration, i)
		}
	}
	if strings.TrimSpace(content.Scenario.Title) == "" {
		return fmt.Errorf("%w: scenario has no title", ErrGeneration)
	}
	level, ok := models.ParseRiskLevel(string(content.Scenario.RiskLevel))
	if !ok {
		return fmt.Errorf("%w: invalid risk level %q", ErrGeneration, content.Scenario.RiskLevel)
	}
	content.Scenario.RiskLevel = level

	if len(content.Quiz) != questionCount {
		return fmt.Errorf("%w: expected %d quiz questions, got %d", ErrGeneration, questionCount, len(content.Quiz))
	}
	seen := make(map[string]struct{}, len(content.Quiz))
	duplicated := false
	for i := range content.Quiz {
		q := &content.Quiz[i]
		q.ID = i
		prompt := strings.ToLower(strings.TrimSpace(q.Question))
		if prompt == "" {
			return fmt.Errorf("%w: question %d has no prompt", ErrGeneration, i)
		}
		if len(q.Options) != models.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d has %d options", ErrGeneration, i, len(q.Options))
		}
		for j, option := range q.Options {
			if strings.TrimSpace(option) == "" {
				return fmt.Errorf("%w: question %d option %d is empty", ErrGeneration, i, j)
			}
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= models.OptionsPerQuestion {
			return fmt.Errorf("%w: question %d has correct answer %d", ErrGeneration, i, q.CorrectAnswer)
		}
		if _, ok := seen[prompt]; ok {
			duplicated = true
		}
		seen[prompt] = struct{}{}
	}
	if duplicated {
		return ErrDuplicateQuestions
	}
	return nil
}

func (s *lessonService) saveToCache(ctx context.Context, lesson *models.Lesson) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, lesson); err != nil {
		s.logger.Warn("failed to cache lesson",
			zap.String("topic_id", lesson.TopicID), zap.Int("day_id", lesson.DayID), zap.Error(err))
	}
}
