package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safetyspeak/backend/internal/models"
)

// LessonsCollection is the collection that keeps generated lesson documents
const LessonsCollection = "lessons"

type lessonRepository struct {
	store DocumentStore
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(store DocumentStore) *lessonRepository {
	return &lessonRepository{
		store: store,
	}
}

// Get retrieves a stored lesson, or (nil, nil) if the lesson was never stored
func (r *lessonRepository) Get(ctx context.Context, topicID string, dayID int) (*models.Lesson, error) {
	body, err := r.store.Get(ctx, LessonsCollection, models.LessonKey(topicID, dayID))
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lesson models.Lesson
	if err := json.Unmarshal(body, &lesson); err != nil {
		return nil, fmt.Errorf("failed to decode lesson: %w", err)
	}
	return &lesson, nil
}

// Save stores a lesson, replacing any previous version
func (r *lessonRepository) Save(ctx context.Context, lesson *models.Lesson) error {
	body, err := json.Marshal(lesson)
	if err != nil {
		return fmt.Errorf("failed to encode lesson: %w", err)
	}
	return r.store.Set(ctx, LessonsCollection, models.LessonKey(lesson.TopicID, lesson.DayID), body)
}

// DeleteByTopic removes every stored lesson of a topic and returns the number of removed lessons
func (r *lessonRepository) DeleteByTopic(ctx context.Context, topicID string) (int64, error) {
	return r.store.DeleteByPrefix(ctx, LessonsCollection, models.LessonKeyPrefix(topicID))
}
