package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/safetyspeak/backend/internal/models"
)

const lessonCacheKeyPrefix = "lesson:"

type lessonCacheRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewLessonCacheRepository creates a Redis read-through cache for lessons.
//
// Entries expire after "ttl". The durable copy of a lesson is kept by the lesson repository.
func NewLessonCacheRepository(client redis.Cmdable, ttl time.Duration) *lessonCacheRepository {
	return &lessonCacheRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached lesson, or (nil, nil) if not found
func (r *lessonCacheRepository) Get(ctx context.Context, topicID string, dayID int) (*models.Lesson, error) {
	data, err := r.client.Get(ctx, lessonCacheKey(topicID, dayID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached lesson: %w", err)
	}

	var lesson models.Lesson
	if err := json.Unmarshal([]byte(data), &lesson); err != nil {
		return nil, fmt.Errorf("failed to decode cached lesson: %w", err)
	}
	return &lesson, nil
}

// Save stores the lesson in the cache
func (r *lessonCacheRepository) Save(ctx context.Context, lesson *models.Lesson) error {
	data, err := json.Marshal(lesson)
	if err != nil {
		return fmt.Errorf("failed to encode lesson: %w", err)
	}
	if err := r.client.Set(ctx, lessonCacheKey(lesson.TopicID, lesson.DayID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache lesson: %w", err)
	}
	return nil
}

// DeleteByTopic evicts every day of a topic from the cache
func (r *lessonCacheRepository) DeleteByTopic(ctx context.Context, topicID string) (int64, error) {
	keys := make([]string, 0, models.MaxDay)
	for day := models.FirstDay; day <= models.MaxDay; day++ {
		keys = append(keys, lessonCacheKey(topicID, day))
	}
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to evict cached lessons: %w", err)
	}
	return deleted, nil
}

func lessonCacheKey(topicID string, dayID int) string {
	return lessonCacheKeyPrefix + models.LessonKey(topicID, dayID)
}
