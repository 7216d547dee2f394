package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

const (
	// Generation attempts happen inside GetLesson; the queue retries only storage failures
	lessonMaxRetry      = 1
	certificateMaxRetry = 5
	lessonTaskTimeout   = 3 * time.Minute
)

// TaskClient is the interface that wraps queueing of asynq tasks. *asynq.Client implements it.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer queues background jobs
type Enqueuer struct {
	client TaskClient
	logger *zap.Logger
	now    func() time.Time
}

// NewEnqueuer creates a new enqueuer
func NewEnqueuer(client TaskClient, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// EnqueueLessonGeneration queues the generation of a lesson to run after "delay".
//
// Non-forced generations of the same lesson are queued at most once per UTC day, so repeated
// warm-up sweeps do not pile up while a task that ended in the archive is retried the next day.
func (e *Enqueuer) EnqueueLessonGeneration(ctx context.Context, topicID string, dayID int, force bool, delay time.Duration) error {
	task, err := NewLessonGenerateTask(topicID, dayID, force)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(QueueLessons),
		asynq.MaxRetry(lessonMaxRetry),
		asynq.Timeout(lessonTaskTimeout),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if !force {
		opts = append(opts, asynq.TaskID(lessonTaskID(topicID, dayID, e.now())))
	}

	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		e.logger.Debug("lesson generation already queued", zap.String("topic_id", topicID), zap.Int("day_id", dayID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue lesson generation: %w", err)
	}

	e.logger.Debug("lesson generation queued",
		zap.String("task_id", info.ID), zap.String("topic_id", topicID), zap.Int("day_id", dayID), zap.Bool("force", force))
	return nil
}

func lessonTaskID(topicID string, dayID int, at time.Time) string {
	return "lesson:" + models.LessonKey(topicID, dayID) + ":" + at.UTC().Format("2006-01-02")
}

// EnqueueCertificateEmail queues the certificate e-mail of a finished topic.
//
// The e-mail is queued at most once per user and topic.
func (e *Enqueuer) EnqueueCertificateEmail(ctx context.Context, userID, topicID string) error {
	task, err := NewCertificateEmailTask(userID, topicID)
	if err != nil {
		return err
	}

	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(certificateMaxRetry),
		asynq.TaskID("certificate:"+userID+":"+topicID),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue certificate email: %w", err)
	}

	e.logger.Info("certificate email queued", zap.String("user_id", userID), zap.String("topic_id", topicID))
	return nil
}
