// Package tasks defines the background jobs run by the worker and the client used to queue them
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/safetyspeak/backend/internal/models"
)

const (
	// TypeLessonGenerate generates and stores one lesson
	TypeLessonGenerate = "lesson:generate"
	// TypeCertificateEmail mails the certificate summary after a topic is finished
	TypeCertificateEmail = "certificate:email"
)

const (
	// QueueLessons holds lesson generation jobs
	QueueLessons = "lessons"
	// QueueDefault holds every other job
	QueueDefault = "default"
)

// LessonGeneratePayload is the payload of a TypeLessonGenerate task
type LessonGeneratePayload struct {
	TopicID string `json:"topicId"`
	DayID   int    `json:"dayId"`
	Force   bool   `json:"force"`
}

// CertificateEmailPayload is the payload of a TypeCertificateEmail task
type CertificateEmailPayload struct {
	UserID  string `json:"userId"`
	TopicID string `json:"topicId"`
}

// NewLessonGenerateTask builds a lesson generation task
func NewLessonGenerateTask(topicID string, dayID int, force bool) (*asynq.Task, error) {
	if topicID == "" || !models.IsValidDay(dayID) {
		return nil, fmt.Errorf("invalid lesson %q day %d", topicID, dayID)
	}
	payload, err := json.Marshal(LessonGeneratePayload{TopicID: topicID, DayID: dayID, Force: force})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeLessonGenerate, payload), nil
}

// ParseLessonGeneratePayload decodes the payload of a lesson generation task
func ParseLessonGeneratePayload(t *asynq.Task) (LessonGeneratePayload, error) {
	var p LessonGeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to parse lesson payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.TopicID == "" || !models.IsValidDay(p.DayID) {
		return p, fmt.Errorf("invalid lesson payload %q day %d: %w", p.TopicID, p.DayID, asynq.SkipRetry)
	}
	return p, nil
}

// NewCertificateEmailTask builds a certificate e-mail task
func NewCertificateEmailTask(userID, topicID string) (*asynq.Task, error) {
	if userID == "" || topicID == "" {
		return nil, fmt.Errorf("user and topic are required")
	}
	payload, err := json.Marshal(CertificateEmailPayload{UserID: userID, TopicID: topicID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeCertificateEmail, payload), nil
}

// ParseCertificateEmailPayload decodes the payload of a certificate e-mail task
func ParseCertificateEmailPayload(t *asynq.Task) (CertificateEmailPayload, error) {
	var p CertificateEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to parse certificate payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.UserID == "" || p.TopicID == "" {
		return p, fmt.Errorf("invalid certificate payload: %w", asynq.SkipRetry)
	}
	return p, nil
}
