package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/hibiken/asynq"
	"github.com/safetyspeak/backend/internal/models"
	"github.com/safetyspeak/backend/internal/repositories"
	"github.com/safetyspeak/backend/internal/services"
	"github.com/safetyspeak/backend/internal/tasks"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// LessonGenerator defines the interface for lesson generation
type LessonGenerator interface {
	// GetLesson returns the lesson of a topic day, generating and storing it on a miss or when forced
	//
	// A lesson with the fallback source means generation failed and nothing was stored.
	GetLesson(ctx context.Context, topicID string, dayID int, forceRegenerate bool) (*models.Lesson, error)
}

// AccountRepository defines the interface for user account access
type AccountRepository interface {
	// GetByID retrieves a user account by its ID
	//
	// If the account does not exist repositories.ErrDocumentNotFound is returned.
	GetByID(ctx context.Context, id string) (*models.UserAccount, error)
}

// TopicCatalog defines the interface for the topic catalog
type TopicCatalog interface {
	// Topics returns all topics in catalog order
	Topics() []models.Topic
}

// SMTPConfig holds the settings of the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Worker handles task processing
type Worker struct {
	logger   *zap.Logger
	lessons  LessonGenerator
	accounts AccountRepository
	catalog  TopicCatalog
	smtp     SMTPConfig
	send     func(to, subject, body string) error
}

// NewWorker creates a new worker instance
func NewWorker(logger *zap.Logger, lessons LessonGenerator, accounts AccountRepository, catalog TopicCatalog, smtp SMTPConfig) *Worker {
	w := &Worker{
		logger:   logger,
		lessons:  lessons,
		accounts: accounts,
		catalog:  catalog,
		smtp:     smtp,
	}
	w.send = w.sendEmail
	return w
}

// HandleLessonGenerate handles lesson generation tasks
func (w *Worker) HandleLessonGenerate(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseLessonGeneratePayload(t)
	if err != nil {
		return err
	}

	lesson, err := w.lessons.GetLesson(ctx, payload.TopicID, payload.DayID, payload.Force)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	// GetLesson already spent its attempts; the next warm-up sweep tries again
	if lesson.Source == models.LessonSourceFallback {
		return fmt.Errorf("lesson %s was not generated: %w", models.LessonKey(payload.TopicID, payload.DayID), asynq.SkipRetry)
	}

	w.logger.Info("Lesson generated",
		zap.String("topic_id", payload.TopicID), zap.Int("day_id", payload.DayID), zap.Bool("force", payload.Force))
	return nil
}

// HandleCertificateEmail handles certificate e-mail tasks
func (w *Worker) HandleCertificateEmail(ctx context.Context, t *asynq.Task) error {
	payload, err := tasks.ParseCertificateEmailPayload(t)
	if err != nil {
		return err
	}

	account, err := w.accounts.GetByID(ctx, payload.UserID)
	if errors.Is(err, repositories.ErrDocumentNotFound) {
		// The account was removed after the task was queued
		w.logger.Warn("Certificate account not found", zap.String("user_id", payload.UserID))
		return nil
	}
	if err != nil {
		return err
	}

	if account.Email == "" {
		w.logger.Warn("Certificate account has no e-mail", zap.String("user_id", payload.UserID))
		return nil
	}

	summary := services.BuildCertificateSummary(account, w.catalog.Topics())
	var topic *models.TopicCertificateStat
	for i := range summary.Topics {
		if summary.Topics[i].TopicID == payload.TopicID {
			topic = &summary.Topics[i]
			break
		}
	}
	if topic == nil || !topic.IsComplete {
		return fmt.Errorf("topic %q is not complete for user %s: %w", payload.TopicID, payload.UserID, asynq.SkipRetry)
	}

	subject, body, err := renderCertificateEmail(summary, *topic)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.send(account.Email, subject, body); err != nil {
		return err
	}

	w.logger.Info("Certificate e-mail sent", zap.String("user_id", payload.UserID), zap.String("topic_id", payload.TopicID))
	return nil
}

var certificateTemplate = template.Must(template.New("certificate").Parse(`<h2>Congratulations, {{.Summary.Name}}!</h2>
<p>You have completed all 60 days of <strong>{{.Topic.Name}}</strong> with an average quiz score of {{.Topic.AverageScore}}%.</p>
{{if .Summary.Company}}<p>{{if .Summary.JobTitle}}{{.Summary.JobTitle}}, {{end}}{{.Summary.Company}}</p>{{end}}
<p>Overall progress: {{.Summary.CompletedTopics}} of {{.Summary.TotalTopics}} topics, {{.Summary.OverallPercent}}% of all lessons.</p>
<p>Stay safe on site!</p>`))

// renderCertificateEmail builds the subject and HTML body of a certificate e-mail
func renderCertificateEmail(summary *models.CertificateSummary, topic models.TopicCertificateStat) (string, string, error) {
	var buf bytes.Buffer
	err := certificateTemplate.Execute(&buf, struct {
		Summary *models.CertificateSummary
		Topic   models.TopicCertificateStat
	}{summary, topic})
	if err != nil {
		return "", "", fmt.Errorf("failed to render certificate e-mail: %w", err)
	}
	return fmt.Sprintf("SafetySpeak certificate: %s", topic.Name), buf.String(), nil
}

// sendEmail sends an email using gopkg.in/mail.v2
func (w *Worker) sendEmail(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", w.smtp.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := mail.NewDialer(w.smtp.Host, w.smtp.Port, w.smtp.Username, w.smtp.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
