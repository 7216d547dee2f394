package services

import (
	"context"
	"math"

	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// AccountReader is the interface that wraps read access to user accounts
type AccountReader interface {
	// Method GetByID retrieves a user account by its ID.
	GetByID(ctx context.Context, id string) (*models.UserAccount, error)
}

type certificateService struct {
	repo    AccountReader
	catalog TopicCatalog
	logger  *zap.Logger
}

// NewCertificateService creates a new certificate service
func NewCertificateService(repo AccountReader, catalog TopicCatalog, logger *zap.Logger) *certificateService {
	return &certificateService{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
	}
}

// GetSummary computes the certificate statistics of a user.
//
// The user is eligible for a certificate once at least one topic has all days completed.
func (s *certificateService) GetSummary(ctx context.Context, userID string) (*models.CertificateSummary, error) {
	account, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(s.logger, "get account", err)
	}
	return BuildCertificateSummary(account, s.catalog.Topics()), nil
}

// BuildCertificateSummary computes certificate statistics of an account over the given topics
func BuildCertificateSummary(account *models.UserAccount, topics []models.Topic) *models.CertificateSummary {
	summary := &models.CertificateSummary{
		Name:        account.Name,
		JobTitle:    account.JobTitle,
		Company:     account.Company,
		Topics:      make([]models.TopicCertificateStat, 0, len(topics)),
		TotalTopics: len(topics),
	}

	var scoreSum, scoreCount int
	for _, topic := range topics {
		stat := models.TopicCertificateStat{TopicID: topic.ID, Name: topic.Name}
		if progress, ok := account.Topic(topic.ID); ok {
			stat.Completed = len(progress.CompletedDays)
			stat.Percent = percent(stat.Completed, models.MaxDay)
			stat.IsComplete = progress.IsFinished()

			var topicSum int
			for _, score := range progress.QuizScores {
				topicSum += score
			}
			if n := len(progress.QuizScores); n > 0 {
				stat.AverageScore = int(math.Round(float64(topicSum) / float64(n)))
			}
			scoreSum += topicSum
			scoreCount += len(progress.QuizScores)
		}

		summary.TotalCompletedDays += stat.Completed
		if stat.IsComplete {
			summary.CompletedTopics++
		}
		summary.Topics = append(summary.Topics, stat)
	}

	summary.OverallPercent = percent(summary.TotalCompletedDays, len(topics)*models.MaxDay)
	if scoreCount > 0 {
		summary.AverageScore = int(math.Round(float64(scoreSum) / float64(scoreCount)))
	}
	summary.Eligible = summary.CompletedTopics > 0

	return summary
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
