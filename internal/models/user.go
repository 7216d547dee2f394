package models

import (
	"slices"
	"time"
)

const (
	// FirstDay is the day every topic track starts on
	FirstDay = 1
	// MaxDay is the last day of a topic track
	MaxDay = 60
	// PassThreshold is the minimal quiz score (in percent) that completes a day
	PassThreshold = 80
	// MaxScore is the highest quiz score in percent
	MaxScore = 100
)

// TopicProgress represents a user's progress in a single 60-day topic track
type TopicProgress struct {
	CurrentDay    int         `json:"currentDay"`
	CompletedDays []int       `json:"completedDays"`
	QuizScores    map[int]int `json:"quizScores"`
}

// NewTopicProgress returns the progress of a freshly started topic
func NewTopicProgress() TopicProgress {
	return TopicProgress{
		CurrentDay:    FirstDay,
		CompletedDays: []int{},
		QuizScores:    map[int]int{},
	}
}

// IsCompleted reports whether the day was passed
func (p TopicProgress) IsCompleted(day int) bool {
	return slices.Contains(p.CompletedDays, day)
}

// IsReachable reports whether the day is unlocked for the user
func (p TopicProgress) IsReachable(day int) bool {
	return day >= FirstDay && day <= p.CurrentDay
}

// IsFinished reports whether every day of the track was passed
func (p TopicProgress) IsFinished() bool {
	return len(p.CompletedDays) >= MaxDay
}

// Clone returns a deep copy of the progress
func (p TopicProgress) Clone() TopicProgress {
	out := TopicProgress{
		CurrentDay:    p.CurrentDay,
		CompletedDays: slices.Clone(p.CompletedDays),
		QuizScores:    make(map[int]int, len(p.QuizScores)),
	}
	if out.CompletedDays == nil {
		out.CompletedDays = []int{}
	}
	for day, score := range p.QuizScores {
		out.QuizScores[day] = score
	}
	return out
}

// UserAccount represents a learner's account document
type UserAccount struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Email            string                   `json:"email"`
	JobTitle         string                   `json:"jobTitle,omitempty"`
	Company          string                   `json:"company,omitempty"`
	PhotoURL         string                   `json:"photoURL,omitempty"`
	Streak           int                      `json:"streak"`
	LastActivityDate time.Time                `json:"lastActivityDate"`
	Topics           map[string]TopicProgress `json:"topics"`
	CreatedAt        time.Time                `json:"createdAt"`
}

// Topic returns the progress for a topic and whether the topic was started
func (u *UserAccount) Topic(topicID string) (TopicProgress, bool) {
	if u == nil || u.Topics == nil {
		return TopicProgress{}, false
	}
	progress, ok := u.Topics[topicID]
	return progress, ok
}

// Identity represents the authenticated user as reported by the identity provider
type Identity struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// UpdateProfileRequest represents a request to update profile fields (partial update)
type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	JobTitle *string `json:"jobTitle,omitempty"`
	Company  *string `json:"company,omitempty"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

// SubmitQuizRequest represents a quiz result submission
type SubmitQuizRequest struct {
	Score *int `json:"score"`
}

// QuizSubmissionResult represents the outcome of a quiz submission
type QuizSubmissionResult struct {
	Passed   bool          `json:"passed"`
	Advanced bool          `json:"advanced"`
	Progress TopicProgress `json:"progress"`
	Account  *UserAccount  `json:"account"`
}
