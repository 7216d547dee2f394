package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// CheckpointInterval is the distance between checkpoint days
	CheckpointInterval = 5
	// RegularQuizLength is the number of quiz questions on a regular day
	RegularQuizLength = 5
	// CheckpointQuizLength is the number of quiz questions on a checkpoint day
	CheckpointQuizLength = 10
	// OptionsPerQuestion is the number of answer options of every quiz question
	OptionsPerQuestion = 4
)

// RiskLevel represents how dangerous a lesson scenario is
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// IsValid reports whether the risk level is one of the known levels
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// ParseRiskLevel parses a risk level case-insensitively
func ParseRiskLevel(s string) (RiskLevel, bool) {
	for _, level := range []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical} {
		if strings.EqualFold(strings.TrimSpace(s), string(level)) {
			return level, true
		}
	}
	return "", false
}

// LessonSource tells where lesson content came from
type LessonSource string

const (
	LessonSourceGenerated LessonSource = "generated"
	LessonSourceFallback  LessonSource = "fallback"
)

// Vocabulary represents a vocabulary entry of a lesson
type Vocabulary struct {
	Term          string `json:"term"`
	Meaning       string `json:"meaning"`
	Example       string `json:"example"`
	Pronunciation string `json:"pronunciation,omitempty"`
	Translation   string `json:"translation,omitempty"`
}

// DialogueLine represents a single line of a lesson dialogue
type DialogueLine struct {
	Speaker     string `json:"speaker"`
	Role        string `json:"role"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Scenario represents the workplace situation of a lesson
type Scenario struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	Translation      string    `json:"translation,omitempty"`
	TitleTranslation string    `json:"titleTranslation,omitempty"`
}

// QuizQuestion represents a multiple choice question
type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// DayRange represents an inclusive range of days
type DayRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// LessonContent represents the generated part of a lesson
type LessonContent struct {
	Vocabulary []Vocabulary   `json:"vocabulary"`
	Dialogue   []DialogueLine `json:"dialogue"`
	Scenario   Scenario       `json:"scenario"`
	Quiz       []QuizQuestion `json:"quiz"`
}

// Lesson represents the content of one day of a topic track
type Lesson struct {
	DayID        int            `json:"dayId"`
	TopicID      string         `json:"topicId"`
	Title        string         `json:"title"`
	IsCheckpoint bool           `json:"isCheckpoint"`
	ReviewRange  *DayRange      `json:"reviewRange,omitempty"`
	Vocabulary   []Vocabulary   `json:"vocabulary"`
	Dialogue     []DialogueLine `json:"dialogue"`
	Scenario     Scenario       `json:"scenario"`
	Quiz         []QuizQuestion `json:"quiz"`
	Source       LessonSource   `json:"source"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// GenerationRequest describes a lesson the content generator has to produce
type GenerationRequest struct {
	TopicID          string
	TopicName        string
	TopicDescription string
	DayID            int
	DayTitle         string
	IsCheckpoint     bool
	ReviewRange      *DayRange
	ReviewTitles     []string
	QuestionCount    int
	// AvoidDuplicatePrompts asks the generator to make every quiz prompt unique
	AvoidDuplicatePrompts bool
}

// LessonKey returns the storage key of a lesson
func LessonKey(topicID string, dayID int) string {
	return fmt.Sprintf("%s_day_%d", topicID, dayID)
}

// LessonKeyPrefix returns the storage key prefix shared by all lessons of a topic
func LessonKeyPrefix(topicID string) string {
	return topicID + "_day_"
}

// IsValidDay reports whether the day is inside a topic track
func IsValidDay(day int) bool {
	return day >= FirstDay && day <= MaxDay
}

// IsCheckpointDay reports whether the day carries a checkpoint test
func IsCheckpointDay(day int) bool {
	return day%CheckpointInterval == 0
}

// QuizLength returns the expected number of quiz questions for the day
func QuizLength(day int) int {
	if IsCheckpointDay(day) {
		return CheckpointQuizLength
	}
	return RegularQuizLength
}

// ReviewRangeFor returns the days a checkpoint reviews, nil for regular days
func ReviewRangeFor(day int) *DayRange {
	if !IsCheckpointDay(day) {
		return nil
	}
	return &DayRange{From: day - CheckpointInterval + 1, To: day - 1}
}
