package curriculum

import (
	"fmt"
	"strings"
	"time"

	"github.com/safetyspeak/backend/internal/models"
)

const imageBaseURL = "https://raw.githubusercontent.com/thanhlv87/pic/refs/heads/main/"

// LessonImageURL returns the scenario image of a day
func LessonImageURL(day int) string {
	if models.IsCheckpointDay(day) {
		return fmt.Sprintf("%scheckpoint%d.jpg", imageBaseURL, day/models.CheckpointInterval)
	}
	return fmt.Sprintf("%ssafety-day%d.jpg", imageBaseURL, day)
}

// FallbackLesson builds the local lesson served when generation is not possible.
//
// Apart from GeneratedAt the content only depends on the topic and the day.
func (c *Catalog) FallbackLesson(topicID string, day int, now time.Time) *models.Lesson {
	title := c.DayTitle(topicID, day)
	firstWord := title
	if words := strings.Fields(title); len(words) > 0 {
		firstWord = strings.TrimSuffix(words[0], ":")
	}

	return &models.Lesson{
		DayID:        day,
		TopicID:      topicID,
		Title:        title,
		IsCheckpoint: models.IsCheckpointDay(day),
		ReviewRange:  models.ReviewRangeFor(day),
		Vocabulary: []models.Vocabulary{
			{Term: "Safety", Meaning: "Being safe; not dangerous", Example: "Safety is our priority.", Pronunciation: "/ˈseɪf.ti/"},
			{Term: firstWord, Meaning: fmt.Sprintf("Related to %s", title), Example: fmt.Sprintf("Learn about %s.", title)},
		},
		Dialogue: []models.DialogueLine{
			{Speaker: "Tom", Role: "Worker", Text: fmt.Sprintf("Tell me about %s.", title)},
			{Speaker: "Sam", Role: "Safety Officer", Text: "It's very important for safety."},
		},
		Scenario: models.Scenario{
			Title:       fmt.Sprintf("%s Scenario", title),
			Description: fmt.Sprintf("A situation involving %s.", title),
			RiskLevel:   models.RiskLevelHigh,
			ImageURL:    LessonImageURL(day),
		},
		Quiz: []models.QuizQuestion{
			{
				ID:            0,
				Question:      fmt.Sprintf("What is important about %s?", title),
				Options:       []string{"Safety comes first", "Speed is priority", "Cost matters most", "No rules needed"},
				CorrectAnswer: 0,
			},
		},
		Source:      models.LessonSourceFallback,
		GeneratedAt: now.UTC(),
	}
}
