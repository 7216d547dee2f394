package curriculum

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	catalog := Default()

	topics := catalog.Topics()
	require.Len(t, topics, 6)
	assert.Equal(t, "general-safety", topics[0].ID)
	assert.Equal(t, "An toàn chung", topics[0].NameTranslation)
	assert.Len(t, topics[0].Days, models.MaxDay)
	assert.Len(t, catalog.Dictionary(), 10)

	for _, id := range []string{"general-safety", "chemicals", "electrical", "height-work", "equipment", "emergency"} {
		_, ok := catalog.Topic(id)
		assert.True(t, ok, id)
	}
	_, ok := catalog.Topic("cooking")
	assert.False(t, ok)
}

func TestCatalog_DayTitle(t *testing.T) {
	catalog := Default()

	tests := []struct {
		name     string
		topicID  string
		day      int
		expected string
	}{
		{name: "roadmap first day", topicID: "general-safety", day: 1, expected: "Safety First (Introduction)"},
		{name: "roadmap checkpoint", topicID: "general-safety", day: 5, expected: "CHECKPOINT TEST 1"},
		{name: "roadmap final exam", topicID: "general-safety", day: 60, expected: "FINAL CERTIFICATION EXAM"},
		{name: "roadmap day 41", topicID: "general-safety", day: 41, expected: "Lockout / Tagout (LOTO)"},
		{name: "numbered lesson", topicID: "electrical", day: 1, expected: "Electrical Safety: Lesson 1"},
		{name: "numbered lesson after checkpoint", topicID: "electrical", day: 6, expected: "Electrical Safety: Lesson 5"},
		{name: "numbered checkpoint", topicID: "electrical", day: 10, expected: "CHECKPOINT TEST 2"},
		{name: "numbered final exam", topicID: "electrical", day: 60, expected: "FINAL CERTIFICATION EXAM"},
		{name: "unknown topic", topicID: "cooking", day: 3, expected: "Day 3 Topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, catalog.DayTitle(tt.topicID, tt.day))
		})
	}
}

func TestCatalog_ReviewTitles(t *testing.T) {
	catalog := Default()

	assert.Nil(t, catalog.ReviewTitles("general-safety", 4))
	assert.Equal(t, []string{
		"Eye & Ear Protection",
		"Hand Protection (Gloves)",
		"Work Clothing (High-Vis)",
		"Tools: Hand Tools",
	}, catalog.ReviewTitles("general-safety", 10))
}

func TestCatalog_GenerationRequest(t *testing.T) {
	catalog := Default()

	regular := catalog.GenerationRequest("general-safety", 3)
	assert.Equal(t, "General Safety", regular.TopicName)
	assert.Equal(t, "Numbers & Quantities on Site", regular.DayTitle)
	assert.False(t, regular.IsCheckpoint)
	assert.Nil(t, regular.ReviewRange)
	assert.Equal(t, models.RegularQuizLength, regular.QuestionCount)

	checkpoint := catalog.GenerationRequest("general-safety", 15)
	assert.True(t, checkpoint.IsCheckpoint)
	assert.Equal(t, &models.DayRange{From: 11, To: 14}, checkpoint.ReviewRange)
	assert.Len(t, checkpoint.ReviewTitles, 4)
	assert.Equal(t, models.CheckpointQuizLength, checkpoint.QuestionCount)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "invalid yaml", data: "topics: ["},
		{name: "no topics", data: "dictionary: []"},
		{name: "missing id", data: "topics:\n  - name: Fire\n"},
		{name: "dotted id", data: "topics:\n  - id: fire.safety\n    name: Fire\n"},
		{name: "duplicate id", data: "topics:\n  - id: fire\n    name: Fire\n  - id: fire\n    name: Fire again\n"},
		{name: "partial roadmap", data: "topics:\n  - id: fire\n    name: Fire\n    days: [a, b]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := Parse([]byte(tt.data))

			assert.Error(t, err)
			assert.Nil(t, catalog)
		})
	}
}

func TestLoad(t *testing.T) {
	catalog, err := Load("")
	require.NoError(t, err)
	assert.Len(t, catalog.Topics(), 6)

	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	require.NoError(t, os.WriteFile(path, []byte("topics:\n  - id: fire\n    name: Fire Safety\n"), 0o600))

	catalog, err = Load(path)
	require.NoError(t, err)
	require.Len(t, catalog.Topics(), 1)
	assert.Equal(t, "Fire Safety: Lesson 2", catalog.DayTitle("fire", 2))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalog_FallbackLesson(t *testing.T) {
	catalog := Default()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.FixedZone("ICT", 7*3600))

	lesson := catalog.FallbackLesson("general-safety", 16, now)

	assert.Equal(t, 16, lesson.DayID)
	assert.Equal(t, "general-safety", lesson.TopicID)
	assert.Equal(t, "Fire: Basic Words", lesson.Title)
	assert.Equal(t, "Fire", lesson.Vocabulary[1].Term)
	assert.Equal(t, models.LessonSourceFallback, lesson.Source)
	assert.Equal(t, models.RiskLevelHigh, lesson.Scenario.RiskLevel)
	assert.Equal(t, "https://raw.githubusercontent.com/thanhlv87/pic/refs/heads/main/safety-day16.jpg", lesson.Scenario.ImageURL)
	require.Len(t, lesson.Quiz, 1)
	assert.Len(t, lesson.Quiz[0].Options, models.OptionsPerQuestion)
	assert.Equal(t, now.UTC(), lesson.GeneratedAt)

	again := catalog.FallbackLesson("general-safety", 16, now)
	assert.Equal(t, lesson, again)

	checkpoint := catalog.FallbackLesson("general-safety", 20, now)
	assert.True(t, checkpoint.IsCheckpoint)
	assert.Equal(t, &models.DayRange{From: 16, To: 19}, checkpoint.ReviewRange)
	assert.Equal(t, "https://raw.githubusercontent.com/thanhlv87/pic/refs/heads/main/checkpoint4.jpg", checkpoint.Scenario.ImageURL)
}
