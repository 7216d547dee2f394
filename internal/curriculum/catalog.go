// Package curriculum provides the topic catalog, the 60-day roadmap and the safety dictionary
package curriculum

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/safetyspeak/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var defaultCurriculum []byte

type catalogFile struct {
	Topics     []models.Topic          `yaml:"topics"`
	Dictionary []models.DictionaryTerm `yaml:"dictionary"`
}

// Catalog holds the curriculum. It is read-only after loading and safe for concurrent use.
type Catalog struct {
	topics     []models.Topic
	byID       map[string]int
	dictionary []models.DictionaryTerm
}

// Load reads the curriculum from a YAML file.
// An empty path loads the curriculum embedded into the binary.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCurriculum)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum file: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded curriculum
func Default() *Catalog {
	catalog, err := Parse(defaultCurriculum)
	if err != nil {
		panic(fmt.Sprintf("embedded curriculum is invalid: %v", err))
	}
	return catalog
}

// Parse decodes and validates a YAML curriculum
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode curriculum: %w", err)
	}
	if len(file.Topics) == 0 {
		return nil, fmt.Errorf("curriculum has no topics")
	}

	catalog := &Catalog{
		topics:     file.Topics,
		byID:       make(map[string]int, len(file.Topics)),
		dictionary: file.Dictionary,
	}
	for i, topic := range file.Topics {
		if topic.ID == "" || topic.Name == "" {
			return nil, fmt.Errorf("topic %d: id and name are required", i)
		}
		// Topic IDs are used as document field names
		if strings.ContainsAny(topic.ID, ". ") {
			return nil, fmt.Errorf("topic %q: id must not contain dots or spaces", topic.ID)
		}
		if _, ok := catalog.byID[topic.ID]; ok {
			return nil, fmt.Errorf("topic %q: duplicate id", topic.ID)
		}
		if len(topic.Days) != 0 && len(topic.Days) != models.MaxDay {
			return nil, fmt.Errorf("topic %q: expected %d day titles, got %d", topic.ID, models.MaxDay, len(topic.Days))
		}
		catalog.byID[topic.ID] = i
	}

	return catalog, nil
}

// Topics returns all topics in catalog order
func (c *Catalog) Topics() []models.Topic {
	out := make([]models.Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

// Topic returns a topic by its ID
func (c *Catalog) Topic(id string) (models.Topic, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Topic{}, false
	}
	return c.topics[i], true
}

// Dictionary returns the glossary terms
func (c *Catalog) Dictionary() []models.DictionaryTerm {
	out := make([]models.DictionaryTerm, len(c.dictionary))
	copy(out, c.dictionary)
	return out
}

// DayTitle returns the title of a day of a topic track.
//
// Topics without a roadmap get numbered lesson titles, with checkpoint and final exam
// days named the same way in every track.
func (c *Catalog) DayTitle(topicID string, day int) string {
	topic, ok := c.Topic(topicID)
	if !ok || !models.IsValidDay(day) {
		return fmt.Sprintf("Day %d Topic", day)
	}
	if len(topic.Days) == models.MaxDay {
		return topic.Days[day-1]
	}
	switch {
	case day == models.MaxDay:
		return "FINAL CERTIFICATION EXAM"
	case models.IsCheckpointDay(day):
		return fmt.Sprintf("CHECKPOINT TEST %d", day/models.CheckpointInterval)
	}
	lessonNumber := day - day/models.CheckpointInterval
	return fmt.Sprintf("%s: Lesson %d", topic.Name, lessonNumber)
}

// ReviewTitles returns the titles of the days a checkpoint reviews
func (c *Catalog) ReviewTitles(topicID string, day int) []string {
	reviewRange := models.ReviewRangeFor(day)
	if reviewRange == nil {
		return nil
	}
	titles := make([]string, 0, reviewRange.To-reviewRange.From+1)
	for d := reviewRange.From; d <= reviewRange.To; d++ {
		titles = append(titles, c.DayTitle(topicID, d))
	}
	return titles
}

// GenerationRequest builds the generator input for a lesson
func (c *Catalog) GenerationRequest(topicID string, day int) models.GenerationRequest {
	topic, _ := c.Topic(topicID)
	return models.GenerationRequest{
		TopicID:          topicID,
		TopicName:        topic.Name,
		TopicDescription: topic.Description,
		DayID:            day,
		DayTitle:         c.DayTitle(topicID, day),
		IsCheckpoint:     models.IsCheckpointDay(day),
		ReviewRange:      models.ReviewRangeFor(day),
		ReviewTitles:     c.ReviewTitles(topicID, day),
		QuestionCount:    models.QuizLength(day),
	}
}
