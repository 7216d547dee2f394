// Package generator provides the LLM content generator used to write lessons
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no API key is configured
var ErrNotConfigured = errors.New("content generator is not configured")

// Config holds the settings of the Gemini client
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single HTTP call; callers bound the whole generation with their context
	Timeout time.Duration
}

type geminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGeminiClient creates a lesson generator backed by the Gemini generateContent REST API
func NewGeminiClient(cfg Config, logger *zap.Logger) *geminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &geminiClient{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig map[string]interface{} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// lessonPayload is the JSON document the model is asked to produce
type lessonPayload struct {
	Vocab []struct {
		Term       string `json:"term"`
		Meaning    string `json:"meaning"`
		Example    string `json:"example"`
		IPA        string `json:"ipa"`
		Vietnamese string `json:"vietnamese"`
	} `json:"vocab"`
	Dialogue []struct {
		Speaker    string `json:"speaker"`
		Role       string `json:"role"`
		Text       string `json:"text"`
		Vietnamese string `json:"vietnamese"`
	} `json:"dialogue"`
	Scenario struct {
		Title           string `json:"title"`
		TitleVietnamese string `json:"titleVietnamese"`
		Description     string `json:"description"`
		Vietnamese      string `json:"vietnamese"`
		DangerLevel     string `json:"dangerLevel"`
	} `json:"scenario"`
	Quiz []struct {
		Question      string   `json:"question"`
		Options       []string `json:"options"`
		CorrectAnswer int      `json:"correctAnswer"`
	} `json:"quiz"`
}

// Generate asks the model for the content of one lesson.
//
// The content is decoded but not validated. Quiz IDs are assigned by position.
func (c *geminiClient) Generate(ctx context.Context, req models.GenerationRequest) (*models.LessonContent, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildPrompt(req)}}}},
		GenerationConfig: map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0.7,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	// One upstream call per attempt: retries are owned by the lesson service
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if out.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("gemini returned no content")
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	content, err := parseLesson(text.String())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("lesson generated",
		zap.String("topic_id", req.TopicID),
		zap.Int("day_id", req.DayID),
		zap.Int("questions", len(content.Quiz)),
		zap.Duration("duration", time.Since(start)),
	)
	return content, nil
}

// parseLesson decodes the model output, tolerating markdown code fences around the JSON
func parseLesson(text string) (*models.LessonContent, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var payload lessonPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode lesson json: %w", err)
	}

	content := &models.LessonContent{
		Vocabulary: make([]models.Vocabulary, 0, len(payload.Vocab)),
		Dialogue:   make([]models.DialogueLine, 0, len(payload.Dialogue)),
		Scenario: models.Scenario{
			Title:            payload.Scenario.Title,
			Description:      payload.Scenario.Description,
			RiskLevel:        models.RiskLevel(payload.Scenario.DangerLevel),
			Translation:      payload.Scenario.Vietnamese,
			TitleTranslation: payload.Scenario.TitleVietnamese,
		},
		Quiz: make([]models.QuizQuestion, 0, len(payload.Quiz)),
	}
	for _, v := range payload.Vocab {
		content.Vocabulary = append(content.Vocabulary, models.Vocabulary{
			Term:          v.Term,
			Meaning:       v.Meaning,
			Example:       v.Example,
			Pronunciation: v.IPA,
			Translation:   v.Vietnamese,
		})
	}
	for _, d := range payload.Dialogue {
		content.Dialogue = append(content.Dialogue, models.DialogueLine{
			Speaker:     d.Speaker,
			Role:        d.Role,
			Text:        d.Text,
			Translation: d.Vietnamese,
		})
	}
	for i, q := range payload.Quiz {
		content.Quiz = append(content.Quiz, models.QuizQuestion{
			ID:            i,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	return content, nil
}
