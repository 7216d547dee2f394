package generator

import (
	"fmt"
	"strings"

	"github.com/safetyspeak/backend/internal/models"
)

// buildPrompt returns the instruction sent to the model for a lesson request
func buildPrompt(req models.GenerationRequest) string {
	var b strings.Builder
	if req.IsCheckpoint {
		writeCheckpointPrompt(&b, req)
	} else {
		writeRegularPrompt(&b, req)
	}

	if req.AvoidDuplicatePrompts {
		fmt.Fprintf(&b, "\nIMPORTANT: every one of the %d quiz questions must ask something different. "+
			"Do not repeat or rephrase the same question.\n", req.QuestionCount)
	}
	b.WriteString("\nReturn ONLY valid JSON, no markdown formatting.")
	return b.String()
}

func writeRegularPrompt(b *strings.Builder, req models.GenerationRequest) {
	fmt.Fprintf(b, `You are an expert English teacher for occupational safety training.
Create a complete English lesson for beginners working in construction/manufacturing.

Track: "%s" (%s)
Topic: "%s"
Day: %d/%d

Generate a JSON response with this EXACT structure:
{
  "vocab": [
    {
      "term": "Hard hat",
      "meaning": "Protective helmet worn on construction sites",
      "example": "Always wear your hard hat in the work area.",
      "ipa": "/hɑːrd hæt/",
      "vietnamese": "Mũ bảo hộ"
    }
  ],
  "dialogue": [
    {"speaker": "Tom", "role": "Worker", "text": "Where is my hard hat?", "vietnamese": "Mũ bảo hộ của tôi đâu?"},
    {"speaker": "Sam", "role": "Safety Officer", "text": "It's on the table. Always wear it on site!", "vietnamese": "Nó ở trên bàn. Luôn đội nó khi ở công trường!"}
  ],
  "scenario": {
    "title": "Missing PPE Situation",
    "titleVietnamese": "Tình huống thiếu đồ bảo hộ",
    "description": "You see a colleague entering a work area without proper safety equipment. What should you do?",
    "vietnamese": "Bạn thấy một đồng nghiệp vào khu vực làm việc mà không có thiết bị an toàn phù hợp. Bạn nên làm gì?",
    "dangerLevel": "High"
  },
  "quiz": [
    {
      "question": "What is the main purpose of a hard hat?",
      "options": [
        "Protect head from falling objects and impacts",
        "Keep your head warm",
        "Look professional",
        "Company requirement only"
      ],
      "correctAnswer": 0
    }
  ]
}

Requirements:
- 5 vocabulary words directly related to the topic
- 3-4 lines of realistic workplace dialogue
- Exactly %d multiple-choice questions, each with exactly 4 options
- correctAnswer is the 0-based index of the right option and must vary (not always 0)
- dangerLevel is one of "Low", "Medium", "High", "Critical"
- IPA pronunciation guides must be accurate
- Vocabulary must be practical and commonly used in safety contexts
- Scenario should present a realistic safety situation
- Quiz questions should test understanding, not just memorization
- All content must be beginner-friendly (A1-A2 English level)
- Focus on PRACTICAL safety knowledge workers need
`, req.TopicName, req.TopicDescription, req.DayTitle, req.DayID, models.MaxDay, req.QuestionCount)
}

func writeCheckpointPrompt(b *strings.Builder, req models.GenerationRequest) {
	from, to := req.DayID, req.DayID
	if req.ReviewRange != nil {
		from, to = req.ReviewRange.From, req.ReviewRange.To
	}
	number := req.DayID / models.CheckpointInterval

	fmt.Fprintf(b, `You are creating a CHECKPOINT TEST for an occupational safety English course.

Track: "%s" (%s)
This test reviews Days %d-%d, covering: %s

Generate a JSON response with:
{
  "vocab": [
    {
      "term": "Review",
      "meaning": "To look at something again to remember it",
      "example": "Let's review what we learned this week.",
      "ipa": "/rɪˈvjuː/",
      "vietnamese": "Ôn tập"
    }
  ],
  "dialogue": [
    {"speaker": "Examiner", "role": "Safety Officer", "text": "Welcome to Checkpoint Test %d. Are you ready?"},
    {"speaker": "You", "role": "Trainee", "text": "Yes, I'm ready to show what I've learned."},
    {"speaker": "Examiner", "role": "Safety Officer", "text": "Good! You need %d%% to pass. Let's begin."}
  ],
  "scenario": {
    "title": "Checkpoint %d Assessment",
    "description": "This is a comprehensive test of the safety concepts you've learned. You must score %d%% or higher to proceed.",
    "dangerLevel": "Critical"
  },
  "quiz": [
    {"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": 2}
  ]
}

Requirements:
- 5 review-related vocabulary words
- Exactly %d challenging questions, each with exactly 4 options
- Questions must cover ALL topics from Days %d-%d
- Mix question types: vocabulary, procedures, scenario-based
- Make it challenging but fair
- correctAnswer is the 0-based index of the right option and must vary across questions
`, req.TopicName, req.TopicDescription, from, to, strings.Join(req.ReviewTitles, ", "),
		number, models.PassThreshold, number, models.PassThreshold,
		req.QuestionCount, from, to)
}
