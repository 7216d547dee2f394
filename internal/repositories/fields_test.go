package repositories

import (
	"testing"
	"time"

	"github.com/safetyspeak/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFields(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		fields        models.FieldUpdates
		expected      string
		expectedError bool
	}{
		{
			name:     "top level field",
			body:     `{"name":"Lan","streak":1}`,
			fields:   models.FieldUpdates{"streak": 2},
			expected: `{"name":"Lan","streak":2}`,
		},
		{
			name:     "nested path creates missing objects",
			body:     `{"topics":null}`,
			fields:   models.FieldUpdates{"topics.fire.quizScores.3": 90},
			expected: `{"topics":{"fire":{"quizScores":{"3":90}}}}`,
		},
		{
			name:     "nested path keeps siblings",
			body:     `{"topics":{"fire":{"currentDay":3,"completedDays":[1,2]},"ppe":{"currentDay":1}}}`,
			fields:   models.FieldUpdates{"topics.fire.currentDay": 4},
			expected: `{"topics":{"fire":{"currentDay":4,"completedDays":[1,2]},"ppe":{"currentDay":1}}}`,
		},
		{
			name:     "array union appends new values",
			body:     `{"days":[1,2]}`,
			fields:   models.FieldUpdates{"days": models.ArrayUnionOf(3)},
			expected: `{"days":[1,2,3]}`,
		},
		{
			name:     "array union ignores present values",
			body:     `{"days":[1,2]}`,
			fields:   models.FieldUpdates{"days": models.ArrayUnionOf(2, 2)},
			expected: `{"days":[1,2]}`,
		},
		{
			name:     "array union on missing field",
			body:     `{}`,
			fields:   models.FieldUpdates{"topics.fire.completedDays": models.ArrayUnionOf(1)},
			expected: `{"topics":{"fire":{"completedDays":[1]}}}`,
		},
		{
			name:     "struct values are stored as objects",
			body:     `{}`,
			fields:   models.FieldUpdates{"topics.fire": models.NewTopicProgress()},
			expected: `{"topics":{"fire":{"currentDay":1,"completedDays":[],"quizScores":{}}}}`,
		},
		{
			name:     "empty body",
			body:     ``,
			fields:   models.FieldUpdates{"name": "Lan"},
			expected: `{"name":"Lan"}`,
		},
		{
			name:          "empty path segment",
			body:          `{}`,
			fields:        models.FieldUpdates{"topics..currentDay": 1},
			expectedError: true,
		},
		{
			name:          "invalid body",
			body:          `[1,2]`,
			fields:        models.FieldUpdates{"name": "Lan"},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ApplyFields([]byte(tt.body), tt.fields)

			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(out))
		})
	}
}

func TestApplyFields_Time(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	out, err := ApplyFields([]byte(`{}`), models.FieldUpdates{"lastActivityDate": now})

	require.NoError(t, err)
	assert.JSONEq(t, `{"lastActivityDate":"2026-03-14T09:30:00Z"}`, string(out))
}
