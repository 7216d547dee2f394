package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when the input of an operation is invalid
	ErrValidation = errors.New("validation error")
	// ErrUnknownTopic is returned when a topic is not part of the catalog
	ErrUnknownTopic = fmt.Errorf("%w: unknown topic", ErrValidation)
	// ErrTopicNotStarted is returned when a quiz is submitted for a topic the user never started
	ErrTopicNotStarted = fmt.Errorf("%w: topic not started", ErrValidation)
	// ErrUserNotFound is returned when the user account does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrStorageUnavailable is returned when the document store fails
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrGeneration is returned when lesson content could not be generated
	ErrGeneration = errors.New("lesson generation failed")
	// ErrDuplicateQuestions is returned when generated quiz questions repeat the same prompt
	ErrDuplicateQuestions = fmt.Errorf("%w: duplicate quiz questions", ErrGeneration)
)

// validationError wraps ErrValidation with a message
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
