package domain

import "strings"

// MinQuestionLen is the minimum accepted question length, in runes.
const MinQuestionLen = 5

// ValidateQuestion checks a clinical question at the service boundary.
func ValidateQuestion(q string) error {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return NewValidationError("question", q, ErrQuestionEmpty)
	}
	if len([]rune(trimmed)) < MinQuestionLen {
		return NewValidationError("question", q, ErrQuestionTooShort)
	}
	return nil
}
