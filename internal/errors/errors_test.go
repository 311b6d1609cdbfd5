package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		match    func(error) bool
		expected bool
	}{
		{"missing question", ErrNotFound, IsNotFound, true},
		{"wrapped missing weekly quiz", fmt.Errorf("get weekly quiz: %w", ErrNotFound), IsNotFound, true},
		{"link code is not a missing row", ErrInvalidLinkCode, IsNotFound, false},
		{"validation error is invalid input", NewValidationError("options", "at least two options required"), IsInvalidInput, true},
		{"wrapped validation error", fmt.Errorf("create question: %w", NewValidationError("answer", "out of range")), IsInvalidInput, true},
		{"answered is not invalid input", ErrAlreadyAnswered, IsInvalidInput, false},
		{"nil", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.match(tt.err))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("answer", "must be between 1 and 4")
	assert.Equal(t, "validation failed on answer: must be between 1 and 4", err.Error())
}

func TestWithUserMessage(t *testing.T) {
	assert.NoError(t, WithUserMessage(nil, "ignored"))

	cause := fmt.Errorf("generate link code: %w", ErrNotFound)
	err := fmt.Errorf("account link: %w", WithUserMessage(cause, "연동 코드를 만들 수 없어요."))

	ue, ok := errors.AsType[*UserError](err)
	if assert.True(t, ok) {
		assert.Equal(t, "연동 코드를 만들 수 없어요.", ue.Message)
	}
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "generate link code")
}
