package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(&models.CreateUserRequest{Username: "ab", Password: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "username must be at least 3")
	assert.Contains(t, err.Error(), "password is required")
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, Struct(&models.CreateUserRequest{Username: "alice", Password: "secret1"}))
	assert.NoError(t, Struct(&models.TestCompletionRequest{TotalQuestions: 4, CorrectAnswers: 4}))
}

func TestStructCrossField(t *testing.T) {
	err := Struct(&models.TestCompletionRequest{TotalQuestions: 2, CorrectAnswers: 3})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestVar(t *testing.T) {
	require.NoError(t, Var("condition_type", "message_sent", "required"))

	err := Var("condition_type", "", "required")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "condition_type")
}
