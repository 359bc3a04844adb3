package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

func TestTestXP(t *testing.T) {
	assert.Equal(t, int64(0), TestXP(0, 0))
	assert.Equal(t, int64(3), TestXP(5, 0))
	assert.Equal(t, int64(23), TestXP(5, 4))
}

func TestCompleteTest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	quiz := NewQuizService(e.users, e.engine)
	u := e.addUser(t, "alice", 0)

	res, err := quiz.CompleteTest(ctx, u, &models.TestCompletionRequest{TotalQuestions: 4, CorrectAnswers: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(18), res.XPAwarded)
	assert.Equal(t, int64(1), res.CurrentValue)

	user, err := e.users.GetUserByID(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(18), user.XP)

	views, err := e.engine.GetUserAchievements(ctx, u)
	require.NoError(t, err)
	for _, v := range views {
		if v.ID == "first-test" {
			assert.True(t, v.Unlocked)
		}
	}
}

func TestCompleteEmptyTestStillCounts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	quiz := NewQuizService(e.users, e.engine)
	u := e.addUser(t, "alice", 0)

	res, err := quiz.CompleteTest(ctx, u, &models.TestCompletionRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.XPAwarded)
	assert.Equal(t, int64(1), res.CurrentValue)
}

func TestCompleteTestValidates(t *testing.T) {
	e := newEnv(t)
	quiz := NewQuizService(e.users, e.engine)
	u := e.addUser(t, "alice", 0)

	_, err := quiz.CompleteTest(context.Background(), u, &models.TestCompletionRequest{TotalQuestions: 2, CorrectAnswers: 5})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	user, err := e.users.GetUserByID(context.Background(), u)
	require.NoError(t, err)
	assert.Zero(t, user.XP)
}
