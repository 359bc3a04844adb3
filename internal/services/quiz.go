package services

import (
	"context"

	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/models"
	"github.com/tahcohcat/xpboard/internal/validation"
)

const (
	testBaseXP      = 3
	xpPerCorrectAns = 5
)

type QuizService struct {
	users  *UserService
	engine *AchievementEngine
	log    *logger.Log
}

func NewQuizService(users *UserService, engine *AchievementEngine) *QuizService {
	return &QuizService{users: users, engine: engine, log: logger.Named("quiz")}
}

// TestXP is the reward for a finished test; an empty test earns nothing.
func TestXP(totalQuestions, correctAnswers int) int64 {
	if totalQuestions <= 0 {
		return 0
	}
	return testBaseXP + xpPerCorrectAns*int64(correctAnswers)
}

// CompleteTest awards XP for a finished test and counts it towards
// test_completed achievements. The two writes are separate: if recording
// progress fails the XP stays awarded and the result carries a zero
// CurrentValue.
func (s *QuizService) CompleteTest(ctx context.Context, userID int64, req *models.TestCompletionRequest) (*models.TestCompletionResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	result := &models.TestCompletionResult{XPAwarded: TestXP(req.TotalQuestions, req.CorrectAnswers)}
	if result.XPAwarded > 0 {
		if err := s.users.AwardXP(ctx, userID, result.XPAwarded); err != nil {
			return nil, err
		}
	}

	progress, err := s.engine.RecordProgress(ctx, userID, models.ConditionTestCompleted, 1)
	if err != nil {
		s.log.With("user_id", userID).WithError(err).Warn("xp awarded but test progress was not recorded")
		return result, nil
	}
	result.CurrentValue = progress.CurrentValue
	return result, nil
}
