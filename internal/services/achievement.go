package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/metrics"
	"github.com/tahcohcat/xpboard/internal/models"
	"github.com/tahcohcat/xpboard/internal/validation"
)

// AchievementEngine turns domain events into counter increments and
// achievement unlocks.
type AchievementEngine struct {
	db            *database.DB
	catalog       *Catalog
	progress      *ProgressStore
	notifications *NotificationStore
	pusher        Pusher
	log           *logger.Log
	now           func() time.Time
}

func NewAchievementEngine(db *database.DB, catalog *Catalog, progress *ProgressStore, notifications *NotificationStore, pusher Pusher) *AchievementEngine {
	if pusher == nil {
		pusher = noopPusher{}
	}
	return &AchievementEngine{
		db:            db,
		catalog:       catalog,
		progress:      progress,
		notifications: notifications,
		pusher:        pusher,
		log:           logger.Named("achievements"),
		now:           utcNow,
	}
}

// UnlockMessage is the inbox text for a newly earned achievement.
func UnlockMessage(a models.Achievement) string {
	return fmt.Sprintf("You earned the achievement: %s!", a.Title)
}

type unlock struct {
	achievement  models.Achievement
	notification *models.Notification
	achievedAt   time.Time
}

// RecordProgress adds increment to the user's counter for conditionType and
// unlocks every achievement whose threshold the new value reaches. The
// increment, the unlock rows and their notifications commit together or not
// at all. Pushes to live connections happen after commit and never fail the
// call. An increment of zero counts as one.
func (e *AchievementEngine) RecordProgress(ctx context.Context, userID int64, conditionType string, increment int64) (*models.ProgressResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validation.Var("condition_type", conditionType, "required"); err != nil {
		return nil, err
	}
	if increment == 0 {
		increment = 1
	}
	if increment < 0 {
		return nil, fmt.Errorf("increment %d must be positive: %w", increment, apperr.ErrValidation)
	}

	log := e.log.With("user_id", userID).With("condition_type", conditionType)

	var (
		current int64
		unlocks []unlock
	)
	err := e.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		unlocks = nil
		now := e.now()

		value, err := e.progress.Increment(ctx, tx, userID, conditionType, increment, now)
		if err != nil {
			return err
		}
		current = value

		candidates, err := e.catalog.Unclaimed(ctx, tx, userID, conditionType, value)
		if err != nil {
			return err
		}

		for _, a := range candidates {
			inserted, err := insertUnlock(ctx, tx, userID, a.ID, now)
			if err != nil {
				return err
			}
			if !inserted {
				// Claimed by a concurrent call that committed first.
				continue
			}

			n, err := e.notifications.CreateWith(ctx, tx, userID, UnlockMessage(a))
			if err != nil {
				return err
			}
			unlocks = append(unlocks, unlock{achievement: a, notification: n, achievedAt: now})
		}
		return nil
	})
	if err != nil {
		metrics.ProgressFailures.WithLabelValues(conditionType).Inc()
		log.WithError(err).Error("failed to record progress")
		return nil, fmt.Errorf("record progress: %w", err)
	}

	metrics.ProgressIncrements.WithLabelValues(conditionType).Inc()

	result := &models.ProgressResult{CurrentValue: current}
	for _, u := range unlocks {
		metrics.AchievementsUnlocked.WithLabelValues(u.achievement.ID).Inc()
		metrics.NotificationsCreated.WithLabelValues(models.NotificationKindAchievement).Inc()
		log.With("achievement_id", u.achievement.ID).Info("achievement unlocked")

		e.pusher.Push(userID, models.UnlockPayload(u.notification, u.achievement, u.achievedAt))
		result.Unlocked = append(result.Unlocked, u.achievement)
	}

	log.With("current_value", current).Debug("progress recorded")
	return result, nil
}

// InitializeUserProgress creates a zero counter for every condition type in
// the catalog. Existing counters are left alone, so it is safe to repeat.
func (e *AchievementEngine) InitializeUserProgress(ctx context.Context, userID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	types, err := e.catalog.ConditionTypes(ctx)
	if err != nil {
		return err
	}

	return e.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := e.now()
		for _, ct := range types {
			if err := e.progress.EnsureZero(ctx, tx, userID, ct, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUserAchievements returns the whole catalog with the user's progress and
// unlock state.
func (e *AchievementEngine) GetUserAchievements(ctx context.Context, userID int64) ([]models.UserAchievementView, error) {
	query := `
		SELECT
			a.id, a.title, a.description, a.icon, a.condition_type, a.condition_value, a.created_at,
			COALESCE(p.current_value, 0) AS progress,
			CASE WHEN ua.user_id IS NULL THEN FALSE ELSE TRUE END AS unlocked,
			ua.achieved_at
		FROM achievements a
		LEFT JOIN user_achievement_progress p ON p.condition_type = a.condition_type AND p.user_id = ?
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		ORDER BY a.condition_type, a.condition_value, a.id`

	views := []models.UserAchievementView{}
	if err := e.db.SelectContext(ctx, &views, e.db.Rebind(query), userID, userID); err != nil {
		return nil, fmt.Errorf("failed to get user achievements: %w", err)
	}
	return views, nil
}

// insertUnlock reports whether this call created the unlock row.
func insertUnlock(ctx context.Context, q database.Queryer, userID int64, achievementID string, at time.Time) (bool, error) {
	query := `INSERT INTO user_achievements (user_id, achievement_id, achieved_at)
			  VALUES (?, ?, ?)
			  ON CONFLICT (user_id, achievement_id) DO NOTHING`

	res, err := q.ExecContext(ctx, q.Rebind(query), userID, achievementID, at)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}
	return n == 1, nil
}
