package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/models"
)

// DefaultAchievements is the catalog seeded by `xpboard migrate` and on server start.
var DefaultAchievements = []models.Achievement{
	{ID: "first-words", Icon: "💬", Title: "First Words", Description: "Send your first chat message", ConditionType: models.ConditionMessageSent, ConditionValue: 1},
	{ID: "chatterbox", Icon: "🗣️", Title: "Chatterbox", Description: "Send 10 chat messages", ConditionType: models.ConditionMessageSent, ConditionValue: 10},
	{ID: "storyteller", Icon: "📣", Title: "Storyteller", Description: "Send 50 chat messages", ConditionType: models.ConditionMessageSent, ConditionValue: 50},
	{ID: "voice-of-the-group", Icon: "🎙️", Title: "Voice of the Group", Description: "Send 100 chat messages", ConditionType: models.ConditionMessageSent, ConditionValue: 100},
	{ID: "welcome-back", Icon: "👋", Title: "Welcome Back", Description: "Log in for the first time", ConditionType: models.ConditionLoginCount, ConditionValue: 1},
	{ID: "regular", Icon: "📅", Title: "Regular", Description: "Log in 7 times", ConditionType: models.ConditionLoginCount, ConditionValue: 7},
	{ID: "devoted", Icon: "🔥", Title: "Devoted", Description: "Log in 30 times", ConditionType: models.ConditionLoginCount, ConditionValue: 30},
	{ID: "first-test", Icon: "📝", Title: "First Test", Description: "Complete your first test", ConditionType: models.ConditionTestCompleted, ConditionValue: 1},
	{ID: "studious", Icon: "📚", Title: "Studious", Description: "Complete 10 tests", ConditionType: models.ConditionTestCompleted, ConditionValue: 10},
	{ID: "scholar", Icon: "🎓", Title: "Scholar", Description: "Complete 25 tests", ConditionType: models.ConditionTestCompleted, ConditionValue: 25},
}

// Catalog reads the achievement definitions. Rows are seeded externally and
// never modified at runtime.
type Catalog struct {
	db *database.DB
}

func NewCatalog(db *database.DB) *Catalog {
	return &Catalog{db: db}
}

const achievementColumns = `a.id, a.title, a.description, a.icon, a.condition_type, a.condition_value, a.created_at`

// All returns every definition grouped by condition type, ascending threshold.
func (c *Catalog) All(ctx context.Context) ([]models.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements a
		ORDER BY a.condition_type, a.condition_value, a.id`

	achievements := []models.Achievement{}
	if err := c.db.SelectContext(ctx, &achievements, query); err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*models.Achievement, error) {
	var a models.Achievement
	query := `SELECT ` + achievementColumns + ` FROM achievements a WHERE a.id = ?`
	err := c.db.GetContext(ctx, &a, c.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("achievement %q: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	return &a, nil
}

// ConditionTypes lists the distinct condition types that have at least one definition.
func (c *Catalog) ConditionTypes(ctx context.Context) ([]string, error) {
	types := []string{}
	err := c.db.SelectContext(ctx, &types, `SELECT DISTINCT condition_type FROM achievements ORDER BY condition_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to list condition types: %w", err)
	}
	return types, nil
}

// Unclaimed returns definitions for conditionType with a threshold at or below
// upTo that the user has not unlocked yet, lowest threshold first and ties by
// id. It runs on q so the engine can call it inside its transaction.
func (c *Catalog) Unclaimed(ctx context.Context, q database.Queryer, userID int64, conditionType string, upTo int64) ([]models.Achievement, error) {
	query := `SELECT ` + achievementColumns + ` FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = ?
		WHERE a.condition_type = ?
		  AND a.condition_value <= ?
		  AND ua.user_id IS NULL
		ORDER BY a.condition_value, a.id`

	var achievements []models.Achievement
	if err := sqlx.SelectContext(ctx, q, &achievements, q.Rebind(query), userID, conditionType, upTo); err != nil {
		return nil, fmt.Errorf("failed to find unlockable achievements: %w", err)
	}
	return achievements, nil
}

// Seed inserts definitions that are not present yet. Existing ids are left untouched.
func (c *Catalog) Seed(ctx context.Context, achievements []models.Achievement) error {
	query := c.db.Rebind(`
		INSERT INTO achievements (id, title, description, icon, condition_type, condition_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	now := time.Now().UTC()
	for _, a := range achievements {
		if a.ID == "" || a.ConditionType == "" || a.ConditionValue <= 0 {
			return fmt.Errorf("invalid achievement definition %q: %w", a.ID, apperr.ErrValidation)
		}
		_, err := c.db.ExecContext(ctx, query, a.ID, a.Title, a.Description, a.Icon, a.ConditionType, a.ConditionValue, now)
		if err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", a.ID, err)
		}
	}
	return nil
}
