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

// ProgressStore keeps one counter per (user, condition type). Counters only
// move up, and only through Increment.
type ProgressStore struct {
	db *database.DB
}

func NewProgressStore(db *database.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Increment adds by to the counter in a single upsert and returns the new
// value. A missing row is created holding by.
func (s *ProgressStore) Increment(ctx context.Context, q database.Queryer, userID int64, conditionType string, by int64, now time.Time) (int64, error) {
	query := `
		INSERT INTO user_achievement_progress (user_id, condition_type, current_value, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, condition_type) DO UPDATE SET
			current_value = user_achievement_progress.current_value + excluded.current_value,
			last_updated = excluded.last_updated
		RETURNING current_value`

	var value int64
	if err := sqlx.GetContext(ctx, q, &value, q.Rebind(query), userID, conditionType, by, now); err != nil {
		return 0, fmt.Errorf("failed to increment progress: %w", err)
	}
	return value, nil
}

// EnsureZero creates a zero counter unless one already exists.
func (s *ProgressStore) EnsureZero(ctx context.Context, q database.Queryer, userID int64, conditionType string, now time.Time) error {
	query := `
		INSERT INTO user_achievement_progress (user_id, condition_type, current_value, last_updated)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (user_id, condition_type) DO NOTHING`

	if _, err := q.ExecContext(ctx, q.Rebind(query), userID, conditionType, now); err != nil {
		return fmt.Errorf("failed to initialize progress for %s: %w", conditionType, err)
	}
	return nil
}

func (s *ProgressStore) Get(ctx context.Context, userID int64, conditionType string) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	query := `SELECT user_id, condition_type, current_value, last_updated
			  FROM user_achievement_progress WHERE user_id = ? AND condition_type = ?`

	err := s.db.GetContext(ctx, &rec, s.db.Rebind(query), userID, conditionType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress %s for user %d: %w", conditionType, userID, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &rec, nil
}

func (s *ProgressStore) ListForUser(ctx context.Context, userID int64) ([]models.ProgressRecord, error) {
	records := []models.ProgressRecord{}
	query := `SELECT user_id, condition_type, current_value, last_updated
			  FROM user_achievement_progress WHERE user_id = ? ORDER BY condition_type`

	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return records, nil
}
