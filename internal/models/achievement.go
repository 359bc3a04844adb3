package models

import (
	"time"
)

// Condition types tracked by the progress counters.
const (
	ConditionMessageSent   = "message_sent"
	ConditionLoginCount    = "login_count"
	ConditionTestCompleted = "test_completed"
)

// Achievement is a read-only catalog entry. It unlocks once a user's counter
// for ConditionType reaches ConditionValue.
type Achievement struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Icon           string    `json:"icon" db:"icon"`
	ConditionType  string    `json:"condition_type" db:"condition_type"`
	ConditionValue int64     `json:"condition_value" db:"condition_value"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type ProgressRecord struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	ConditionType string    `json:"condition_type" db:"condition_type"`
	CurrentValue  int64     `json:"current_value" db:"current_value"`
	LastUpdated   time.Time `json:"last_updated" db:"last_updated"`
}

type UnlockRecord struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	AchievementID string    `json:"achievement_id" db:"achievement_id"`
	AchievedAt    time.Time `json:"achieved_at" db:"achieved_at"`
}

// UserAchievementView joins the catalog with one user's progress and unlocks.
type UserAchievementView struct {
	Achievement
	Progress   int64      `json:"progress" db:"progress"`
	Unlocked   bool       `json:"unlocked" db:"unlocked"`
	AchievedAt *time.Time `json:"achieved_at" db:"achieved_at"`
}

// ProgressResult is what RecordProgress reports back to its caller.
type ProgressResult struct {
	CurrentValue int64         `json:"current_value"`
	Unlocked     []Achievement `json:"unlocked,omitempty"`
}
