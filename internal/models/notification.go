package models

import "time"

const (
	NotificationKindAchievement = "achievement"
	NotificationKindWeeklyStats = "weekly_stats"
)

// Notification is the persisted inbox row.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	IsRead    bool      `json:"is_read" db:"is_read"`
}

// NotificationPayload is what gets pushed to live connections. Achievement
// fields are only set for unlock notifications.
type NotificationPayload struct {
	ID                     int64      `json:"id"`
	Message                string     `json:"message"`
	CreatedAt              time.Time  `json:"created_at"`
	AchievedAt             *time.Time `json:"achieved_at,omitempty"`
	Type                   string     `json:"type,omitempty"`
	AchievementTitle       string     `json:"achievement_title,omitempty"`
	AchievementDescription string     `json:"achievement_description,omitempty"`
}

// PayloadFor builds the plain payload used for digests.
func PayloadFor(n *Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

// UnlockPayload builds the payload for an achievement unlock.
func UnlockPayload(n *Notification, a Achievement, achievedAt time.Time) NotificationPayload {
	p := PayloadFor(n)
	p.AchievedAt = &achievedAt
	p.Type = NotificationKindAchievement
	p.AchievementTitle = a.Title
	p.AchievementDescription = a.Description
	return p
}
