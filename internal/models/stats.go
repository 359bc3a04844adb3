package models

// LeaderboardEntry is one ranked user. Rank uses RANK() semantics, so ties share a rank.
type LeaderboardEntry struct {
	UserID  int64  `json:"user_id" db:"id"`
	Name    string `json:"name" db:"name"`
	XP      int64  `json:"xp" db:"xp"`
	GroupID *int64 `json:"group_id,omitempty" db:"group_id"`
	Rank    int64  `json:"rank" db:"rank"`
}

// GroupStanding is a group's combined member XP and its rank among groups.
type GroupStanding struct {
	GroupID int64  `json:"group_id" db:"id"`
	Name    string `json:"name" db:"name"`
	XP      int64  `json:"xp" db:"xp"`
	Rank    int64  `json:"rank" db:"rank"`
}

// StatsRunResult summarizes one weekly stats run.
type StatsRunResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UsersNotified int    `json:"users_notified"`
	UserFailures  int    `json:"user_failures"`
}
