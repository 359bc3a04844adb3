// Package metrics holds the Prometheus collectors for progress tracking,
// notification delivery and the weekly stats job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProgressIncrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_progress_increments_total",
			Help: "Progress increments committed, by condition type",
		},
		[]string{"condition_type"},
	)

	ProgressFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_progress_failures_total",
			Help: "RecordProgress calls that rolled back, by condition type",
		},
		[]string{"condition_type"},
	)

	AchievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_achievements_unlocked_total",
			Help: "Achievement unlocks committed, by achievement id",
		},
		[]string{"achievement_id"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_notifications_created_total",
			Help: "Notification rows persisted, by kind",
		},
		[]string{"kind"},
	)

	DispatchDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_dispatch_deliveries_total",
			Help: "Per-connection push attempts, by outcome (sent, closed, dropped)",
		},
		[]string{"outcome"},
	)

	LiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xpboard_live_connections",
			Help: "Registered socket connections, by channel",
		},
		[]string{"channel"},
	)

	StatsRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xpboard_stats_runs_total",
			Help: "Weekly stats runs, by outcome (success, failure)",
		},
		[]string{"outcome"},
	)

	StatsUserFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xpboard_stats_user_failures_total",
			Help: "Per-user failures isolated during stats runs",
		},
	)
)
