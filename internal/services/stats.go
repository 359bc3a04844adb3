package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/metrics"
	"github.com/tahcohcat/xpboard/internal/models"
)

const (
	digestListSize   = 3
	statsDoneMessage = "Weekly stats generated and sent to all users"
)

// StatsService builds the weekly leaderboard digest and delivers it to every user.
type StatsService struct {
	db            *database.DB
	notifications *NotificationStore
	pusher        Pusher
	topN          int
	log           *logger.Log

	// groupStanding is swappable so per-user failure handling can be exercised.
	groupStanding func(ctx context.Context, groupID int64) (*models.GroupStanding, error)
}

func NewStatsService(db *database.DB, notifications *NotificationStore, pusher Pusher, topN int) *StatsService {
	if pusher == nil {
		pusher = noopPusher{}
	}
	if topN <= 0 {
		topN = 5
	}
	s := &StatsService{
		db:            db,
		notifications: notifications,
		pusher:        pusher,
		topN:          topN,
		log:           logger.Named("stats"),
	}
	s.groupStanding = s.GroupStanding
	return s
}

const rankedUsersQuery = `
	SELECT id, COALESCE(NULLIF(display_name, ''), username) AS name, xp, group_id,
	       RANK() OVER (ORDER BY xp DESC) AS rank
	FROM users
	ORDER BY xp DESC, id`

const groupTotalsCTE = `
	WITH totals AS (
		SELECT g.id, g.name, CAST(COALESCE(SUM(u.xp), 0) AS BIGINT) AS xp
		FROM study_groups g
		LEFT JOIN users u ON u.group_id = g.id
		GROUP BY g.id, g.name
	), ranked AS (
		SELECT id, name, xp, RANK() OVER (ORDER BY xp DESC) AS rank FROM totals
	)`

// TopUsers returns the highest-XP users; tied users share a rank.
func (s *StatsService) TopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(rankedUsersQuery+` LIMIT ?`), limit); err != nil {
		return nil, fmt.Errorf("failed to load top users: %w", err)
	}
	return entries, nil
}

// RankedUsers returns every user with their rank.
func (s *StatsService) RankedUsers(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	if err := s.db.SelectContext(ctx, &entries, rankedUsersQuery); err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return entries, nil
}

// TopGroups ranks groups by the combined XP of their members.
func (s *StatsService) TopGroups(ctx context.Context, limit int) ([]models.GroupStanding, error) {
	query := groupTotalsCTE + ` SELECT id, name, xp, rank FROM ranked ORDER BY xp DESC, id LIMIT ?`

	groups := []models.GroupStanding{}
	if err := s.db.SelectContext(ctx, &groups, s.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("failed to load top groups: %w", err)
	}
	return groups, nil
}

func (s *StatsService) GroupStanding(ctx context.Context, groupID int64) (*models.GroupStanding, error) {
	query := groupTotalsCTE + ` SELECT id, name, xp, rank FROM ranked WHERE id = ?`

	var g models.GroupStanding
	err := s.db.GetContext(ctx, &g, s.db.Rebind(query), groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", groupID, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load group standing: %w", err)
	}
	return &g, nil
}

// Generate performs one stats run: it loads the leaderboards, then persists
// and pushes a personal digest to every user. A failure for one user is
// logged and counted; the run carries on with the rest. Only a failure to
// load the leaderboards fails the run.
func (s *StatsService) Generate(ctx context.Context) (*models.StatsRunResult, error) {
	s.log.Info("starting weekly stats generation")

	var (
		topUsers  []models.LeaderboardEntry
		topGroups []models.GroupStanding
		users     []models.LeaderboardEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		topUsers, err = s.TopUsers(gctx, s.topN)
		return err
	})
	g.Go(func() (err error) {
		topGroups, err = s.TopGroups(gctx, s.topN)
		return err
	})
	g.Go(func() (err error) {
		users, err = s.RankedUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("weekly stats: %w", err)
	}

	s.log.With("users", len(users)).With("groups", len(topGroups)).Info("leaderboards loaded")

	result := &models.StatsRunResult{Success: true, Message: statsDoneMessage}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			result.Success = false
			return result, fmt.Errorf("weekly stats interrupted: %w", err)
		}

		log := s.log.With("user_id", user.UserID)

		digest := Digest{TopUsers: topUsers, TopGroups: topGroups, Self: user}
		if user.GroupID != nil {
			standing, err := s.groupStanding(ctx, *user.GroupID)
			if err != nil {
				log.WithError(err).Error("failed to load group standing")
			} else {
				digest.Group = standing
			}
		}

		n, err := s.notifications.Create(ctx, user.UserID, FormatDigest(digest))
		if err != nil {
			metrics.StatsUserFailures.Inc()
			log.WithError(err).Error("failed to save weekly stats notification")
			result.UserFailures++
			continue
		}
		metrics.NotificationsCreated.WithLabelValues(models.NotificationKindWeeklyStats).Inc()

		payload := models.PayloadFor(n)
		payload.Type = models.NotificationKindWeeklyStats
		s.pusher.Push(user.UserID, payload)
		result.UsersNotified++
	}

	s.log.With("notified", result.UsersNotified).With("failures", result.UserFailures).Info("weekly stats generation completed")
	return result, nil
}

// Digest is everything one user's weekly message is built from. Group is nil
// when the user has no group or its standing could not be loaded.
type Digest struct {
	TopUsers  []models.LeaderboardEntry
	TopGroups []models.GroupStanding
	Self      models.LeaderboardEntry
	Group     *models.GroupStanding
}

// FormatDigest renders the weekly message text.
func FormatDigest(d Digest) string {
	var b strings.Builder

	b.WriteString("📊 Weekly Stats Update:\n\n")

	b.WriteString("👑 Top Users:\n")
	for i, u := range head(d.TopUsers, digestListSize) {
		fmt.Fprintf(&b, "%d. %s - %d XP\n", i+1, u.Name, u.XP)
	}

	b.WriteString("\n🏆 Top Groups:\n")
	for i, g := range head(d.TopGroups, digestListSize) {
		fmt.Fprintf(&b, "%d. %s - %d XP\n", i+1, g.Name, g.XP)
	}

	fmt.Fprintf(&b, "\n🏆 Your rank: #%d with %d XP\n\n", d.Self.Rank, d.Self.XP)

	if d.Group != nil {
		fmt.Fprintf(&b, "👥 Your group \"%s\" is ranked #%d with %d XP\n", d.Group.Name, d.Group.Rank, d.Group.XP)
		b.WriteString("   (combined XP of all members)\n")
	}
	return b.String()
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
