package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

func int64p(v int64) *int64 { return &v }

func sampleBoards() ([]models.LeaderboardEntry, []models.GroupStanding) {
	users := []models.LeaderboardEntry{
		{UserID: 1, Name: "alice", XP: 120, Rank: 1},
		{UserID: 2, Name: "bob", XP: 80, Rank: 2},
		{UserID: 3, Name: "carol", XP: 40, Rank: 3},
		{UserID: 4, Name: "dave", XP: 10, Rank: 4},
	}
	groups := []models.GroupStanding{
		{GroupID: 1, Name: "Owls", XP: 200, Rank: 1},
		{GroupID: 2, Name: "Foxes", XP: 50, Rank: 2},
	}
	return users, groups
}

func TestFormatDigest(t *testing.T) {
	users, groups := sampleBoards()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	t.Run("with group", func(t *testing.T) {
		self := users[1]
		self.GroupID = int64p(1)
		out := FormatDigest(Digest{TopUsers: users, TopGroups: groups, Self: self, Group: &groups[0]})
		g.Assert(t, "digest_with_group", []byte(out))
	})

	t.Run("without group", func(t *testing.T) {
		out := FormatDigest(Digest{TopUsers: users, TopGroups: groups, Self: users[3]})
		g.Assert(t, "digest_without_group", []byte(out))
	})

	t.Run("empty boards", func(t *testing.T) {
		out := FormatDigest(Digest{Self: models.LeaderboardEntry{UserID: 1, Name: "solo", Rank: 1}})
		g.Assert(t, "digest_empty_boards", []byte(out))
	})
}

type statsFixture struct {
	alice, bob, carol, dave int64
	owls, foxes             int64
}

func seedLeaderboard(t *testing.T, e *env) statsFixture {
	t.Helper()
	ctx := context.Background()

	f := statsFixture{
		alice: e.addUser(t, "alice", 120),
		bob:   e.addUser(t, "bob", 80),
		carol: e.addUser(t, "carol", 50),
		dave:  e.addUser(t, "dave", 10),
	}

	owls, err := e.chat.CreateGroup(ctx, f.alice, &models.CreateGroupRequest{Name: "Owls"})
	require.NoError(t, err)
	require.NoError(t, e.chat.JoinGroup(ctx, f.bob, owls.ID))

	foxes, err := e.chat.CreateGroup(ctx, f.carol, &models.CreateGroupRequest{Name: "Foxes"})
	require.NoError(t, err)

	f.owls, f.foxes = owls.ID, foxes.ID
	return f
}

func TestGenerateWithNoUsers(t *testing.T) {
	e := newEnv(t)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	res, err := stats.Generate(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.UsersNotified)
	assert.Zero(t, res.UserFailures)
	assert.Empty(t, e.pusher.all())
	assert.Equal(t, 0, e.count(t, `SELECT COUNT(*) FROM notifications`))
}

func TestGenerateNotifiesEveryUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := seedLeaderboard(t, e)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	res, err := stats.Generate(ctx)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 4, res.UsersNotified)
	assert.Equal(t, "Weekly stats generated and sent to all users", res.Message)

	pushes := e.pusher.all()
	require.Len(t, pushes, 4)
	for _, p := range pushes {
		assert.Equal(t, models.NotificationKindWeeklyStats, p.payload.Type)
	}

	msgFor := func(userID int64) string {
		all, err := e.notifications.ListAll(ctx, userID)
		require.NoError(t, err)
		require.Len(t, all, 1)
		return all[0].Message
	}

	alice := msgFor(f.alice)
	assert.Contains(t, alice, "1. alice - 120 XP")
	assert.Contains(t, alice, "Your rank: #1 with 120 XP")
	assert.Contains(t, alice, `Your group "Owls" is ranked #1 with 200 XP`)

	carol := msgFor(f.carol)
	assert.Contains(t, carol, "Your rank: #3 with 50 XP")
	assert.Contains(t, carol, `Your group "Foxes" is ranked #2 with 50 XP`)

	dave := msgFor(f.dave)
	assert.Contains(t, dave, "Your rank: #4 with 10 XP")
	assert.NotContains(t, dave, "Your group")
}

func TestGenerateIsolatesGroupStandingFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := seedLeaderboard(t, e)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	stats.groupStanding = func(ctx context.Context, groupID int64) (*models.GroupStanding, error) {
		if groupID == f.owls {
			return nil, errors.New("boom")
		}
		return stats.GroupStanding(ctx, groupID)
	}

	res, err := stats.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.UsersNotified)
	assert.Zero(t, res.UserFailures)

	for _, u := range []int64{f.alice, f.bob} {
		all, err := e.notifications.ListAll(ctx, u)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.NotContains(t, all[0].Message, "Your group")
		assert.Contains(t, all[0].Message, "Your rank")
	}

	carol, err := e.notifications.ListAll(ctx, f.carol)
	require.NoError(t, err)
	require.Len(t, carol, 1)
	assert.Contains(t, carol[0].Message, `Your group "Foxes"`)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	e := newEnv(t)
	seedLeaderboard(t, e)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stats.Generate(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, e.pusher.all())
}

func TestTopUsersSharesRankOnTies(t *testing.T) {
	e := newEnv(t)
	e.addUser(t, "alice", 50)
	e.addUser(t, "bob", 50)
	e.addUser(t, "carol", 20)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	top, err := stats.TopUsers(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].Rank)
	assert.Equal(t, int64(1), top[1].Rank)

	all, err := stats.RankedUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[2].Rank)
}

func TestGroupStandings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := seedLeaderboard(t, e)
	empty := e.addUser(t, "erin", 0)
	lonely, err := e.chat.CreateGroup(ctx, empty, &models.CreateGroupRequest{Name: "Empty"})
	require.NoError(t, err)
	stats := NewStatsService(e.db, e.notifications, e.pusher, 5)

	groups, err := stats.TopGroups(ctx, 5)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "Owls", groups[0].Name)
	assert.Equal(t, int64(200), groups[0].XP)

	st, err := stats.GroupStanding(ctx, f.foxes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Rank)

	st, err = stats.GroupStanding(ctx, lonely.ID)
	require.NoError(t, err)
	assert.Zero(t, st.XP)
	assert.Equal(t, int64(3), st.Rank)

	_, err = stats.GroupStanding(ctx, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
