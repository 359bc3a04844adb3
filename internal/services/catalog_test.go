package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

func TestCatalogSeedIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.catalog.Seed(ctx, DefaultAchievements))

	all, err := e.catalog.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultAchievements))
}

func TestCatalogSeedRejectsBadDefinition(t *testing.T) {
	e := newEnv(t)

	err := e.catalog.Seed(context.Background(), []models.Achievement{{ID: "zero", ConditionType: "x", ConditionValue: 0}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCatalogAllOrdering(t *testing.T) {
	e := newEnv(t)

	all, err := e.catalog.All(context.Background())
	require.NoError(t, err)

	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.ConditionType == cur.ConditionType {
			assert.LessOrEqual(t, prev.ConditionValue, cur.ConditionValue)
		} else {
			assert.Less(t, prev.ConditionType, cur.ConditionType)
		}
	}
}

func TestCatalogConditionTypes(t *testing.T) {
	e := newEnv(t)

	types, err := e.catalog.ConditionTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{models.ConditionLoginCount, models.ConditionMessageSent, models.ConditionTestCompleted}, types)
}

func TestCatalogGet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.catalog.Get(ctx, "regular")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ConditionValue)

	_, err = e.catalog.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCatalogUnclaimedSkipsUnlocked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.addUser(t, "alice", 0)

	got, err := e.catalog.Unclaimed(ctx, e.db, u, models.ConditionLoginCount, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "welcome-back", got[0].ID)
	assert.Equal(t, "regular", got[1].ID)

	_, err = e.engine.RecordProgress(ctx, u, models.ConditionLoginCount, 1)
	require.NoError(t, err)

	got, err = e.catalog.Unclaimed(ctx, e.db, u, models.ConditionLoginCount, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "regular", got[0].ID)
}
