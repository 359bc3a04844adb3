package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

func TestCreateUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.users.CreateUser(ctx, &models.CreateUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.DisplayName)
	assert.NotEqual(t, "secret1", user.Password)

	records, err := e.progress.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, records, 3, "progress counters are initialized on registration")
}

func TestCreateUserDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.CreateUser(ctx, &models.CreateUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = e.users.CreateUser(ctx, &models.CreateUserRequest{Username: "alice", Password: "secret2"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateUserValidates(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.CreateUser(context.Background(), &models.CreateUserRequest{Username: "al", Password: "1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAuthenticateRecordsLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created, err := e.users.CreateUser(ctx, &models.CreateUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	user, err := e.users.Authenticate(ctx, &models.LoginRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	rec, err := e.progress.Get(ctx, user.ID, models.ConditionLoginCount)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.CurrentValue)

	// First login unlocks "welcome-back".
	unread, err := e.notifications.ListUnread(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Contains(t, unread[0].Message, "Welcome Back")

	reloaded, err := e.users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, reloaded.LastLoginAt)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.CreateUser(ctx, &models.CreateUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = e.users.Authenticate(ctx, &models.LoginRequest{Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = e.users.Authenticate(ctx, &models.LoginRequest{Username: "nobody", Password: "secret1"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAwardXP(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.addUser(t, "alice", 10)

	require.NoError(t, e.users.AwardXP(ctx, u, 15))

	user, err := e.users.GetUserByID(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(25), user.XP)

	assert.ErrorIs(t, e.users.AwardXP(ctx, 9999, 5), apperr.ErrNotFound)
	assert.ErrorIs(t, e.users.AwardXP(ctx, u, -1), apperr.ErrValidation)
}
