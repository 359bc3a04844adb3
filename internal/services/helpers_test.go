package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/database/dbtest"
	"github.com/tahcohcat/xpboard/internal/models"
)

type push struct {
	userID  int64
	payload models.NotificationPayload
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []push
}

func (p *recordingPusher) Push(userID int64, payload models.NotificationPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push{userID: userID, payload: payload})
}

func (p *recordingPusher) all() []push {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]push(nil), p.pushes...)
}

type env struct {
	db            *database.DB
	catalog       *Catalog
	progress      *ProgressStore
	notifications *NotificationStore
	engine        *AchievementEngine
	users         *UserService
	chat          *ChatService
	pusher        *recordingPusher
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.New(t)
	e := &env{
		db:            db,
		catalog:       NewCatalog(db),
		progress:      NewProgressStore(db),
		notifications: NewNotificationStore(db),
		pusher:        &recordingPusher{},
	}
	require.NoError(t, e.catalog.Seed(context.Background(), DefaultAchievements))

	e.engine = NewAchievementEngine(db, e.catalog, e.progress, e.notifications, e.pusher)
	e.users = NewUserService(db, e.engine)
	e.chat = NewChatService(db, e.engine)
	return e
}

// addUser inserts a bare user row, skipping registration side effects.
func (e *env) addUser(t *testing.T, name string, xp int64) int64 {
	t.Helper()

	var id int64
	err := e.db.Get(&id, `INSERT INTO users (username, password_hash, display_name, xp, created_at)
		VALUES (?, 'x', ?, ?, ?) RETURNING id`, name, name, xp, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func (e *env) count(t *testing.T, query string, args ...interface{}) int {
	t.Helper()

	var n int
	require.NoError(t, e.db.Get(&n, query, args...))
	return n
}
