package auth

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/tahcohcat/xpboard/config"
)

const userIDKey = "user_id"

type ctxKey struct{}

// Manager owns the cookie store that carries the logged-in user id.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

func NewManager(cfg config.AuthConfig) *Manager {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: cfg.SessionName}
}

// Login stores userID in the session cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, _ := m.store.Get(r, m.name)
	session.Values[userIDKey] = userID
	return session.Save(r, w)
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	delete(session.Values, userIDKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Identify reports the user the request's session belongs to. A missing or
// tampered cookie yields false.
func (m *Manager) Identify(r *http.Request) (int64, bool) {
	session, err := m.store.Get(r, m.name)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[userIDKey].(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

// Middleware rejects requests without a session and stores the user id in
// the request context.
func (m *Manager) Middleware(unauthorized http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := m.Identify(r)
			if !ok {
				unauthorized.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserIDFromContext returns 0 when the request was not authenticated.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxKey{}).(int64)
	return id
}
