package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/auth"
	"github.com/tahcohcat/xpboard/internal/models"
	"github.com/tahcohcat/xpboard/internal/realtime"
	"github.com/tahcohcat/xpboard/internal/services"
)

const defaultLeaderboardLimit = 10

// Deps are the collaborators the HTTP layer delegates to.
type Deps struct {
	Auth          *auth.Manager
	Users         *services.UserService
	Engine        *services.AchievementEngine
	Catalog       *services.Catalog
	Notifications *services.NotificationStore
	Chat          *services.ChatService
	Quiz          *services.QuizService
	Stats         *services.StatsService

	NotificationSocket *realtime.NotificationSocket
	ChatSocket         *realtime.ChatSocket
}

type Handler struct {
	Deps
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	user, err := h.Users.CreateUser(r.Context(), &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Auth.Login(w, r, user.ID); err != nil {
		fail(w, r, fmt.Errorf("save session: %w", err))
		return
	}
	created(w, user)
}

// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Auth.Login(w, r, user.ID); err != nil {
		fail(w, r, fmt.Errorf("save session: %w", err))
		return
	}
	ok(w, user)
}

// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(w, r); err != nil {
		fail(w, r, fmt.Errorf("clear session: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Logged out"})
}

// GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetUserByID(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, user)
}

// GET /api/v1/achievements
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	all, err := h.Catalog.All(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, all)
}

// GET /api/v1/achievements/me
func (h *Handler) MyAchievements(w http.ResponseWriter, r *http.Request) {
	views, err := h.Engine.GetUserAchievements(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, views)
}

// GET /api/v1/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.Notifications.ListAll(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, list)
}

// GET /api/v1/notifications/unread
func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.Notifications.ListUnread(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, list)
}

// PUT /api/v1/notifications/{id}/read
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Notifications.MarkRead(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]int64{"id": id})
}

// PUT /api/v1/notifications/read-all
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notifications.MarkAllRead(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]int64{"count": n})
}

// DELETE /api/v1/notifications/{id}
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Notifications.Delete(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]int64{"id": id})
}

// POST /api/v1/groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	group, err := h.Chat.CreateGroup(r.Context(), auth.UserIDFromContext(r.Context()), &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	created(w, group)
}

// POST /api/v1/groups/{id}/join
func (h *Handler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Chat.JoinGroup(r.Context(), auth.UserIDFromContext(r.Context()), groupID); err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]int64{"group_id": groupID})
}

// GET /api/v1/groups/{id}/messages
func (h *Handler) GroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Chat.CheckMembership(r.Context(), auth.UserIDFromContext(r.Context()), groupID); err != nil {
		fail(w, r, err)
		return
	}

	history, err := h.Chat.History(r.Context(), groupID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, history)
}

// POST /api/v1/groups/{id}/messages
func (h *Handler) PostGroupMessage(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}

	var req models.PostMessageRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	msg, err := h.Chat.PostMessage(r.Context(), auth.UserIDFromContext(r.Context()), groupID, &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	if h.ChatSocket != nil {
		h.ChatSocket.Broadcast(msg)
	}
	created(w, msg)
}

// POST /api/v1/tests/complete
func (h *Handler) CompleteTest(w http.ResponseWriter, r *http.Request) {
	var req models.TestCompletionRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.Quiz.CompleteTest(r.Context(), auth.UserIDFromContext(r.Context()), &req)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, res)
}

// GET /api/v1/leaderboard?limit=N
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		fail(w, r, err)
		return
	}

	users, err := h.Stats.TopUsers(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	groups, err := h.Stats.TopGroups(r.Context(), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, map[string]interface{}{"users": users, "groups": groups})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %w", name, apperr.ErrValidation)
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLeaderboardLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 100 {
		return 0, fmt.Errorf("limit must be between 1 and 100: %w", apperr.ErrValidation)
	}
	return n, nil
}
