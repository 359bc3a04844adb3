package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the JSON API under /api/v1, the two sockets under /ws and
// the Prometheus scrape endpoint.
func NewRouter(d Deps) *mux.Router {
	h := NewHandler(d)
	requireAuth := d.Auth.Middleware(unauthorized())
	private := func(f http.HandlerFunc) http.Handler { return requireAuth(f) }

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "ok"})
	}).Methods("GET")

	if d.NotificationSocket != nil {
		r.Handle("/ws/notifications", d.NotificationSocket)
	}
	if d.ChatSocket != nil {
		r.Handle("/ws/chat", d.ChatSocket)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public
	api.HandleFunc("/auth/register", h.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	api.HandleFunc("/achievements", h.ListAchievements).Methods("GET")
	api.HandleFunc("/leaderboard", h.Leaderboard).Methods("GET")

	// Session required
	api.Handle("/me", private(h.Me)).Methods("GET")
	api.Handle("/achievements/me", private(h.MyAchievements)).Methods("GET")

	api.Handle("/notifications", private(h.ListNotifications)).Methods("GET")
	api.Handle("/notifications/unread", private(h.UnreadNotifications)).Methods("GET")
	api.Handle("/notifications/read-all", private(h.MarkAllNotificationsRead)).Methods("PUT")
	api.Handle("/notifications/{id:[0-9]+}/read", private(h.MarkNotificationRead)).Methods("PUT")
	api.Handle("/notifications/{id:[0-9]+}", private(h.DeleteNotification)).Methods("DELETE")

	api.Handle("/groups", private(h.CreateGroup)).Methods("POST")
	api.Handle("/groups/{id:[0-9]+}/join", private(h.JoinGroup)).Methods("POST")
	api.Handle("/groups/{id:[0-9]+}/messages", private(h.GroupMessages)).Methods("GET")
	api.Handle("/groups/{id:[0-9]+}/messages", private(h.PostGroupMessage)).Methods("POST")

	api.Handle("/tests/complete", private(h.CompleteTest)).Methods("POST")

	return r
}
