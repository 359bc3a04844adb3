package main

import (
	"context"
	"fmt"

	"github.com/tahcohcat/xpboard/config"
	"github.com/tahcohcat/xpboard/internal/api"
	"github.com/tahcohcat/xpboard/internal/auth"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/realtime"
	"github.com/tahcohcat/xpboard/internal/scheduler"
	"github.com/tahcohcat/xpboard/internal/services"
)

// app is the fully wired process: one registry shared by the dispatcher and
// the notification socket, one hub owning every socket.
type app struct {
	cfg *config.Config
	db  *database.DB

	catalog   *services.Catalog
	stats     *services.StatsService
	hub       *realtime.Hub
	scheduler *scheduler.Scheduler
	server    *api.Server
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.NewDB(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	weekday, err := cfg.Stats.ParseWeekday()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	loc, err := cfg.Stats.Location()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid stats.timezone: %w", err)
	}

	registry := realtime.NewRegistry[int64]("notifications")
	dispatcher := realtime.NewDispatcher(registry)

	catalog := services.NewCatalog(db)
	notifications := services.NewNotificationStore(db)
	engine := services.NewAchievementEngine(db, catalog, services.NewProgressStore(db), notifications, dispatcher)
	users := services.NewUserService(db, engine)
	chat := services.NewChatService(db, engine)
	stats := services.NewStatsService(db, notifications, dispatcher, cfg.Stats.TopN)

	hub := realtime.NewHub(realtime.HubConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Client: realtime.ClientOptions{
			SendBuffer:        cfg.Socket.SendBuffer,
			MessagesPerSecond: cfg.Socket.MessagesPerSecond,
			Burst:             cfg.Socket.Burst,
		},
	})
	sessions := auth.NewManager(cfg.Auth)

	router := api.NewRouter(api.Deps{
		Auth:               sessions,
		Users:              users,
		Engine:             engine,
		Catalog:            catalog,
		Notifications:      notifications,
		Chat:               chat,
		Quiz:               services.NewQuizService(users, engine),
		Stats:              stats,
		NotificationSocket: realtime.NewNotificationSocket(hub, registry, notifications, sessions.Identify),
		ChatSocket:         realtime.NewChatSocket(hub, chat, sessions.Identify),
	})

	sched := scheduler.New(stats, scheduler.Config{
		TestMode:     cfg.Stats.TestMode,
		TestInterval: cfg.Stats.TestInterval,
		Weekday:      weekday,
		Location:     loc,
		MaxWait:      cfg.Stats.MaxWait,
	})

	return &app{
		cfg:       cfg,
		db:        db,
		catalog:   catalog,
		stats:     stats,
		hub:       hub,
		scheduler: sched,
		server:    api.NewServer(cfg.Server, router),
	}, nil
}

func (a *app) seed(ctx context.Context) error {
	if err := a.catalog.Seed(ctx, services.DefaultAchievements); err != nil {
		return fmt.Errorf("seed achievements: %w", err)
	}
	return nil
}

func (a *app) Close() error {
	return a.db.Close()
}
