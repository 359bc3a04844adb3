package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/models"
)

// NotificationReader is the slice of the notification store the socket needs.
type NotificationReader interface {
	ListUnread(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

// Identifier returns the user an HTTP request is authenticated as, if any.
type Identifier func(r *http.Request) (int64, bool)

// NotificationSocket serves the notification channel. A connection becomes
// addressable by the dispatcher once it sends startNotifications.
type NotificationSocket struct {
	hub      *Hub
	registry *Registry[int64]
	store    NotificationReader
	identify Identifier
	log      *logger.Log
}

// NewNotificationSocket wires the channel. identify may be nil; when set and
// the request carries a session, the handshake user must match it.
func NewNotificationSocket(hub *Hub, registry *Registry[int64], store NotificationReader, identify Identifier) *NotificationSocket {
	return &NotificationSocket{
		hub:      hub,
		registry: registry,
		store:    store,
		identify: identify,
		log:      logger.Named("notification-socket"),
	}
}

func (s *NotificationSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var sessionUser int64
	if s.identify != nil {
		if id, ok := s.identify(r); ok {
			sessionUser = id
		}
	}
	s.hub.serve(w, r, "notifications", func(c *Client) session {
		return &notificationSession{socket: s, client: c, sessionUser: sessionUser}
	})
}

type notificationSession struct {
	socket      *NotificationSocket
	client      *Client
	sessionUser int64
	userID      int64
}

func (n *notificationSession) Handle(ctx context.Context, env Envelope) {
	var err error
	switch env.Event {
	case EventStartNotifications:
		err = n.start(ctx, env)
	case EventMarkAsRead:
		err = n.markAsRead(ctx, env)
	default:
		err = fmt.Errorf("unknown event %q: %w", env.Event, apperr.ErrValidation)
	}
	if err == nil {
		return
	}

	log := n.socket.log.With("event", env.Event).With("conn_id", n.client.ID()).WithError(err)
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden) {
		log.Warn("rejected notification event")
	} else {
		log.Error("notification event failed")
	}
	n.client.sendError(env.Event, err)
}

func (n *notificationSession) start(ctx context.Context, env Envelope) error {
	var data startNotificationsData
	if err := decodeData(env, &data); err != nil {
		return err
	}
	if n.sessionUser != 0 && n.sessionUser != data.UserID {
		return fmt.Errorf("socket is authenticated as another user: %w", apperr.ErrForbidden)
	}

	if n.userID != 0 && n.userID != data.UserID {
		n.socket.registry.Unregister(n.userID, n.client)
	}
	n.userID = data.UserID
	n.socket.registry.Register(n.userID, n.client)

	unread, err := n.socket.store.ListUnread(ctx, n.userID)
	if err != nil {
		return err
	}
	return n.client.Send(EventNotificationHistory, unread)
}

func (n *notificationSession) markAsRead(ctx context.Context, env Envelope) error {
	if n.userID == 0 {
		return fmt.Errorf("send %s first: %w", EventStartNotifications, apperr.ErrValidation)
	}

	var data markAsReadData
	if err := decodeData(env, &data); err != nil {
		return err
	}
	if err := n.socket.store.MarkRead(ctx, data.NotificationID, n.userID); err != nil {
		return err
	}
	return n.client.Send(EventNotificationMarkedAsRead, markedAsReadData{ID: data.NotificationID})
}

func (n *notificationSession) Close() {
	if n.userID != 0 {
		n.socket.registry.Unregister(n.userID, n.client)
	}
}
