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

// ChatRoom is what the chat socket needs from the chat service.
type ChatRoom interface {
	CheckMembership(ctx context.Context, userID, groupID int64) error
	History(ctx context.Context, groupID int64) ([]models.ChatMessage, error)
	PostMessage(ctx context.Context, userID, groupID int64, req *models.PostMessageRequest) (*models.ChatMessage, error)
}

// ChatSocket serves group chat. Each group is a room in its own registry,
// keyed by group id.
type ChatSocket struct {
	hub      *Hub
	rooms    *Registry[int64]
	chat     ChatRoom
	identify Identifier
	log      *logger.Log
}

func NewChatSocket(hub *Hub, chat ChatRoom, identify Identifier) *ChatSocket {
	return &ChatSocket{
		hub:      hub,
		rooms:    NewRegistry[int64]("chat"),
		chat:     chat,
		identify: identify,
		log:      logger.Named("chat-socket"),
	}
}

// Broadcast sends a message to everyone in its group's room. The HTTP post
// path uses it too, so both entry points reach the same listeners.
func (s *ChatSocket) Broadcast(msg *models.ChatMessage) int {
	return deliver(s.log.With("group_id", msg.GroupID), s.rooms.ConnectionsFor(msg.GroupID), EventNewMessage, msg)
}

func (s *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var sessionUser int64
	if s.identify != nil {
		if id, ok := s.identify(r); ok {
			sessionUser = id
		}
	}
	s.hub.serve(w, r, "chat", func(c *Client) session {
		return &chatSession{socket: s, client: c, sessionUser: sessionUser}
	})
}

type chatSession struct {
	socket      *ChatSocket
	client      *Client
	sessionUser int64
	userID      int64
	groupID     int64
}

func (cs *chatSession) Handle(ctx context.Context, env Envelope) {
	var err error
	switch env.Event {
	case EventJoinGroup:
		err = cs.join(ctx, env)
	case EventSendMessage:
		err = cs.sendMessage(ctx, env)
	default:
		err = fmt.Errorf("unknown event %q: %w", env.Event, apperr.ErrValidation)
	}
	if err == nil {
		return
	}

	log := cs.socket.log.With("event", env.Event).With("conn_id", cs.client.ID()).WithError(err)
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrForbidden) {
		log.Warn("rejected chat event")
	} else {
		log.Error("chat event failed")
	}
	cs.client.sendError(env.Event, err)
}

func (cs *chatSession) join(ctx context.Context, env Envelope) error {
	var data joinGroupData
	if err := decodeData(env, &data); err != nil {
		return err
	}
	if cs.sessionUser != 0 && cs.sessionUser != data.UserID {
		return fmt.Errorf("socket is authenticated as another user: %w", apperr.ErrForbidden)
	}
	if err := cs.socket.chat.CheckMembership(ctx, data.UserID, data.GroupID); err != nil {
		return err
	}

	history, err := cs.socket.chat.History(ctx, data.GroupID)
	if err != nil {
		return err
	}

	cs.leave()
	cs.userID, cs.groupID = data.UserID, data.GroupID
	cs.socket.rooms.Register(cs.groupID, cs.client)

	return cs.client.Send(EventChatHistory, history)
}

func (cs *chatSession) sendMessage(ctx context.Context, env Envelope) error {
	if cs.groupID == 0 {
		return fmt.Errorf("join a group first: %w", apperr.ErrValidation)
	}

	var data sendMessageData
	if err := decodeData(env, &data); err != nil {
		return err
	}

	msg, err := cs.socket.chat.PostMessage(ctx, cs.userID, cs.groupID, &models.PostMessageRequest{Message: data.Message})
	if err != nil {
		return err
	}
	cs.socket.Broadcast(msg)
	return nil
}

func (cs *chatSession) leave() {
	if cs.groupID != 0 {
		cs.socket.rooms.Unregister(cs.groupID, cs.client)
	}
}

func (cs *chatSession) Close() {
	cs.leave()
}
