package realtime

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/validation"
)

// Inbound events.
const (
	EventStartNotifications = "startNotifications"
	EventMarkAsRead         = "markAsRead"
	EventJoinGroup          = "joinGroup"
	EventSendMessage        = "sendMessage"
)

// Outbound events.
const (
	EventNotificationHistory      = "notificationHistory"
	EventNewNotification          = "newNotification"
	EventNotificationMarkedAsRead = "notificationMarkedAsRead"
	EventChatHistory              = "chatHistory"
	EventNewMessage               = "newMessage"
	EventError                    = "error"
)

// Envelope is the frame every socket message travels in.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type errorData struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

type startNotificationsData struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type markAsReadData struct {
	NotificationID int64 `json:"notification_id" validate:"required,gt=0"`
}

type markedAsReadData struct {
	ID int64 `json:"id"`
}

type joinGroupData struct {
	GroupID int64 `json:"group_id" validate:"required,gt=0"`
	UserID  int64 `json:"user_id" validate:"required,gt=0"`
}

type sendMessageData struct {
	Message string `json:"message" validate:"required"`
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("malformed envelope: %w", apperr.ErrValidation)
	}
	if env.Event == "" {
		return env, fmt.Errorf("envelope has no event: %w", apperr.ErrValidation)
	}
	return env, nil
}

// decodeData unmarshals an envelope payload into v and validates it.
func decodeData(env Envelope, v interface{}) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data: %w", env.Event, apperr.ErrValidation)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%s: malformed data: %w", env.Event, apperr.ErrValidation)
	}
	return validation.Struct(v)
}

func encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}
