package services

import (
	"fmt"
	"time"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/models"
)

// Pusher delivers a payload to whatever live connections a user holds.
// Implementations must not block on slow peers and must not fail: the
// persisted notification is the durable copy.
type Pusher interface {
	Push(userID int64, payload models.NotificationPayload)
}

type noopPusher struct{}

func (noopPusher) Push(int64, models.NotificationPayload) {}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func requireUser(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("user id %d: %w", userID, apperr.ErrValidation)
	}
	return nil
}
