package realtime

import (
	"errors"

	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/metrics"
	"github.com/tahcohcat/xpboard/internal/models"
)

// Dispatcher pushes notifications to every live connection a user holds.
// It satisfies services.Pusher.
type Dispatcher struct {
	registry *Registry[int64]
	log      *logger.Log
}

func NewDispatcher(registry *Registry[int64]) *Dispatcher {
	return &Dispatcher{registry: registry, log: logger.Named("dispatcher")}
}

// Push never blocks on a peer and never fails. Users without connections
// simply get nothing; the stored notification is fetched on reconnect.
func (d *Dispatcher) Push(userID int64, payload models.NotificationPayload) {
	sent := deliver(d.log.With("user_id", userID), d.registry.ConnectionsFor(userID), EventNewNotification, payload)
	if sent > 0 {
		d.log.With("user_id", userID).With("connections", sent).Debug("notification pushed")
	}
}

// deliver sends to each open connection, skipping dead or saturated ones.
func deliver(log *logger.Log, conns []Conn, event string, data interface{}) int {
	sent := 0
	for _, c := range conns {
		if !c.Open() {
			metrics.DispatchDeliveries.WithLabelValues("closed").Inc()
			continue
		}

		err := c.Send(event, data)
		switch {
		case err == nil:
			sent++
			metrics.DispatchDeliveries.WithLabelValues("sent").Inc()
		case errors.Is(err, ErrSendBufferFull):
			metrics.DispatchDeliveries.WithLabelValues("dropped").Inc()
			log.With("conn_id", c.ID()).Debug("send buffer full, dropping event")
		default:
			metrics.DispatchDeliveries.WithLabelValues("closed").Inc()
			log.With("conn_id", c.ID()).WithError(err).Debug("skipping connection")
		}
	}
	return sent
}
