package realtime

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tahcohcat/xpboard/internal/logger"
)

// session is the per-connection protocol state machine. Handle is only
// ever called from the connection's read goroutine.
type session interface {
	Handle(ctx context.Context, env Envelope)
	Close()
}

// HubConfig configures socket upgrades. An empty AllowedOrigins accepts any origin.
type HubConfig struct {
	AllowedOrigins []string
	Client         ClientOptions
}

// Hub upgrades HTTP requests to sockets and owns every client it created,
// so shutdown can close them all. It runs as a supervised service.
type Hub struct {
	upgrader websocket.Upgrader
	opts     ClientOptions
	log      *logger.Log

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		opts:    cfg.Client,
		log:     logger.Named("hub"),
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Serve blocks until ctx is cancelled, then closes every client.
func (h *Hub) Serve(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()

	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.log.With("clients", len(clients)).Info("closed all sockets")
	return ctx.Err()
}

func (h *Hub) String() string {
	return "realtime-hub"
}

// ClientCount reports the number of open sockets.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// serve upgrades the request and runs the connection until it ends.
// newSession builds the protocol state for the new client.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, channel string, newSession func(*Client) session) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := newClient(conn, channel, h.opts)
	if !h.add(c) {
		c.Close()
		_ = conn.Close()
		return
	}

	s := newSession(c)
	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.Close()
		h.remove(c)
		c.Close()
	}()

	go c.writePump()
	c.log.Debug("socket connected")
	c.readPump(ctx, s.Handle)
	c.log.Debug("socket disconnected")
}

func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}
