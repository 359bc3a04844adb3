// Package realtime holds the live-connection side of xpboard: the
// connection registry, the notification dispatcher and the two socket
// protocols (notifications and group chat) built on gorilla/websocket.
package realtime

import (
	"sync"

	"github.com/tahcohcat/xpboard/internal/metrics"
)

// Conn is one live outbound channel.
type Conn interface {
	ID() string
	Open() bool
	Send(event string, data interface{}) error
}

// Registry maps a key (a user id, a group id) to the set of connections
// currently attached to it. It never performs I/O while holding its lock.
type Registry[K comparable] struct {
	channel string

	mu    sync.RWMutex
	conns map[K]map[string]Conn
}

// NewRegistry creates an empty registry. channel labels the live-connection gauge.
func NewRegistry[K comparable](channel string) *Registry[K] {
	return &Registry[K]{
		channel: channel,
		conns:   make(map[K]map[string]Conn),
	}
}

func (r *Registry[K]) Register(key K, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.conns[key]
	if !ok {
		bucket = make(map[string]Conn)
		r.conns[key] = bucket
	}
	if _, dup := bucket[c.ID()]; dup {
		return
	}
	bucket[c.ID()] = c
	metrics.LiveConnections.WithLabelValues(r.channel).Inc()
}

// Unregister removes c from key's set and drops the set once it is empty.
func (r *Registry[K]) Unregister(key K, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.conns[key]
	if !ok {
		return
	}
	if _, present := bucket[c.ID()]; !present {
		return
	}
	delete(bucket, c.ID())
	metrics.LiveConnections.WithLabelValues(r.channel).Dec()

	if len(bucket) == 0 {
		delete(r.conns, key)
	}
}

// ConnectionsFor returns a snapshot. Connections may close after it is taken.
func (r *Registry[K]) ConnectionsFor(key K) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.conns[key]
	out := make([]Conn, 0, len(bucket))
	for _, c := range bucket {
		out = append(out, c)
	}
	return out
}

// Keys reports how many keys currently hold at least one connection.
func (r *Registry[K]) Keys() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
