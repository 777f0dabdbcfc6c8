package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
	"github.com/edielopx/FreelanceHub-sub001/internal/metrics"
)

// Hub is the process-wide connection registry: user id -> live connections.
// It is the only shared mutable structure on the server side; one RWMutex
// serializes every change to the map-of-sets. A hub is constructed once at
// startup and injected wherever it is needed.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Conn]int64
	users  map[int64]map[*Conn]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[*Conn]int64),
		users:  make(map[int64]map[*Conn]struct{}),
		logger: logger,
	}
}

// Register adds c to the set for userID. Registering the same connection
// twice is a no-op.
func (h *Hub) Register(userID int64, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		return
	}
	h.conns[c] = userID

	set, ok := h.users[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.users[userID] = set
	}
	set[c] = struct{}{}

	metrics.LiveConnections.Inc()
	metrics.ConnectedUsers.Set(float64(len(h.users)))
	h.logger.Debug("connection registered",
		zap.Int64("user_id", userID),
		zap.Int("user_conns", len(set)),
	)
}

// Unregister removes c from whichever user owns it; the owner is looked up,
// not passed in, since a connection may die before its owner is known to the
// caller. Safe to call any number of times. The registry entry for a user
// disappears with their last connection.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	userID, ok := h.conns[c]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	if set, ok := h.users[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.users, userID)
		}
	}
	metrics.LiveConnections.Dec()
	metrics.ConnectedUsers.Set(float64(len(h.users)))
	h.mu.Unlock()

	c.stop()
	h.logger.Debug("connection unregistered", zap.Int64("user_id", userID))
}

// Publish fans n out to every live connection of userID. A failed send on
// one connection unregisters that connection and nothing else; no retry, no
// queuing. A user with zero connections is a silent no-op.
func (h *Hub) Publish(userID int64, n *domain.Notification) {
	data, err := json.Marshal(n.Frame())
	if err != nil {
		h.logger.Error("failed to marshal notification frame", zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues(string(n.Kind)).Inc()

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []*Conn
	for _, c := range targets {
		if !c.trySend(data) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		metrics.SendFailures.Inc()
		h.logger.Warn("dropping connection on send failure", zap.Int64("user_id", userID))
		h.Unregister(c)
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// UserConnectionCount returns the number of live connections for userID.
func (h *Hub) UserConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
