package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/metrics"
)

// Validator is the hook into the authentication subsystem consulted at
// handshake time.
type Validator interface {
	Validate(ctx context.Context, userID int64) bool
}

// Options bound the transport behaviour of a connection.
type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	HandshakeWait  time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (o Options) withDefaults() Options {
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.HandshakeWait <= 0 {
		o.HandshakeWait = 10 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 512
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	return o
}

// socket is the subset of *websocket.Conn the connection uses; tests
// substitute a scripted fake.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// handshake is the only meaningful inbound frame: the first message binding
// the connection to a user identity.
type handshake struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

// Conn is one live transport connection. It is untrusted until the auth
// handshake binds it to a user id and registers it with the hub; until then
// it receives nothing and every non-handshake inbound frame is discarded.
type Conn struct {
	hub       *Hub
	ws        socket
	validator Validator
	opts      Options
	logger    *zap.Logger

	send chan []byte
	done chan struct{}
	once sync.Once

	// set exactly once by a successful handshake, before registration
	userID int64
	bound  bool
}

func NewConn(hub *Hub, ws socket, validator Validator, opts Options, logger *zap.Logger) *Conn {
	opts = opts.withDefaults()
	return &Conn{
		hub:       hub,
		ws:        ws,
		validator: validator,
		opts:      opts,
		logger:    logger,
		send:      make(chan []byte, opts.SendBuffer),
		done:      make(chan struct{}),
	}
}

// trySend queues data without blocking. False means the connection is gone
// or too slow to keep.
func (c *Conn) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// stop makes both pumps wind down. Idempotent; the send channel itself is
// never closed so concurrent trySend calls stay safe.
func (c *Conn) stop() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// ReadPump consumes inbound frames until the transport fails. The first
// accepted frame must be the auth handshake; a failed handshake closes the
// connection before it ever joins the registry.
func (c *Conn) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.stop()
	}()

	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.HandshakeWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if !c.bound {
			if !c.handleHandshake(data) {
				return
			}
			continue
		}
		// Push-only protocol after the bind: inbound data frames carry no
		// meaning and are drained so control frames keep flowing.
	}
}

// handleHandshake processes one pre-bind frame. Anything that is not an auth
// frame is discarded and the connection stays open (still unregistered); an
// auth frame that fails validation closes the connection for good.
func (c *Conn) handleHandshake(data []byte) bool {
	var hs handshake
	if err := json.Unmarshal(data, &hs); err != nil || hs.Type != "auth" || hs.UserID == 0 {
		c.logger.Debug("discarding pre-handshake frame")
		return true
	}

	if !c.validator.Validate(context.Background(), hs.UserID) {
		metrics.HandshakeFailures.Inc()
		c.logger.Warn("handshake rejected", zap.Int64("user_id", hs.UserID))
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
		return false
	}

	c.userID = hs.UserID
	c.bound = true
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.hub.Register(hs.UserID, c)

	// No ack frame: success is implicit, the connection simply starts
	// receiving published events.
	return true
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with pings. Any write failure tears the connection down.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.hub.Unregister(c)
		c.stop()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
