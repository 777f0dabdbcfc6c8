// Package channel implements the client side of the realtime notification
// protocol: one session per authenticated user owning one WebSocket
// connection, modelled as an explicit state machine instead of loose
// onopen/onmessage/onclose callbacks.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle position of a Session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Event is one decoded server push.
type Event struct {
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Message    string          `json:"message"`
	SenderID   int64           `json:"senderId,omitempty"`
	ReceiverID int64           `json:"receiverId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Handler consumes decoded events one at a time, in arrival order.
type Handler interface {
	HandleEvent(e Event)
}

// Config configures a Session.
type Config struct {
	URL    string
	UserID int64

	Handler Handler     // required
	Dialer  Dialer      // defaults to a WebSocketDialer
	Logger  *zap.Logger // defaults to zap.NewNop()

	// Reconnect enables Run's retry loop with exponential backoff.
	Reconnect  bool
	MinBackoff time.Duration // default 500ms
	MaxBackoff time.Duration // default 30s

	// ConfirmWait promotes Authenticating to Live when the transport has
	// survived this long after the handshake without inbound traffic.
	// The server sends no ack frame; a quiet but open connection is a
	// successful one. Negative disables the timer (first read still
	// promotes). Default 2s.
	ConfirmWait time.Duration

	// OnStateChange is invoked synchronously on every transition; it must
	// not call back into the session.
	OnStateChange func(State)
}

type authFrame struct {
	Type   string `json:"type"`
	UserID int64  `json:"userId"`
}

var (
	ErrSessionClosed    = errors.New("channel: session closed")
	ErrAlreadyConnected = errors.New("channel: session already connected")
)

// Session owns one transport connection's lifecycle. Exactly one session
// exists per authenticated user; logging out closes it for good and a new
// user gets a fresh session.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	state  State
	tr     Transport
	gen    int           // connection generation, so stale read loops detect replacement
	notify chan struct{} // nudged on every state change, consumed by Run

	// Serializes handler calls. Close acquires it to fence out in-flight
	// dispatch before the store is discarded or rebound.
	dispatchMu sync.Mutex
}

func NewSession(cfg Config) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = &WebSocketDialer{HandshakeTimeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.ConfirmWait == 0 {
		cfg.ConfirmWait = 2 * time.Second
	}
	return &Session{
		cfg:    cfg,
		logger: cfg.Logger,
		state:  StateDisconnected,
		notify: make(chan struct{}, 1),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the session is live.
func (s *Session) Connected() bool {
	return s.State() == StateLive
}

// Connect performs one connect → authenticate attempt and starts the read
// loop. It returns once the session is Authenticating; promotion to Live
// happens on the first inbound read, or quietly after ConfirmWait.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrSessionClosed
	case StateConnecting, StateAuthenticating, StateLive:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.gen++
	gen := s.gen
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	tr, err := s.cfg.Dialer.Dial(ctx, s.cfg.URL)
	if err != nil {
		s.transitionIfCurrent(gen, StateDisconnected)
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Logged out mid-dial; the fresh transport is unwanted.
		s.mu.Unlock()
		_ = tr.Close()
		return ErrSessionClosed
	}
	s.tr = tr
	s.setStateLocked(StateAuthenticating)
	s.mu.Unlock()

	if err := tr.WriteJSON(authFrame{Type: "auth", UserID: s.cfg.UserID}); err != nil {
		_ = tr.Close()
		s.transitionIfCurrent(gen, StateDisconnected)
		return err
	}

	if s.cfg.ConfirmWait > 0 {
		time.AfterFunc(s.cfg.ConfirmWait, func() { s.promoteIfAuthenticating(gen) })
	}
	go s.readLoop(gen, tr)
	return nil
}

// Run drives the session with the configured reconnect policy until ctx is
// cancelled or the session is closed. With Reconnect disabled it makes one
// attempt and returns when that connection drops.
func (s *Session) Run(ctx context.Context) error {
	backoff := s.cfg.MinBackoff
	for {
		err := s.Connect(ctx)
		if errors.Is(err, ErrSessionClosed) {
			return err
		}
		if err == nil || errors.Is(err, ErrAlreadyConnected) {
			backoff = s.cfg.MinBackoff
			s.awaitDisconnect(ctx)
		}
		if s.State() == StateClosed {
			return ErrSessionClosed
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !s.cfg.Reconnect {
			return err
		}

		s.logger.Debug("reconnecting", zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

// Close tears the session down for good (logout or identity change). After
// Close returns, no further events reach the handler; the session cannot be
// reconnected and a new user must construct a new session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	tr := s.tr
	s.tr = nil
	s.setStateLocked(StateClosed)
	s.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}

	// Barrier: wait out any dispatch already in the handler. New dispatch
	// attempts observe StateClosed and drop the event.
	s.dispatchMu.Lock()
	s.dispatchMu.Unlock() //nolint:staticcheck // empty critical section is the fence
}

func (s *Session) readLoop(gen int, tr Transport) {
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			_ = tr.Close()
			s.transitionIfCurrent(gen, StateDisconnected)
			return
		}

		// Any inbound traffic after the handshake confirms the bind.
		s.promoteIfAuthenticating(gen)

		var e Event
		if err := json.Unmarshal(data, &e); err != nil || e.Type == "" {
			// Malformed frames are not fatal to the connection.
			s.logger.Warn("discarding malformed frame", zap.Error(err))
			continue
		}
		s.dispatch(gen, e)
	}
}

// dispatch hands e to the handler unless the session was closed or the
// connection replaced underneath this read loop.
func (s *Session) dispatch(gen int, e Event) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	ok := s.gen == gen && s.state != StateClosed
	s.mu.Unlock()
	if !ok {
		return
	}
	s.cfg.Handler.HandleEvent(e)
}

func (s *Session) awaitDisconnect(ctx context.Context) {
	for {
		switch s.State() {
		case StateDisconnected, StateClosed:
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}
	}
}

func (s *Session) transitionIfCurrent(gen int, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == StateClosed {
		return
	}
	s.setStateLocked(st)
}

func (s *Session) promoteIfAuthenticating(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateAuthenticating {
		return
	}
	s.setStateLocked(StateLive)
}

func (s *Session) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.state = st
	s.logger.Debug("session state", zap.String("state", st.String()))
	select {
	case s.notify <- struct{}{}:
	default:
	}
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}
