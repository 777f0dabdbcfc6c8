package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
)

type fakeWrite struct {
	messageType int
	data        []byte
}

// fakeSocket is a scripted stand-in for *websocket.Conn: ReadMessage pops
// queued inbound frames and errors when they run out.
type fakeSocket struct {
	mu      sync.Mutex
	inbound [][]byte
	writes  []fakeWrite
	closed  bool
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || len(f.inbound) == 0 {
		return 0, nil, errors.New("fake socket exhausted")
	}
	data := f.inbound[0]
	f.inbound = f.inbound[1:]
	return 1, data, nil
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fake socket closed")
	}
	f.writes = append(f.writes, fakeWrite{messageType: messageType, data: data})
	return nil
}

func (f *fakeSocket) SetReadLimit(int64)                {}
func (f *fakeSocket) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeSocket) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeSocket) SetPongHandler(func(string) error) {}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeValidator struct {
	allow func(userID int64) bool
}

func (v *fakeValidator) Validate(_ context.Context, userID int64) bool {
	return v.allow(userID)
}

func allowAll() *fakeValidator {
	return &fakeValidator{allow: func(int64) bool { return true }}
}

func newTestConn(hub *Hub, buffer int) *Conn {
	return NewConn(hub, &fakeSocket{}, allowAll(), Options{SendBuffer: buffer}, zap.NewNop())
}

func receiveFrame(t *testing.T, c *Conn) *domain.Frame {
	t.Helper()
	select {
	case data := <-c.send:
		var frame domain.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		return &frame
	default:
		t.Fatal("expected a queued frame")
		return nil
	}
}

func testNotification(kind domain.Kind) *domain.Notification {
	return &domain.Notification{
		Kind:       kind,
		Title:      "New proposal",
		Body:       "You received a proposal",
		SenderID:   7,
		ReceiverID: 42,
		OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Payload:    map[string]interface{}{"jobId": 3},
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestConn(hub, 4)

	hub.Register(42, c)
	hub.Register(42, c)

	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Equal(t, 1, hub.UserConnectionCount(42))
}

func TestUnregisterIsConvergent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestConn(hub, 4)
	hub.Register(42, c)

	hub.Unregister(c)
	hub.Unregister(c) // e.g. once from a read failure and once from a write failure

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.UserConnectionCount(42))
}

func TestUnregisterLastConnectionRemovesEntry(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c1 := newTestConn(hub, 4)
	c2 := newTestConn(hub, 4)
	hub.Register(42, c1)
	hub.Register(42, c2)

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.UserConnectionCount(42))

	hub.Unregister(c2)
	assert.Equal(t, 0, hub.UserConnectionCount(42))
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestPublishFansOutToAllUserConnections(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c1 := newTestConn(hub, 4)
	c2 := newTestConn(hub, 4)
	other := newTestConn(hub, 4)
	hub.Register(42, c1)
	hub.Register(42, c2)
	hub.Register(99, other)

	hub.Publish(42, testNotification(domain.KindProposal))

	for _, c := range []*Conn{c1, c2} {
		frame := receiveFrame(t, c)
		assert.Equal(t, "proposal", frame.Type)
		assert.Equal(t, "New proposal", frame.Title)
		assert.Equal(t, "You received a proposal", frame.Message)
		assert.Equal(t, int64(7), frame.SenderID)
		assert.Equal(t, int64(42), frame.ReceiverID)
		assert.Equal(t, "2024-06-01T12:00:00Z", frame.Timestamp)
	}

	select {
	case <-other.send:
		t.Fatal("frame leaked to another user's connection")
	default:
	}
}

func TestPublishSendFailureIsIsolated(t *testing.T) {
	hub := NewHub(zap.NewNop())
	healthy := newTestConn(hub, 4)
	stuck := newTestConn(hub, 1)
	hub.Register(42, healthy)
	hub.Register(42, stuck)

	// Fill the stuck connection's outbound queue so the next send fails.
	require.True(t, stuck.trySend([]byte("backlog")))

	hub.Publish(42, testNotification(domain.KindMessage))

	frame := receiveFrame(t, healthy)
	assert.Equal(t, "message", frame.Type)

	assert.Equal(t, 1, hub.UserConnectionCount(42), "failed connection should be unregistered")
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestPublishToUnknownUserIsANoOp(t *testing.T) {
	hub := NewHub(zap.NewNop())
	assert.NotPanics(t, func() {
		hub.Publish(42, testNotification(domain.KindJob))
	})
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestTrySendAfterStopFails(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestConn(hub, 4)
	c.stop()
	assert.False(t, c.trySend([]byte("late")))
}
