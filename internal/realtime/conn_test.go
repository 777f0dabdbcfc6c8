package realtime

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandshakeBindsAndRegisters(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := NewConn(hub, &fakeSocket{}, allowAll(), Options{}, zap.NewNop())

	ok := c.handleHandshake([]byte(`{"type":"auth","userId":42}`))

	require.True(t, ok)
	assert.True(t, c.bound)
	assert.Equal(t, int64(42), c.userID)
	assert.Equal(t, 1, hub.UserConnectionCount(42))
}

func TestHandshakeRejectionClosesWithPolicyViolation(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ws := &fakeSocket{}
	deny := &fakeValidator{allow: func(int64) bool { return false }}
	c := NewConn(hub, ws, deny, Options{}, zap.NewNop())

	ok := c.handleHandshake([]byte(`{"type":"auth","userId":42}`))

	require.False(t, ok)
	assert.False(t, c.bound)
	assert.Equal(t, 0, hub.ConnectionCount(), "rejected connection must never join the registry")

	require.Len(t, ws.writes, 1)
	assert.Equal(t, websocket.CloseMessage, ws.writes[0].messageType)
	expected := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed")
	assert.Equal(t, expected, ws.writes[0].data)
}

func TestPreHandshakeJunkIsDiscarded(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := NewConn(hub, &fakeSocket{}, allowAll(), Options{}, zap.NewNop())

	// Neither malformed JSON, unknown types, a missing userId nor a zero
	// userId should bind or close the connection.
	for _, frame := range []string{
		`not json at all`,
		`{"type":"ping"}`,
		`{"type":"auth"}`,
		`{"type":"auth","userId":0}`,
	} {
		ok := c.handleHandshake([]byte(frame))
		assert.True(t, ok, "frame %q should be discarded, not fatal", frame)
		assert.False(t, c.bound)
	}
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestReadPumpHandshakeThenEOFUnregisters(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ws := &fakeSocket{inbound: [][]byte{
		[]byte(`{"type":"auth","userId":42}`),
	}}
	c := NewConn(hub, ws, allowAll(), Options{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		c.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReadPump did not return")
	}

	assert.Equal(t, 0, hub.ConnectionCount(), "dead connection must leave the registry")
	assert.False(t, c.trySend([]byte("late")), "stopped connection must refuse sends")
}

func TestReadPumpDrainsPostBindFrames(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ws := &fakeSocket{inbound: [][]byte{
		[]byte(`{"type":"auth","userId":42}`),
		[]byte(`{"type":"auth","userId":7}`), // second handshake must not rebind
		[]byte(`anything else`),
	}}
	c := NewConn(hub, ws, allowAll(), Options{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		c.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReadPump did not return")
	}

	assert.Equal(t, int64(42), c.userID, "identity is bound exactly once")
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 10*time.Second, o.WriteWait)
	assert.Equal(t, 60*time.Second, o.PongWait)
	assert.Equal(t, 10*time.Second, o.HandshakeWait)
	assert.Equal(t, int64(512), o.MaxMessageSize)
	assert.Equal(t, 256, o.SendBuffer)

	custom := Options{PongWait: time.Minute * 2, SendBuffer: 8}.withDefaults()
	assert.Equal(t, 2*time.Minute, custom.PongWait)
	assert.Equal(t, 8, custom.SendBuffer)
}
