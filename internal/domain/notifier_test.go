package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishCall struct {
	userID int64
	n      *Notification
}

type fakeBroadcaster struct {
	calls []publishCall
}

func (b *fakeBroadcaster) Publish(userID int64, n *Notification) {
	b.calls = append(b.calls, publishCall{userID: userID, n: n})
}

func TestNotifyStampsAndPublishes(t *testing.T) {
	hub := &fakeBroadcaster{}
	svc := NewNotifierService(hub, zap.NewNop())

	before := time.Now().UTC()
	svc.Notify(42, KindProposal, "New proposal", "You received a proposal", map[string]interface{}{"jobId": 3})
	after := time.Now().UTC()

	require.Len(t, hub.calls, 1)
	call := hub.calls[0]
	assert.Equal(t, int64(42), call.userID)
	assert.Equal(t, KindProposal, call.n.Kind)
	assert.Equal(t, "New proposal", call.n.Title)
	assert.Equal(t, "You received a proposal", call.n.Body)
	assert.Equal(t, int64(0), call.n.SenderID)
	assert.Equal(t, int64(42), call.n.ReceiverID)
	assert.False(t, call.n.OccurredAt.Before(before))
	assert.False(t, call.n.OccurredAt.After(after))
}

func TestNotifyFromCarriesTheActingUser(t *testing.T) {
	hub := &fakeBroadcaster{}
	svc := NewNotifierService(hub, zap.NewNop())

	svc.NotifyFrom(7, 42, KindMessage, "Alice", "hi there", nil)

	require.Len(t, hub.calls, 1)
	assert.Equal(t, int64(7), hub.calls[0].n.SenderID)
	assert.Equal(t, int64(42), hub.calls[0].n.ReceiverID)
}

func TestUnknownKindFallsBackToSystem(t *testing.T) {
	hub := &fakeBroadcaster{}
	svc := NewNotifierService(hub, zap.NewNop())

	svc.Notify(42, Kind("carrier-pigeon"), "t", "b", nil)

	require.Len(t, hub.calls, 1)
	assert.Equal(t, KindSystem, hub.calls[0].n.Kind)
}

func TestKindValid(t *testing.T) {
	for _, k := range []Kind{KindMessage, KindProposal, KindJob, KindAppointment, KindReview, KindPayment, KindSystem} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("carrier-pigeon").Valid())
}

func TestFrameWireShape(t *testing.T) {
	n := &Notification{
		Kind:       KindPayment,
		Title:      "Payment received",
		Body:       "$120.00",
		SenderID:   3,
		ReceiverID: 42,
		OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Payload:    map[string]interface{}{"amount": 12000},
	}

	data, err := json.Marshal(n.Frame())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "payment",
		"title": "Payment received",
		"message": "$120.00",
		"senderId": 3,
		"receiverId": 42,
		"timestamp": "2024-06-01T12:00:00Z",
		"data": {"amount": 12000}
	}`, string(data))
}

func TestFrameOmitsEmptyOptionalFields(t *testing.T) {
	n := &Notification{
		Kind:       KindSystem,
		Title:      "Maintenance",
		Body:       "Back soon",
		ReceiverID: 42,
		OccurredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(n.Frame())
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"senderId"`)
	assert.NotContains(t, string(data), `"data"`)
}
