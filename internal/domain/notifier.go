package domain

import (
	"time"

	"go.uber.org/zap"
)

// Publisher is the contract business handlers use to push a realtime
// notification at a user. Callers never see connection bookkeeping; the call
// returns once the event is handed to the hub, without waiting for delivery.
type Publisher interface {
	Notify(targetUserID int64, kind Kind, title, body string, payload map[string]interface{})
	NotifyFrom(sourceUserID, targetUserID int64, kind Kind, title, body string, payload map[string]interface{})
}

// Broadcaster delivers a notification to every live connection of a user.
// Implemented by realtime.Hub.
type Broadcaster interface {
	Publish(userID int64, n *Notification)
}

// NotifierService implements Publisher on top of a Broadcaster.
type NotifierService struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewNotifierService(hub Broadcaster, logger *zap.Logger) *NotifierService {
	return &NotifierService{hub: hub, logger: logger}
}

// Notify stamps the event with the server clock and hands it to the hub.
// Delivery is best-effort: a target with no live connections loses the event.
func (s *NotifierService) Notify(targetUserID int64, kind Kind, title, body string, payload map[string]interface{}) {
	s.NotifyFrom(0, targetUserID, kind, title, body, payload)
}

// NotifyFrom is Notify with the acting user attached for client-side routing.
func (s *NotifierService) NotifyFrom(sourceUserID, targetUserID int64, kind Kind, title, body string, payload map[string]interface{}) {
	if !kind.Valid() {
		s.logger.Warn("unknown notification kind, delivering as system",
			zap.String("kind", string(kind)),
			zap.Int64("target_user_id", targetUserID),
		)
		kind = KindSystem
	}

	s.hub.Publish(targetUserID, &Notification{
		Kind:       kind,
		Title:      title,
		Body:       body,
		SenderID:   sourceUserID,
		ReceiverID: targetUserID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
}
