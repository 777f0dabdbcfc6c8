package domain

import "time"

// Kind categorizes a realtime notification.
type Kind string

const (
	KindMessage     Kind = "message"
	KindProposal    Kind = "proposal"
	KindJob         Kind = "job"
	KindAppointment Kind = "appointment"
	KindReview      Kind = "review"
	KindPayment     Kind = "payment"
	KindSystem      Kind = "system"
)

// Valid reports whether k is one of the known notification kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMessage, KindProposal, KindJob, KindAppointment, KindReview, KindPayment, KindSystem:
		return true
	}
	return false
}

// Notification is one event destined for a user's live connections.
// Payload is opaque to the delivery path; only clients interpret it.
type Notification struct {
	Kind       Kind
	Title      string
	Body       string
	SenderID   int64
	ReceiverID int64
	OccurredAt time.Time
	Payload    map[string]interface{}
}

// Frame is the wire representation pushed to clients, one frame per event.
type Frame struct {
	Type       string      `json:"type"`
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	SenderID   int64       `json:"senderId,omitempty"`
	ReceiverID int64       `json:"receiverId,omitempty"`
	Timestamp  string      `json:"timestamp"`
	Data       interface{} `json:"data,omitempty"`
}

// Frame converts the notification to its wire shape.
func (n *Notification) Frame() *Frame {
	f := &Frame{
		Type:       string(n.Kind),
		Title:      n.Title,
		Message:    n.Body,
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		Timestamp:  n.OccurredAt.UTC().Format(time.RFC3339),
	}
	if len(n.Payload) > 0 {
		f.Data = n.Payload
	}
	return f
}
