package domain

import (
	"context"
	"time"
)

// Message is a direct message between two marketplace users. Realtime
// delivery rides the notification channel; history is served over REST.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*Message, error)
	GetConversation(ctx context.Context, userA, userB int64, limit, offset int) ([]*Message, error)
}

// MessageService persists messages and raises the realtime notification to
// the receiver. It is the canonical in-process caller of the Publisher.
type MessageService struct {
	repo      MessageRepository
	users     AuthRepository
	publisher Publisher
}

func NewMessageService(repo MessageRepository, users AuthRepository, publisher Publisher) *MessageService {
	return &MessageService{repo: repo, users: users, publisher: publisher}
}

// Send stores the message and notifies the receiver's live connections.
// Notification is fire-and-forget; a failed or absent delivery never fails
// the send.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID int64, content string) (*Message, error) {
	sender, err := s.users.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	msg, err := s.repo.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return nil, err
	}

	s.publisher.NotifyFrom(senderID, receiverID, KindMessage, sender.Name, preview(content), map[string]interface{}{
		"messageId": msg.ID,
	})

	return msg, nil
}

// GetConversation returns messages between two users, newest first.
func (s *MessageService) GetConversation(ctx context.Context, userA, userB int64, limit, offset int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.GetConversation(ctx, userA, userB, limit, offset)
}

// preview truncates content to fit a notification body.
func preview(content string) string {
	const maxRunes = 120
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes]) + "…"
}
