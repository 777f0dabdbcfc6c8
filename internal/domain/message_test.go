package domain

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users map[int64]*User
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateUser(context.Context, string, string, string) (*User, error) {
	panic("not used")
}

func (f *fakeUsers) GetUserWithPassword(context.Context, string) (*User, string, error) {
	panic("not used")
}

func (f *fakeUsers) UserExistsByEmail(context.Context, string) (bool, error) {
	panic("not used")
}

func (f *fakeUsers) CreateSession(context.Context, int64, string, time.Time) (*Session, error) {
	panic("not used")
}

func (f *fakeUsers) GetSessionByTokenHash(context.Context, string) (*Session, error) {
	panic("not used")
}

func (f *fakeUsers) DeleteSession(context.Context, uuid.UUID) error  { panic("not used") }
func (f *fakeUsers) DeleteUserSessions(context.Context, int64) error { panic("not used") }
func (f *fakeUsers) HasActiveSession(context.Context, int64) (bool, error) {
	panic("not used")
}

type fakeMessages struct {
	created []*Message
}

func (f *fakeMessages) CreateMessage(_ context.Context, senderID, receiverID int64, content string) (*Message, error) {
	msg := &Message{
		ID:         int64(len(f.created) + 1),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	f.created = append(f.created, msg)
	return msg, nil
}

func (f *fakeMessages) GetConversation(context.Context, int64, int64, int, int) ([]*Message, error) {
	return nil, nil
}

type notifyFromCall struct {
	sourceUserID int64
	targetUserID int64
	kind         Kind
	title        string
	body         string
	payload      map[string]interface{}
}

type fakePublisher struct {
	calls []notifyFromCall
}

func (p *fakePublisher) Notify(targetUserID int64, kind Kind, title, body string, payload map[string]interface{}) {
	p.NotifyFrom(0, targetUserID, kind, title, body, payload)
}

func (p *fakePublisher) NotifyFrom(sourceUserID, targetUserID int64, kind Kind, title, body string, payload map[string]interface{}) {
	p.calls = append(p.calls, notifyFromCall{
		sourceUserID: sourceUserID,
		targetUserID: targetUserID,
		kind:         kind,
		title:        title,
		body:         body,
		payload:      payload,
	})
}

func newMessageFixture() (*MessageService, *fakeMessages, *fakePublisher) {
	users := &fakeUsers{users: map[int64]*User{
		7:  {ID: 7, Name: "Alice", IsActive: true},
		42: {ID: 42, Name: "Bob", IsActive: true},
	}}
	repo := &fakeMessages{}
	pub := &fakePublisher{}
	return NewMessageService(repo, users, pub), repo, pub
}

func TestSendPersistsAndNotifiesReceiver(t *testing.T) {
	svc, repo, pub := newMessageFixture()

	msg, err := svc.Send(context.Background(), 7, 42, "hello Bob")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "hello Bob", msg.Content)

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, int64(7), call.sourceUserID)
	assert.Equal(t, int64(42), call.targetUserID)
	assert.Equal(t, KindMessage, call.kind)
	assert.Equal(t, "Alice", call.title, "sender name becomes the notification title")
	assert.Equal(t, "hello Bob", call.body)
	assert.Equal(t, msg.ID, call.payload["messageId"])
}

func TestSendToUnknownReceiverFails(t *testing.T) {
	svc, repo, pub := newMessageFixture()

	_, err := svc.Send(context.Background(), 7, 9999, "hello?")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, repo.created, "nothing persisted on a failed send")
	assert.Empty(t, pub.calls, "nothing published on a failed send")
}

func TestSendFromUnknownSenderFails(t *testing.T) {
	svc, _, pub := newMessageFixture()

	_, err := svc.Send(context.Background(), 9999, 42, "hello?")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, pub.calls)
}

func TestLongContentIsPreviewedInTheNotification(t *testing.T) {
	svc, _, pub := newMessageFixture()

	long := strings.Repeat("а", 300) // multibyte on purpose
	_, err := svc.Send(context.Background(), 7, 42, long)
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	body := pub.calls[0].body
	assert.Equal(t, 121, len([]rune(body)), "120 runes plus the ellipsis")
	assert.True(t, strings.HasSuffix(body, "…"))
}
