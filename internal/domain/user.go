package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session has expired")
)

// User represents a marketplace account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one refresh-token backed login. A user with at least one
// unexpired session is considered authenticated for the realtime handshake.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthRepository defines the interface for auth data access.
type AuthRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserWithPassword(ctx context.Context, email string) (*User, string, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)

	CreateSession(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*Session, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteUserSessions(ctx context.Context, userID int64) error
	HasActiveSession(ctx context.Context, userID int64) (bool, error)
}
