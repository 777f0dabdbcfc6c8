package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
)

// PostgresRepository implements domain.AuthRepository and
// domain.MessageRepository using PostgreSQL.
//
// Tables: users(id, email, password_hash, name, is_active, created_at),
// sessions(id, user_id, token_hash, expires_at, created_at),
// messages(id, sender_id, receiver_id, content, created_at).
type PostgresRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *pgxpool.Pool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error) {
	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, is_active, created_at
	`
	row := r.db.QueryRow(ctx, query, email, passwordHash, name)
	return scanUser(row)
}

// GetUserByID retrieves an active user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, email, name, is_active, created_at
		FROM users WHERE id = $1 AND is_active = TRUE
	`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserWithPassword retrieves a user with password hash for verification
func (r *PostgresRepository) GetUserWithPassword(ctx context.Context, email string) (*domain.User, string, error) {
	query := `
		SELECT id, email, name, is_active, created_at, password_hash
		FROM users WHERE email = $1 AND is_active = TRUE
	`
	var user domain.User
	var passwordHash string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.IsActive,
		&user.CreatedAt,
		&passwordHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrUserNotFound
		}
		return nil, "", err
	}
	return &user, passwordHash, nil
}

// UserExistsByEmail checks whether an account exists for the email
func (r *PostgresRepository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// CreateSession stores a new session keyed by the refresh token hash
func (r *PostgresRepository) CreateSession(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*domain.Session, error) {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, token_hash, expires_at, created_at
	`
	row := r.db.QueryRow(ctx, query, uuid.New(), userID, tokenHash, expiresAt)
	return scanSession(row)
}

// GetSessionByTokenHash retrieves a session by its refresh token hash
func (r *PostgresRepository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = $1
	`
	return scanSession(r.db.QueryRow(ctx, query, tokenHash))
}

// DeleteSession removes one session
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteUserSessions removes every session for the user
func (r *PostgresRepository) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// HasActiveSession reports whether the user holds at least one unexpired
// session. Backs the realtime handshake validation.
func (r *PostgresRepository) HasActiveSession(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE user_id = $1 AND expires_at > NOW())`,
		userID,
	).Scan(&exists)
	return exists, err
}

// CreateMessage stores a direct message
func (r *PostgresRepository) CreateMessage(ctx context.Context, senderID, receiverID int64, content string) (*domain.Message, error) {
	query := `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, sender_id, receiver_id, content, created_at
	`
	var msg domain.Message
	err := r.db.QueryRow(ctx, query, senderID, receiverID, content).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Content,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetConversation returns the messages between two users, newest first
func (r *PostgresRepository) GetConversation(ctx context.Context, userA, userB int64, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, userA, userB, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// StartCleanupWorker periodically purges expired sessions until ctx is done
func (r *PostgresRepository) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
				if err != nil {
					r.logger.Error("session cleanup failed", zap.Error(err))
					continue
				}
				if tag.RowsAffected() > 0 {
					r.logger.Info("purged expired sessions", zap.Int64("count", tag.RowsAffected()))
				}
			}
		}
	}()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var sess domain.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &sess, nil
}
