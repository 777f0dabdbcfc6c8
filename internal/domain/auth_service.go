package domain

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/auth"
)

// AuthService handles authentication business logic.
type AuthService struct {
	repo AuthRepository
	jwt  *auth.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(repo AuthRepository, jwt *auth.JWTManager) *AuthService {
	return &AuthService{repo: repo, jwt: jwt}
}

// AuthResult is the outcome of register, login and refresh.
type AuthResult struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates a new user with email/password and opens a session.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	exists, err := s.repo.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, email, passwordHash, name)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Login authenticates a user with email/password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, passwordHash, err := s.repo.GetUserWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := auth.VerifyPassword(password, passwordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the old session is replaced by a new one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.repo.GetSessionByTokenHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if sess.ExpiresAt.Before(time.Now()) {
		_ = s.repo.DeleteSession(ctx, sess.ID)
		return nil, ErrSessionExpired
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, sess.ID); err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

// Logout ends the session the refresh token belongs to. An unknown token is
// not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	sess, err := s.repo.GetSessionByTokenHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return s.repo.DeleteSession(ctx, sess.ID)
}

// LogoutAll ends every session for the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	return s.repo.DeleteUserSessions(ctx, userID)
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *AuthService) issueTokens(ctx context.Context, user *User) (*AuthResult, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.CreateSession(ctx, user.ID, auth.HashToken(refreshToken), expiresAt); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// SessionValidator answers the realtime handshake: a user id is accepted when
// it still owns at least one unexpired session.
type SessionValidator struct {
	repo   AuthRepository
	logger *zap.Logger
}

func NewSessionValidator(repo AuthRepository, logger *zap.Logger) *SessionValidator {
	return &SessionValidator{repo: repo, logger: logger}
}

// Validate reports whether userID currently holds a valid authenticated
// session. Lookup failures count as rejection.
func (v *SessionValidator) Validate(ctx context.Context, userID int64) bool {
	ok, err := v.repo.HasActiveSession(ctx, userID)
	if err != nil {
		v.logger.Error("session lookup failed during handshake",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return false
	}
	return ok
}
