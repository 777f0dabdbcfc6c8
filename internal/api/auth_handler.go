package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
	"github.com/edielopx/FreelanceHub-sub001/internal/middleware"
	"github.com/edielopx/FreelanceHub-sub001/pkg/response"
	"github.com/edielopx/FreelanceHub-sub001/pkg/validator"
)

type AuthHandler struct {
	service *domain.AuthService
	logger  *zap.Logger
}

func NewAuthHandler(service *domain.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Register creates a new account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}

	req.Email = validator.SanitizeEmail(req.Email)
	if !validator.ValidateEmail(req.Email) {
		response.BadRequest(w, "invalid email address")
		return
	}
	if errs := validator.ValidatePassword(req.Password); errs.HasErrors() {
		response.BadRequest(w, errs.Error())
		return
	}
	if !validator.ValidateName(req.Name) {
		response.BadRequest(w, "name must be between 2 and 100 characters")
		return
	}

	result, err := h.service.Register(r.Context(), req.Email, req.Password, validator.SanitizeString(req.Name, 100))
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			response.Conflict(w, "an account with this email already exists")
			return
		}
		h.logger.Error("registration failed", zap.Error(err))
		response.InternalError(w, "failed to create account")
		return
	}

	response.Created(w, result)
}

// Login authenticates with email/password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}

	result, err := h.service.Login(r.Context(), validator.SanitizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(w, "invalid email or password")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		response.InternalError(w, "failed to log in")
		return
	}

	response.OK(w, result)
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.BadRequest(w, "invalid request")
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrSessionExpired) {
			response.Unauthorized(w, "invalid or expired refresh token")
			return
		}
		h.logger.Error("token refresh failed", zap.Error(err))
		response.InternalError(w, "failed to refresh token")
		return
	}

	response.OK(w, result)
}

// Logout ends the session behind the refresh token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		response.BadRequest(w, "invalid request")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		response.InternalError(w, "failed to log out")
		return
	}

	response.OK(w, map[string]string{"status": "logged out"})
}

// LogoutAll ends every session of the authenticated user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	if err := h.service.LogoutAll(r.Context(), userID); err != nil {
		h.logger.Error("logout-all failed", zap.Int64("user_id", userID), zap.Error(err))
		response.InternalError(w, "failed to log out")
		return
	}

	response.OK(w, map[string]string{"status": "logged out"})
}

// Me returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	user, err := h.service.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(w, "user not found")
			return
		}
		h.logger.Error("failed to load profile", zap.Int64("user_id", userID), zap.Error(err))
		response.InternalError(w, "failed to load profile")
		return
	}

	response.OK(w, user)
}
