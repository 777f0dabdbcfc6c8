package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
	"github.com/edielopx/FreelanceHub-sub001/internal/middleware"
	"github.com/edielopx/FreelanceHub-sub001/pkg/response"
	"github.com/edielopx/FreelanceHub-sub001/pkg/validator"
)

type MessageHandler struct {
	service *domain.MessageService
	logger  *zap.Logger
}

func NewMessageHandler(service *domain.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{service: service, logger: logger}
}

// Send stores a direct message and pushes a realtime notification to the
// receiver's live connections.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		ReceiverID int64  `json:"receiver_id"`
		Content    string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request")
		return
	}
	if req.ReceiverID == 0 || req.ReceiverID == userID {
		response.BadRequest(w, "invalid receiver")
		return
	}
	if !validator.ValidateMessageBody(req.Content) {
		response.BadRequest(w, "message content must be between 1 and 2000 characters")
		return
	}

	msg, err := h.service.Send(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.NotFound(w, "receiver not found")
			return
		}
		h.logger.Error("failed to send message", zap.Int64("user_id", userID), zap.Error(err))
		response.InternalError(w, "failed to send message")
		return
	}

	response.Created(w, msg)
}

// GetConversation returns the message history with another user. This is the
// polling fallback when the realtime channel is down.
func (h *MessageHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	otherID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || otherID <= 0 {
		response.BadRequest(w, "invalid user id")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	offset := (page - 1) * limit

	messages, err := h.service.GetConversation(r.Context(), userID, otherID, limit, offset)
	if err != nil {
		h.logger.Error("failed to get conversation", zap.Int64("user_id", userID), zap.Error(err))
		response.InternalError(w, "failed to get messages")
		return
	}

	response.OK(w, messages)
}
