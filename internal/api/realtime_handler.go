package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production deployments
	},
}

// RealtimeHandler owns the WebSocket upgrade endpoint.
type RealtimeHandler struct {
	hub       *realtime.Hub
	validator realtime.Validator
	opts      realtime.Options
	logger    *zap.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, validator realtime.Validator, opts realtime.Options, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, validator: validator, opts: opts, logger: logger}
}

// ServeWS upgrades the connection and hands it to the realtime core. The
// socket stays anonymous until its first frame carries a valid auth
// handshake; no HTTP-level authentication happens here.
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := realtime.NewConn(h.hub, conn, h.validator, h.opts, h.logger)
	go c.WritePump()
	go c.ReadPump()
}
