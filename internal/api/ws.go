package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/termchat/server/internal/hub"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The room token already gates this endpoint; the browser's
	// cookie scoping is what matters, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades an authenticated request into a live session and
// hands it to the hub. One connection, one session, one goroutine pair
// (read pump here, write pump inside Session.Run).
type WSHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func NewWSHandler(h *hub.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: h, logger: logger}
}

// Serve handles GET /v1/rooms/:id/ws
//
// RoomAuth has already verified the token against :id. The hub itself
// trusts the roomId on the join frame — the client got here with a
// token for this room, and the join frame carries the same id.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error to the client.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := hub.NewSession(h.hub, conn, h.logger)
	session.Run(c.Request.Context())
}
