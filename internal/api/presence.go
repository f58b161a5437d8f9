package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/termchat/server/internal/middleware"
	"github.com/termchat/server/internal/presence"
	"go.uber.org/zap"
)

// PresenceHandler reports how many clients are currently in a room.
// The count comes from the Redis tracker, not the in-memory registry,
// so it survives a broadcast-server restart and could be served by a
// different instance than the one holding the sockets.
type PresenceHandler struct {
	tracker *presence.Tracker
	logger  *zap.Logger
}

func NewPresenceHandler(tracker *presence.Tracker, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, logger: logger}
}

// Get handles GET /v1/rooms/:id/presence
func (h *PresenceHandler) Get(c *gin.Context) {
	roomID := middleware.GetRoomID(c)

	count, err := h.tracker.Count(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to read presence", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read presence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "occupants": count})
}
