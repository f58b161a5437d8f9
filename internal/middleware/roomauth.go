package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/termchat/server/internal/auth"
)

// ContextKeyRoomID is where RoomAuth stores the verified room id for
// downstream handlers.
const ContextKeyRoomID = "room_id"

// RoomAuth verifies that the request carries a room token matching the
// :id route parameter. The token arrives either as the per-room cookie
// the password flow sets, or as a Bearer header (websocket clients and
// tests). Room access is decided here, at the HTTP boundary — the hub
// behind it trusts any room id it is handed.
func RoomAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "invalid room ID",
			})
			return
		}

		token := bearerToken(c)
		if token == "" {
			if cookie, err := c.Cookie("room-auth-" + roomID.String()); err == nil {
				token = cookie
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing room credential",
			})
			return
		}

		if !auth.VerifyRoomToken(token, roomID, secret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired room credential",
			})
			return
		}

		c.Set(ContextKeyRoomID, roomID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetRoomID returns the room id RoomAuth stored, or uuid.Nil if the
// middleware didn't run.
func GetRoomID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyRoomID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
