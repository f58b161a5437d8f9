package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/termchat/server/internal/auth"
	"github.com/termchat/server/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RoomHandler serves the room lifecycle: create, name availability,
// join by name, and password verification. These run before any
// websocket opens — a client only reaches the realtime endpoint with
// a token minted here.
type RoomHandler struct {
	rooms     repository.RoomRepository
	jwtSecret string
	secure    bool
	logger    *zap.Logger
}

func NewRoomHandler(rooms repository.RoomRepository, jwtSecret string, secureCookies bool, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		jwtSecret: jwtSecret,
		secure:    secureCookies,
		logger:    logger,
	}
}

type createRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type joinRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type roomResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Token string    `json:"token"`
}

// Create handles POST /v1/rooms
//
// The name uniqueness check is case-insensitive and happens before the
// insert. There is no DB constraint behind it, so two concurrent
// creates with the same name can both land — accepted, the window is
// a single round trip.
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name and password are required"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name and password are required"})
		return
	}

	taken, err := h.rooms.NameTaken(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("failed to check room name", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "room name unavailable, choose another"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	room, err := h.rooms.Create(c.Request.Context(), name, string(hash))
	if err != nil {
		h.logger.Error("failed to create room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	token, err := h.issueToken(c, room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create room"})
		return
	}

	c.JSON(http.StatusCreated, roomResponse{ID: room.ID, Name: room.Name, Token: token})
}

// CheckName handles GET /v1/rooms/check-name?name=foo
// The create-room form polls this for live availability feedback.
func (h *RoomHandler) CheckName(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	taken, err := h.rooms.NameTaken(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("failed to check room name", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not check name"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"taken": taken})
}

// Join handles POST /v1/rooms/join — look a room up by name, check
// the password, and mint a token.
func (h *RoomHandler) Join(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name and password are required"})
		return
	}

	room, err := h.rooms.GetByName(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		h.logger.Error("failed to look up room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found, check the name and try again"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := h.issueToken(c, room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join room"})
		return
	}

	c.JSON(http.StatusOK, roomResponse{ID: room.ID, Name: room.Name, Token: token})
}

// Verify handles POST /v1/rooms/:id/verify — the password prompt a
// visitor hits when opening a room link without a valid cookie.
func (h *RoomHandler) Verify(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	var req verifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	room, err := h.rooms.GetByID(c.Request.Context(), roomID)
	if err != nil {
		h.logger.Error("failed to look up room", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify password"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, err := h.issueToken(c, room.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify password"})
		return
	}

	c.JSON(http.StatusOK, roomResponse{ID: room.ID, Name: room.Name, Token: token})
}

// issueToken mints a room token and also sets it as a scoped cookie so
// browser clients re-enter the room without re-typing the password.
func (h *RoomHandler) issueToken(c *gin.Context, roomID uuid.UUID) (string, error) {
	token, err := auth.CreateRoomToken(roomID, h.jwtSecret, auth.DefaultTokenTTL)
	if err != nil {
		h.logger.Error("failed to mint room token", zap.Error(err))
		return "", err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		"room-auth-"+roomID.String(),
		token,
		int(auth.DefaultTokenTTL.Seconds()),
		"/",
		"",
		h.secure,
		true,
	)
	return token, nil
}
