package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/termchat/server/internal/upload"
	"go.uber.org/zap"
)

// maxUploadBytes caps a single shared file at 25 MB.
const maxUploadBytes = 25 << 20

// UploadHandler accepts a multipart file, streams it to the blob
// host, and returns the public URL plus inferred kind. The chat page
// calls this first and then puts the URL on a send-message frame —
// file bytes never travel over the websocket.
type UploadHandler struct {
	store  *upload.Client
	logger *zap.Logger
}

func NewUploadHandler(store *upload.Client, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{store: store, logger: logger}
}

// Create handles POST /v1/upload
func (h *UploadHandler) Create(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	defer file.Close()

	result, err := h.store.Store(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("upload to blob host failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
