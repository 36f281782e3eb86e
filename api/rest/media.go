package rest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/whisperyapp/server/config"
	mw "github.com/whisperyapp/server/middleware"
	"go.uber.org/zap"
)

// MediaHandler accepts audio uploads and stores them on disk under a
// random name. Files are served statically by the router; no transcoding
// or validation of the audio content happens here.
type MediaHandler struct {
	cfg    config.MediaConfig
	logger *zap.Logger
}

// NewMediaHandler creates a MediaHandler.
func NewMediaHandler(cfg config.MediaConfig, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{cfg: cfg, logger: logger}
}

var allowedAudioExt = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
	".webm": true,
}

// Upload handles POST /api/media (multipart field "audio").
func (h *MediaHandler) Upload(c *gin.Context) {
	userID := mw.GetUserID(c)

	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}
	if file.Size > h.cfg.MaxUploadMB*1024*1024 {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAudioExt[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported audio format"})
		return
	}

	if err := os.MkdirAll(h.cfg.Dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(h.cfg.Dir, name)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("media save failed", zap.String("path", dst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	h.logger.Info("media uploaded",
		zap.Int64("user_id", userID),
		zap.String("file", name),
		zap.Int64("size", file.Size))
	c.JSON(http.StatusCreated, gin.H{"audio_url": "/media/" + name})
}
