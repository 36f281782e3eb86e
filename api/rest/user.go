package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserHandler handles profile REST endpoints.
type UserHandler struct {
	db     *gorm.DB
	gm     *gamify.Service
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, gm *gamify.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{db: db, gm: gm, logger: logger}
}

// GetProfile handles GET /api/users/:id.
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var user model.User
	if err := h.db.Where("id = ? AND status = 1", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	var pinCount int64
	h.db.Model(&model.VoicePin{}).Where("user_id = ?", user.ID).Count(&pinCount)

	c.JSON(http.StatusOK, gin.H{
		"user":      user.Summarize(),
		"bio":       user.Bio,
		"xp":        user.XP,
		"pin_count": pinCount,
	})
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=64"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=255"`
}

// UpdateProfile handles PATCH /api/users/me.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.db.Model(&model.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DeleteAccount handles DELETE /api/users/me. The row is soft-deleted so
// existing relationship and pin references stay resolvable.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	userID := mw.GetUserID(c)

	if err := h.db.Delete(&model.User{}, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	h.gm.RemoveFromLeaderboard(c.Request.Context(), userID)
	h.logger.Info("account deleted", zap.Int64("user_id", userID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
