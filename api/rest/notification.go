package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/config"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"gorm.io/gorm"
)

// NotificationHandler handles inbox REST endpoints. Notifications are
// poll-only rows; there is no push channel.
type NotificationHandler struct {
	db  *gorm.DB
	cfg config.SocialConfig
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB, cfg config.SocialConfig) *NotificationHandler {
	return &NotificationHandler{db: db, cfg: cfg}
}

// List handles GET /api/notifications?unread=1&limit=..&offset=..
func (h *NotificationHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.cfg.MaxPageSize {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o > 0 {
		offset = o
	}

	q := h.db.Where("user_id = ?", userID)
	if c.Query("unread") == "1" {
		q = q.Where("read_at IS NULL")
	}

	var notifications []model.Notification
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var unread int64
	h.db.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := mw.GetUserID(c)
	notifID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	now := time.Now()
	res := h.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notifID, userID).
		Update("read_at", now)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := mw.GetUserID(c)

	now := time.Now()
	res := h.db.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": res.RowsAffected})
}
