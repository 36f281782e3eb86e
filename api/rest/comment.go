package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/config"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CommentHandler handles pin comment REST endpoints.
type CommentHandler struct {
	db       *gorm.DB
	gm       *gamify.Service
	notifier notify.Notifier
	cfg      config.SocialConfig
	logger   *zap.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(db *gorm.DB, gm *gamify.Service, n notify.Notifier, cfg config.SocialConfig, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{db: db, gm: gm, notifier: n, cfg: cfg, logger: logger}
}

type addCommentRequest struct {
	Body string `json:"body" binding:"required,max=500"`
}

// Add handles POST /api/pins/:id/comments.
func (h *CommentHandler) Add(c *gin.Context) {
	userID := mw.GetUserID(c)
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var pin model.VoicePin
	if err := h.db.First(&pin, pinID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	comment := model.Comment{PinID: pinID, UserID: userID, Body: req.Body}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&model.VoicePin{}).Where("id = ?", pinID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if pin.UserID != userID {
		h.notifier.Notify(notify.Event{
			UserID:  pin.UserID,
			ActorID: userID,
			Kind:    model.NotifPinComment,
			Payload: map[string]interface{}{"pin_id": pinID, "comment_id": comment.ID},
		})
		if err := h.gm.Award(c.Request.Context(), pin.UserID, gamify.XPCommentReceived); err != nil {
			h.logger.Warn("xp award failed", zap.Int64("user_id", pin.UserID), zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// List handles GET /api/pins/:id/comments?limit=..&offset=..
func (h *CommentHandler) List(c *gin.Context) {
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.cfg.MaxPageSize {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.Query("offset")); err == nil && o > 0 {
		offset = o
	}

	var comments []model.Comment
	if err := h.db.Where("pin_id = ?", pinID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// Delete handles DELETE /api/comments/:id. Only the author may delete.
func (h *CommentHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	commentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var comment model.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your comment"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&model.VoicePin{}).Where("id = ? AND comment_count > 0", comment.PinID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
