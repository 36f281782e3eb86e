package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReactionHandler handles pin reaction REST endpoints.
type ReactionHandler struct {
	db       *gorm.DB
	gm       *gamify.Service
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewReactionHandler creates a new ReactionHandler.
func NewReactionHandler(db *gorm.DB, gm *gamify.Service, n notify.Notifier, logger *zap.Logger) *ReactionHandler {
	return &ReactionHandler{db: db, gm: gm, notifier: n, logger: logger}
}

type reactRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// React handles PUT /api/pins/:id/reaction. A repeat call with a
// different kind changes the existing reaction instead of adding one.
func (h *ReactionHandler) React(c *gin.Context) {
	userID := mw.GetUserID(c)
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidReactionKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reaction kind"})
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

	created := false
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Reaction
		err := tx.Where("pin_id = ? AND user_id = ?", pinID, userID).First(&existing).Error
		if err == nil {
			if existing.Kind == req.Kind {
				return nil
			}
			return tx.Model(&existing).Update("kind", req.Kind).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		created = true
		if err := tx.Create(&model.Reaction{PinID: pinID, UserID: userID, Kind: req.Kind}).Error; err != nil {
			return err
		}
		return tx.Model(&model.VoicePin{}).Where("id = ?", pinID).
			UpdateColumn("reaction_count", gorm.Expr("reaction_count + 1")).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if created && pin.UserID != userID {
		h.notifier.Notify(notify.Event{
			UserID:  pin.UserID,
			ActorID: userID,
			Kind:    model.NotifPinReaction,
			Payload: map[string]interface{}{"pin_id": pinID, "kind": req.Kind},
		})
		if err := h.gm.Award(c.Request.Context(), pin.UserID, gamify.XPReactionReceived); err != nil {
			h.logger.Warn("xp award failed", zap.Int64("user_id", pin.UserID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Unreact handles DELETE /api/pins/:id/reaction.
func (h *ReactionHandler) Unreact(c *gin.Context) {
	userID := mw.GetUserID(c)
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("pin_id = ? AND user_id = ?", pinID, userID).Delete(&model.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.VoicePin{}).Where("id = ? AND reaction_count > 0", pinID).
			UpdateColumn("reaction_count", gorm.Expr("reaction_count - 1")).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "reaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
