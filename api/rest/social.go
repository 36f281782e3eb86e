package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/social"
	"go.uber.org/zap"
)

// SocialHandler is the HTTP boundary over the relationship service.
// All rule enforcement lives in social.Service; this layer only decodes
// requests and translates error kinds to status codes.
type SocialHandler struct {
	svc    *social.Service
	gm     *gamify.Service
	logger *zap.Logger
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(svc *social.Service, gm *gamify.Service, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{svc: svc, gm: gm, logger: logger}
}

type sendRequestRequest struct {
	ReceiverID int64 `json:"receiver_id" binding:"required"`
}

// SendRequest handles POST /api/social/requests.
func (h *SocialHandler) SendRequest(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req sendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.svc.SendRequest(c.Request.Context(), userID, req.ReceiverID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"relationship": view})
}

type respondRequest struct {
	Action string `json:"action" binding:"required"`
}

// Respond handles POST /api/social/requests/:id/respond.
func (h *SocialHandler) Respond(c *gin.Context) {
	userID := mw.GetUserID(c)
	relID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.svc.Respond(c.Request.Context(), userID, relID, req.Action)
	if err != nil {
		writeError(c, err)
		return
	}

	// A new friendship rewards both sides.
	if view.Status == model.RelAccepted {
		ctx := c.Request.Context()
		for _, id := range []int64{view.Sender.ID, view.Receiver.ID} {
			if err := h.gm.Award(ctx, id, gamify.XPFriendMade); err != nil {
				h.logger.Warn("xp award failed", zap.Int64("user_id", id), zap.Error(err))
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"relationship": view})
}

// Cancel handles DELETE /api/social/requests/:id.
func (h *SocialHandler) Cancel(c *gin.Context) {
	userID := mw.GetUserID(c)
	relID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), userID, relID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListFriends handles GET /api/social/friends.
func (h *SocialHandler) ListFriends(c *gin.Context) {
	userID := mw.GetUserID(c)

	friends, err := h.svc.ListFriends(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends, "count": len(friends)})
}

// RemoveFriend handles DELETE /api/social/friends/:id where :id is the
// other user's ID.
func (h *SocialHandler) RemoveFriend(c *gin.Context) {
	userID := mw.GetUserID(c)
	otherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.svc.Remove(c.Request.Context(), userID, otherID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListPending handles GET /api/social/requests.
func (h *SocialHandler) ListPending(c *gin.Context) {
	userID := mw.GetUserID(c)

	lists, err := h.svc.ListPending(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received": lists.Received,
		"sent":     lists.Sent,
	})
}

// GetStatus handles GET /api/social/status/:id.
func (h *SocialHandler) GetStatus(c *gin.Context) {
	userID := mw.GetUserID(c)
	otherID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	info, err := h.svc.GetStatus(c.Request.Context(), userID, otherID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Block handles POST /api/social/blocks/:id.
func (h *SocialHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	view, err := h.svc.Block(c.Request.Context(), userID, targetID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relationship": view})
}

// Unblock handles DELETE /api/social/blocks/:id.
func (h *SocialHandler) Unblock(c *gin.Context) {
	userID := mw.GetUserID(c)
	targetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.svc.Unblock(c.Request.Context(), userID, targetID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListBlocked handles GET /api/social/blocks.
func (h *SocialHandler) ListBlocked(c *gin.Context) {
	userID := mw.GetUserID(c)

	blocked, err := h.svc.ListBlocked(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked, "count": len(blocked)})
}
