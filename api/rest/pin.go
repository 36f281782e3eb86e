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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PinHandler handles voice pin REST endpoints.
type PinHandler struct {
	db     *gorm.DB
	gm     *gamify.Service
	cfg    config.SocialConfig
	logger *zap.Logger
}

// NewPinHandler creates a new PinHandler.
func NewPinHandler(db *gorm.DB, gm *gamify.Service, cfg config.SocialConfig, logger *zap.Logger) *PinHandler {
	return &PinHandler{db: db, gm: gm, cfg: cfg, logger: logger}
}

type createPinRequest struct {
	Title     string  `json:"title" binding:"required,max=100"`
	AudioURL  string  `json:"audio_url" binding:"required,max=255"`
	DurationS int     `json:"duration_s" binding:"required,min=1,max=300"`
	Lat       float64 `json:"lat" binding:"min=-90,max=90"`
	Lng       float64 `json:"lng" binding:"min=-180,max=180"`
}

// Create handles POST /api/pins.
func (h *PinHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)

	var req createPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pin := model.VoicePin{
		UserID:    userID,
		Title:     req.Title,
		AudioURL:  req.AudioURL,
		DurationS: req.DurationS,
		Lat:       req.Lat,
		Lng:       req.Lng,
	}
	if err := h.db.Create(&pin).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	if err := h.gm.Award(c.Request.Context(), userID, gamify.XPPinCreated); err != nil {
		h.logger.Warn("xp award failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	c.JSON(http.StatusCreated, gin.H{"pin": pin})
}

// Get handles GET /api/pins/:id.
func (h *PinHandler) Get(c *gin.Context) {
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
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
	c.JSON(http.StatusOK, gin.H{"pin": pin})
}

// Nearby handles GET /api/pins/nearby?lat=..&lng=..&radius=..
// A naive bounding box on the lat/lng index; good enough at city scale.
func (h *PinHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}

	radius := h.cfg.NearbyRadiusDeg
	if r, err := strconv.ParseFloat(c.Query("radius"), 64); err == nil && r > 0 && r <= h.cfg.NearbyRadiusDeg {
		radius = r
	}
	limit := h.pageSize(c)

	var pins []model.VoicePin
	if err := h.db.
		Where("lat BETWEEN ? AND ?", lat-radius, lat+radius).
		Where("lng BETWEEN ? AND ?", lng-radius, lng+radius).
		Order("created_at DESC").
		Limit(limit).
		Find(&pins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pins": pins, "count": len(pins)})
}

// ListByUser handles GET /api/users/:id/pins.
func (h *PinHandler) ListByUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var pins []model.VoicePin
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(h.pageSize(c)).
		Find(&pins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pins": pins, "count": len(pins)})
}

// Listen handles POST /api/pins/:id/listen and increments the listen
// counter. Idempotency per listener is deliberately not tracked.
func (h *PinHandler) Listen(c *gin.Context) {
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result := h.db.Model(&model.VoicePin{}).Where("id = ?", pinID).
		UpdateColumn("listen_count", gorm.Expr("listen_count + 1"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "pin not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete handles DELETE /api/pins/:id. Only the owner may delete.
func (h *PinHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	pinID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
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
	if pin.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your pin"})
		return
	}

	if err := h.db.Delete(&pin).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *PinHandler) pageSize(c *gin.Context) int {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.cfg.MaxPageSize {
		limit = l
	}
	return limit
}
