package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/whisperyapp/server/cache"
	"github.com/whisperyapp/server/gamify"
	"github.com/whisperyapp/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	gm     *gamify.Service
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, gm *gamify.Service, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, gm: gm, logger: logger}
}

const rankingTop = 100

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	XP          int64  `json:"xp"`
}

// TopXP returns the top users sorted by experience.
// GET /api/ranking/xp?limit=20
func (h *RankingHandler) TopXP(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	// Try cached ranking from sorted set.
	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, gamify.RankingKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			userID, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				continue
			}
			score, _ := h.cache.ZScore(ctx, gamify.RankingKey, m)
			entries = append(entries, RankEntry{
				Rank:   i + 1,
				UserID: userID,
				XP:     int64(score),
			})
		}
		h.enrichNames(entries)
		c.JSON(http.StatusOK, gin.H{"ranking": entries})
		return
	}

	// Fall back to DB query.
	var users []model.User
	h.db.Select("id, username, display_name, level, xp").
		Where("status = ?", 1).
		Order("xp DESC").
		Limit(limit).
		Find(&users)

	entries := make([]RankEntry, len(users))
	for i, u := range users {
		entries[i] = RankEntry{
			Rank:        i + 1,
			UserID:      u.ID,
			DisplayName: u.Summarize().DisplayName,
			Level:       u.Level,
			XP:          u.XP,
		}
		// Refresh cache entry.
		_ = h.cache.ZAdd(ctx, gamify.RankingKey, float64(u.XP), strconv.FormatInt(u.ID, 10))
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

// Refresh rebuilds the ranking sorted set from the DB.
// Exposed as POST /api/admin/ranking/refresh; the scheduler runs the
// same rebuild periodically.
func (h *RankingHandler) Refresh(c *gin.Context) {
	n, err := h.gm.RefreshLeaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

func (h *RankingHandler) enrichNames(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	var users []model.User
	h.db.Select("id, username, display_name, level, xp").Where("id IN ?", ids).Find(&users)
	userMap := make(map[int64]model.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}
	for i := range entries {
		if u, ok := userMap[entries[i].UserID]; ok {
			entries[i].DisplayName = u.Summarize().DisplayName
			entries[i].Level = u.Level
			entries[i].XP = u.XP
		}
	}
}
