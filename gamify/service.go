// Package gamify maintains user experience points, levels and the XP
// leaderboard sorted set.
package gamify

import (
	"context"
	"errors"
	"strconv"

	"github.com/whisperyapp/server/cache"
	"github.com/whisperyapp/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// XP awards per activity.
const (
	XPPinCreated       = 20
	XPReactionReceived = 2
	XPCommentReceived  = 5
	XPFriendMade       = 10
)

const (
	RankingKey = "ranking:xp"
	rankingTop = 100
)

// Service applies XP awards and keeps the leaderboard in sync.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

func NewService(db *gorm.DB, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{db: db, cache: c, logger: logger}
}

// LevelForXP maps total XP to a level. Each level costs 100*level more
// XP than the previous one, so level N starts at 50*N*(N-1) XP.
func LevelForXP(xp int64) int {
	level := 1
	for xp >= int64(50*(level+1)*level) {
		level++
	}
	return level
}

// XPForLevel returns the total XP needed to reach the given level.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(50 * level * (level - 1))
}

// Award adds points to a user's XP, recomputes their level and refreshes
// the leaderboard entry. Missing users are ignored.
func (s *Service) Award(ctx context.Context, userID int64, points int64) error {
	if points <= 0 {
		return nil
	}

	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		user.XP += points
		user.Level = LevelForXP(user.XP)
		total = user.XP
		return tx.Model(&model.User{}).Where("id = ?", userID).
			Updates(map[string]any{"xp": user.XP, "level": user.Level}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.cache.ZAdd(ctx, RankingKey, float64(total), strconv.FormatInt(userID, 10)); err != nil {
		s.logger.Warn("leaderboard update failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// RefreshLeaderboard rebuilds the ranking sorted set from the DB.
// Run periodically by the scheduler to repair cache drift.
func (s *Service) RefreshLeaderboard(ctx context.Context) (int, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Select("id, xp").
		Where("status = ?", 1).
		Order("xp DESC").Limit(rankingTop).Find(&users).Error; err != nil {
		return 0, err
	}
	for _, u := range users {
		if err := s.cache.ZAdd(ctx, RankingKey, float64(u.XP), strconv.FormatInt(u.ID, 10)); err != nil {
			return 0, err
		}
	}
	return len(users), nil
}

// RemoveFromLeaderboard drops a user from the ranking, used when an
// account is banned or deleted.
func (s *Service) RemoveFromLeaderboard(ctx context.Context, userID int64) {
	if err := s.cache.ZRem(ctx, RankingKey, strconv.FormatInt(userID, 10)); err != nil {
		s.logger.Warn("leaderboard removal failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}
