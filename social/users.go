package social

import (
	"context"
	"errors"

	"github.com/whisperyapp/server/apperr"
	"github.com/whisperyapp/server/model"
	"gorm.io/gorm"
)

// UserStore is the identity collaborator: it resolves users that may
// participate in relationships and produces their public summaries.
type UserStore interface {
	FindActive(ctx context.Context, id int64) (*model.User, error)
	Summaries(ctx context.Context, ids []int64) (map[int64]model.Summary, error)
}

// GormUsers is the default UserStore over the users table.
type GormUsers struct {
	db *gorm.DB
}

func NewGormUsers(db *gorm.DB) *GormUsers {
	return &GormUsers{db: db}
}

// FindActive returns the user when it exists and may participate
// (not banned, not soft-deleted), apperr.NotFound otherwise.
func (s *GormUsers) FindActive(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal("user lookup failed", err)
	}
	if !u.Active() {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}

// Summaries resolves public summaries for the given user IDs. Missing or
// deleted users are simply absent from the result.
func (s *GormUsers) Summaries(ctx context.Context, ids []int64) (map[int64]model.Summary, error) {
	if len(ids) == 0 {
		return map[int64]model.Summary{}, nil
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Internal("user lookup failed", err)
	}
	result := make(map[int64]model.Summary, len(users))
	for i := range users {
		result[users[i].ID] = users[i].Summarize()
	}
	return result, nil
}
