package model

import (
	"time"

	"gorm.io/gorm"
)

// VoicePin is a geotagged audio clip posted by a user.
// ListenCount / ReactionCount / CommentCount are denormalized; they are
// maintained in the same transaction as the row that changes them.
type VoicePin struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64          `gorm:"index:idx_pin_user;not null" json:"user_id"`
	Title         string         `gorm:"size:100;not null" json:"title"`
	AudioURL      string         `gorm:"size:255;not null" json:"audio_url"`
	DurationS     int            `gorm:"not null" json:"duration_s"`
	Lat           float64        `gorm:"index:idx_pin_geo;not null" json:"lat"`
	Lng           float64        `gorm:"index:idx_pin_geo;not null" json:"lng"`
	ListenCount   int64          `gorm:"default:0" json:"listen_count"`
	ReactionCount int64          `gorm:"default:0" json:"reaction_count"`
	CommentCount  int64          `gorm:"default:0" json:"comment_count"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
