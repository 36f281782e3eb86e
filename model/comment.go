package model

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a text reply on a voice pin.
type Comment struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PinID     int64          `gorm:"index:idx_comment_pin;not null" json:"pin_id"`
	UserID    int64          `gorm:"index:idx_comment_user;not null" json:"user_id"`
	Body      string         `gorm:"size:500;not null" json:"body"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
