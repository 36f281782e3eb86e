package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a Whispery account.
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:32;not null" json:"username"`
	PasswordHash string         `gorm:"size:64;not null" json:"-"`
	Email        string         `gorm:"size:128" json:"email"`
	DisplayName  string         `gorm:"size:64" json:"display_name"`
	AvatarURL    string         `gorm:"size:255" json:"avatar_url"`
	Bio          string         `gorm:"size:500" json:"bio"`
	Level        int            `gorm:"default:1" json:"level"`
	XP           int64          `gorm:"default:0" json:"xp"`
	// No column default: gorm would treat a zero Status as unset and
	// write the default, making a banned user impossible to insert.
	// Registration sets Status explicitly.
	Status int `gorm:"not null" json:"status"` // 0=banned 1=normal
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	LastLoginIP  string         `gorm:"size:45" json:"last_login_ip"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Active reports whether the user may participate: not banned, not deleted.
func (u *User) Active() bool {
	return u.Status == 1 && !u.DeletedAt.Valid
}

// Summary is the public identity attached to relationships, pins and comments.
type Summary struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Level       int    `json:"level"`
}

// Summarize builds the public view of a user. It falls back to the
// username when no display name is set.
func (u *User) Summarize() Summary {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return Summary{
		ID:          u.ID,
		DisplayName: name,
		AvatarURL:   u.AvatarURL,
		Level:       u.Level,
	}
}
