package model

import (
	"time"

	"gorm.io/datatypes"
)

// Notification kinds.
const (
	NotifFriendRequest  = "friend_request"
	NotifFriendAccepted = "friend_accepted"
	NotifPinReaction    = "pin_reaction"
	NotifPinComment     = "pin_comment"
)

// Notification is a row delivered to a user's inbox. Delivery is
// poll-only; rows are written asynchronously by the notify worker.
type Notification struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"index:idx_notif_user;not null" json:"user_id"`
	ActorID   int64          `gorm:"not null" json:"actor_id"`
	Kind      string         `gorm:"size:32;not null" json:"kind"`
	Payload   datatypes.JSON `json:"payload"`
	ReadAt    *time.Time     `json:"read_at"`
	CreatedAt time.Time      `gorm:"index:idx_notif_created;autoCreateTime:milli" json:"created_at"`
}
