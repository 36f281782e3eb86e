package model

import "time"

// Reaction kinds.
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionLaugh = "laugh"
	ReactionWow   = "wow"
)

// ValidReactionKind reports whether kind is one of the known reaction kinds.
func ValidReactionKind(kind string) bool {
	switch kind {
	case ReactionLike, ReactionLove, ReactionLaugh, ReactionWow:
		return true
	}
	return false
}

// Reaction is one user's reaction to a pin. The (pin_id, user_id) unique
// index keeps it at most one per user per pin; re-reacting updates Kind.
type Reaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PinID     int64     `gorm:"uniqueIndex:idx_reaction_pin_user;not null" json:"pin_id"`
	UserID    int64     `gorm:"uniqueIndex:idx_reaction_pin_user;not null" json:"user_id"`
	Kind      string    `gorm:"size:16;not null" json:"kind"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
