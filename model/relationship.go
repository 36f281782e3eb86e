package model

import (
	"fmt"
	"time"
)

// RelationshipStatus is the closed set of states a pair can be in.
type RelationshipStatus string

const (
	RelPending  RelationshipStatus = "pending"
	RelAccepted RelationshipStatus = "accepted"
	RelRejected RelationshipStatus = "rejected"
	RelBlocked  RelationshipStatus = "blocked"
)

// Relationship tracks the state between two users. SenderID is the party
// that initiated the current state (the requester while pending, the
// blocker while blocked). At most one row exists per unordered pair,
// enforced by the unique index on PairKey.
type Relationship struct {
	ID         int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64              `gorm:"index:idx_rel_sender;not null" json:"sender_id"`
	ReceiverID int64              `gorm:"index:idx_rel_receiver;not null" json:"receiver_id"`
	PairKey    string             `gorm:"uniqueIndex:idx_rel_pair;size:48;not null" json:"-"`
	Status     RelationshipStatus `gorm:"size:16;not null" json:"status"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// PairKeyFor canonicalizes an unordered user pair into the key stored on
// the row, so the unique index covers both directions.
func PairKeyFor(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Other returns the party on the opposite side of the row from userID.
func (r *Relationship) Other(userID int64) int64 {
	if r.SenderID == userID {
		return r.ReceiverID
	}
	return r.SenderID
}
