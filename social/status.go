// Package social owns the relationship state machine between two users:
// friend request, accept/reject, cancel, remove, block and unblock, plus
// the derived status queries. At most one relationship row exists per
// unordered user pair; the canonical PairKey unique index enforces that
// even under concurrent writers.
package social

import (
	"github.com/whisperyapp/server/apperr"
	"github.com/whisperyapp/server/model"
)

// Action is a response to a pending friend request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// ParseAction validates a client-supplied action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAccept, ActionReject:
		return Action(s), nil
	}
	return "", apperr.BadRequest("invalid action, must be accept or reject")
}

// Status labels returned by GetStatus.
const (
	StatusSelf            = "self"
	StatusNone            = "none"
	StatusFriends         = "friends"
	StatusPendingSent     = "pending_sent"
	StatusPendingReceived = "pending_received"
	StatusBlockedByYou    = "blocked_by_you"
	StatusBlocked         = "blocked"
	StatusRejected        = "rejected"
)

// respondTransition is the single place that decides what a response does
// to a relationship. Anything but a pending row is already settled.
func respondTransition(current model.RelationshipStatus, act Action) (model.RelationshipStatus, error) {
	if current != model.RelPending {
		return current, apperr.Conflict("request already handled")
	}
	switch act {
	case ActionAccept:
		return model.RelAccepted, nil
	case ActionReject:
		return model.RelRejected, nil
	}
	return current, apperr.BadRequest("invalid action, must be accept or reject")
}

// requestOverExisting decides what SendRequest does when a row already
// exists for the pair. A nil return means the row was rejected and may be
// resurrected; everything else refuses. A blocked row refuses regardless
// of which party issued the block.
func requestOverExisting(current model.RelationshipStatus) error {
	switch current {
	case model.RelPending:
		return apperr.Conflict("friend request already pending")
	case model.RelAccepted:
		return apperr.Conflict("already friends")
	case model.RelBlocked:
		return apperr.Forbidden("cannot send request")
	case model.RelRejected:
		return nil
	}
	return apperr.Conflict("friend request already pending")
}

// statusLabel derives the viewer-relative label for a relationship row.
func statusLabel(rel *model.Relationship, viewerID int64) string {
	switch rel.Status {
	case model.RelAccepted:
		return StatusFriends
	case model.RelPending:
		if rel.SenderID == viewerID {
			return StatusPendingSent
		}
		return StatusPendingReceived
	case model.RelBlocked:
		if rel.SenderID == viewerID {
			return StatusBlockedByYou
		}
		return StatusBlocked
	case model.RelRejected:
		return StatusRejected
	}
	return StatusNone
}
