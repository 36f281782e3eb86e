package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/whisperyapp/server/apperr"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelationshipView is a relationship with both parties' public summaries
// attached, as returned to the boundary layer.
type RelationshipView struct {
	ID        int64                    `json:"id"`
	Status    model.RelationshipStatus `json:"status"`
	Sender    model.Summary            `json:"sender"`
	Receiver  model.Summary            `json:"receiver"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// StatusInfo is the answer to a status query. RelationshipID is nil for
// the none and self labels.
type StatusInfo struct {
	Status         string `json:"status"`
	RelationshipID *int64 `json:"relationship_id"`
}

// Service implements the relationship state machine. All writes run the
// pair lookup and the mutation inside one transaction; the PairKey unique
// index backstops the lookup against concurrent writers.
type Service struct {
	db       *gorm.DB
	users    UserStore
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewService creates a relationship Service.
func NewService(db *gorm.DB, users UserStore, notifier notify.Notifier, logger *zap.Logger) *Service {
	return &Service{db: db, users: users, notifier: notifier, logger: logger}
}

// SendRequest creates a pending request from sender to receiver, or
// resurrects a rejected row with the new direction.
func (svc *Service) SendRequest(ctx context.Context, senderID, receiverID int64) (*RelationshipView, error) {
	if senderID == receiverID {
		return nil, apperr.BadRequest("cannot send a friend request to yourself")
	}
	if _, err := svc.users.FindActive(ctx, receiverID); err != nil {
		return nil, err
	}

	var rel model.Relationship
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lookupPair(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if existing == nil {
			rel = model.Relationship{
				SenderID:   senderID,
				ReceiverID: receiverID,
				PairKey:    model.PairKeyFor(senderID, receiverID),
				Status:     model.RelPending,
			}
			if err := tx.Create(&rel).Error; err != nil {
				if isUniqueViolation(err) {
					// Lost the race against a concurrent request for
					// the same pair.
					return apperr.Conflict("friend request already pending")
				}
				return apperr.Internal("create relationship failed", err)
			}
			return nil
		}

		if err := requestOverExisting(existing.Status); err != nil {
			return err
		}
		// Rejected row: resurrect it with the new direction.
		svc.logger.Debug("resurrecting rejected relationship",
			zap.Int64("relationship_id", existing.ID))
		existing.SenderID = senderID
		existing.ReceiverID = receiverID
		existing.Status = model.RelPending
		if err := tx.Save(existing).Error; err != nil {
			return apperr.Internal("update relationship failed", err)
		}
		rel = *existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	svc.notifier.Notify(notify.Event{
		UserID:  receiverID,
		ActorID: senderID,
		Kind:    model.NotifFriendRequest,
		Payload: map[string]int64{"relationship_id": rel.ID},
	})
	return svc.view(ctx, &rel)
}

// Respond accepts or rejects a pending request. Only the addressed
// receiver may respond.
func (svc *Service) Respond(ctx context.Context, receiverID, relationshipID int64, action string) (*RelationshipView, error) {
	act, err := ParseAction(action)
	if err != nil {
		return nil, err
	}

	var rel model.Relationship
	err = svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRelationship(tx, relationshipID, &rel); err != nil {
			return err
		}
		if rel.ReceiverID != receiverID {
			return apperr.Forbidden("only the addressed user can respond")
		}
		next, err := respondTransition(rel.Status, act)
		if err != nil {
			return err
		}
		rel.Status = next
		if err := tx.Save(&rel).Error; err != nil {
			return apperr.Internal("update relationship failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rel.Status == model.RelAccepted {
		svc.notifier.Notify(notify.Event{
			UserID:  rel.SenderID,
			ActorID: receiverID,
			Kind:    model.NotifFriendAccepted,
			Payload: map[string]int64{"relationship_id": rel.ID},
		})
	}
	return svc.view(ctx, &rel)
}

// Cancel withdraws a pending request. Only the sender may cancel, and
// the row is removed entirely.
func (svc *Service) Cancel(ctx context.Context, senderID, relationshipID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Relationship
		if err := findRelationship(tx, relationshipID, &rel); err != nil {
			return err
		}
		if rel.SenderID != senderID {
			return apperr.Forbidden("only the sender can cancel a request")
		}
		if rel.Status != model.RelPending {
			return apperr.Conflict("only pending requests can be cancelled")
		}
		if err := tx.Delete(&rel).Error; err != nil {
			return apperr.Internal("delete relationship failed", err)
		}
		return nil
	})
}

// Remove deletes an accepted friendship between userID and otherID.
// Either party may remove.
func (svc *Service) Remove(ctx context.Context, userID, otherID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lookupPair(tx, userID, otherID)
		if err != nil {
			return err
		}
		if existing == nil || existing.Status != model.RelAccepted {
			return apperr.NotFound("friendship not found")
		}
		if err := tx.Delete(existing).Error; err != nil {
			return apperr.Internal("delete relationship failed", err)
		}
		return nil
	})
}

// Block forces the pair into the blocked state with the blocker stored as
// sender, discarding whatever state existed before.
func (svc *Service) Block(ctx context.Context, blockerID, targetID int64) (*RelationshipView, error) {
	if blockerID == targetID {
		return nil, apperr.BadRequest("cannot block yourself")
	}

	var rel model.Relationship
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lookupPair(tx, blockerID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Sender is re-asserted as the blocking party even when the
			// prior row pointed the other way.
			existing.SenderID = blockerID
			existing.ReceiverID = targetID
			existing.Status = model.RelBlocked
			if err := tx.Save(existing).Error; err != nil {
				return apperr.Internal("update relationship failed", err)
			}
			rel = *existing
			return nil
		}
		rel = model.Relationship{
			SenderID:   blockerID,
			ReceiverID: targetID,
			PairKey:    model.PairKeyFor(blockerID, targetID),
			Status:     model.RelBlocked,
		}
		if err := tx.Create(&rel).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("relationship changed, retry")
			}
			return apperr.Internal("create relationship failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// No notification for blocks.
	return svc.view(ctx, &rel)
}

// Unblock removes a block. Only the party that issued the block, in the
// stored direction, may unblock; anyone else sees no such row.
func (svc *Service) Unblock(ctx context.Context, blockerID, targetID int64) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rel model.Relationship
		err := tx.Where("sender_id = ? AND receiver_id = ? AND status = ?",
			blockerID, targetID, model.RelBlocked).First(&rel).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("block not found")
		}
		if err != nil {
			return apperr.Internal("relationship lookup failed", err)
		}
		if err := tx.Delete(&rel).Error; err != nil {
			return apperr.Internal("delete relationship failed", err)
		}
		return nil
	})
}

// ListFriends returns the public summaries of everyone paired with
// userID through an accepted relationship, regardless of direction.
func (svc *Service) ListFriends(ctx context.Context, userID int64) ([]model.Summary, error) {
	var rels []model.Relationship
	err := svc.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, model.RelAccepted).
		Find(&rels).Error
	if err != nil {
		return nil, apperr.Internal("relationship lookup failed", err)
	}

	others := make([]int64, len(rels))
	for i := range rels {
		others[i] = rels[i].Other(userID)
	}
	summaries, err := svc.users.Summaries(ctx, others)
	if err != nil {
		return nil, err
	}
	result := make([]model.Summary, 0, len(others))
	for _, id := range others {
		if s, ok := summaries[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// PendingLists separates a user's open requests by direction.
type PendingLists struct {
	Received []RelationshipView `json:"received"`
	Sent     []RelationshipView `json:"sent"`
}

// ListPending returns the user's pending requests, received and sent.
func (svc *Service) ListPending(ctx context.Context, userID int64) (*PendingLists, error) {
	var rels []model.Relationship
	err := svc.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, model.RelPending).
		Order("created_at DESC").
		Find(&rels).Error
	if err != nil {
		return nil, apperr.Internal("relationship lookup failed", err)
	}

	ids := make([]int64, 0, len(rels)*2)
	for i := range rels {
		ids = append(ids, rels[i].SenderID, rels[i].ReceiverID)
	}
	summaries, err := svc.users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	lists := &PendingLists{
		Received: make([]RelationshipView, 0),
		Sent:     make([]RelationshipView, 0),
	}
	for i := range rels {
		v := buildView(&rels[i], summaries)
		if rels[i].ReceiverID == userID {
			lists.Received = append(lists.Received, v)
		} else {
			lists.Sent = append(lists.Sent, v)
		}
	}
	return lists, nil
}

// GetStatus answers how otherID relates to viewerID.
func (svc *Service) GetStatus(ctx context.Context, viewerID, otherID int64) (*StatusInfo, error) {
	if viewerID == otherID {
		return &StatusInfo{Status: StatusSelf}, nil
	}
	existing, err := lookupPair(svc.db.WithContext(ctx), viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return &StatusInfo{Status: StatusNone}, nil
	}
	id := existing.ID
	return &StatusInfo{Status: statusLabel(existing, viewerID), RelationshipID: &id}, nil
}

// ListBlocked returns the users this caller has blocked. Blocks issued
// against the caller are not visible here.
func (svc *Service) ListBlocked(ctx context.Context, blockerID int64) ([]model.Summary, error) {
	var rels []model.Relationship
	err := svc.db.WithContext(ctx).
		Where("sender_id = ? AND status = ?", blockerID, model.RelBlocked).
		Find(&rels).Error
	if err != nil {
		return nil, apperr.Internal("relationship lookup failed", err)
	}
	ids := make([]int64, len(rels))
	for i := range rels {
		ids[i] = rels[i].ReceiverID
	}
	summaries, err := svc.users.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]model.Summary, 0, len(ids))
	for _, id := range ids {
		if s, ok := summaries[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// ---- helpers ----

// lookupPair finds the single row for the unordered pair, nil when none
// exists.
func lookupPair(tx *gorm.DB, a, b int64) (*model.Relationship, error) {
	var rel model.Relationship
	err := tx.Where("pair_key = ?", model.PairKeyFor(a, b)).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("relationship lookup failed", err)
	}
	return &rel, nil
}

func findRelationship(tx *gorm.DB, id int64, out *model.Relationship) error {
	err := tx.First(out, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("relationship not found")
	}
	if err != nil {
		return apperr.Internal("relationship lookup failed", err)
	}
	return nil
}

func (svc *Service) view(ctx context.Context, rel *model.Relationship) (*RelationshipView, error) {
	summaries, err := svc.users.Summaries(ctx, []int64{rel.SenderID, rel.ReceiverID})
	if err != nil {
		return nil, err
	}
	v := buildView(rel, summaries)
	return &v, nil
}

func buildView(rel *model.Relationship, summaries map[int64]model.Summary) RelationshipView {
	return RelationshipView{
		ID:        rel.ID,
		Status:    rel.Status,
		Sender:    summaries[rel.SenderID],
		Receiver:  summaries[rel.ReceiverID],
		CreatedAt: rel.CreatedAt,
		UpdatedAt: rel.UpdatedAt,
	}
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
