package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/testutil"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// User
	user := &model.User{Username: "test_user", PasswordHash: "hash", Status: 1}
	require.NoError(t, db.Create(user).Error)
	assert.Greater(t, user.ID, int64(0))

	var found model.User
	require.NoError(t, db.First(&found, user.ID).Error)
	assert.Equal(t, "test_user", found.Username)

	// VoicePin
	pin := &model.VoicePin{
		UserID:    user.ID,
		Title:     "First whisper",
		AudioURL:  "/media/abc.ogg",
		DurationS: 12,
		Lat:       40.4168, Lng: -3.7038,
	}
	require.NoError(t, db.Create(pin).Error)
	assert.Greater(t, pin.ID, int64(0))

	// Reaction
	react := &model.Reaction{PinID: pin.ID, UserID: user.ID, Kind: model.ReactionLike}
	require.NoError(t, db.Create(react).Error)

	// Comment
	comment := &model.Comment{PinID: pin.ID, UserID: user.ID, Body: "nice spot"}
	require.NoError(t, db.Create(comment).Error)

	// Relationship
	rel := &model.Relationship{
		SenderID: user.ID, ReceiverID: 999,
		PairKey: model.PairKeyFor(user.ID, 999),
		Status:  model.RelPending,
	}
	require.NoError(t, db.Create(rel).Error)

	// Notification
	notif := &model.Notification{UserID: user.ID, ActorID: 999, Kind: model.NotifFriendRequest}
	require.NoError(t, db.Create(notif).Error)
}

func TestUserBannedStatusPersists(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// A zero Status must survive the insert as-is; a column default
	// would silently turn a banned fixture into an active user.
	banned := &model.User{Username: "banned_user", PasswordHash: "hash", Status: 0}
	require.NoError(t, db.Create(banned).Error)

	var found model.User
	require.NoError(t, db.First(&found, banned.ID).Error)
	assert.Equal(t, 0, found.Status)
	assert.False(t, found.Active())
}

func TestRelationshipPairKeyUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)

	first := &model.Relationship{
		SenderID: 1, ReceiverID: 2,
		PairKey: model.PairKeyFor(1, 2),
		Status:  model.RelPending,
	}
	require.NoError(t, db.Create(first).Error)

	// Direction-swapped duplicate must hit the unique index.
	dup := &model.Relationship{
		SenderID: 2, ReceiverID: 1,
		PairKey: model.PairKeyFor(2, 1),
		Status:  model.RelPending,
	}
	assert.Error(t, db.Create(dup).Error)
}

func TestPairKeyCanonical(t *testing.T) {
	assert.Equal(t, model.PairKeyFor(1, 2), model.PairKeyFor(2, 1))
	assert.Equal(t, "1:2", model.PairKeyFor(2, 1))
}
