package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/model"
)

func seedNotification(t *testing.T, e *testEnv, userID, actorID int64, kind string) int64 {
	t.Helper()
	n := &model.Notification{UserID: userID, ActorID: actorID, Kind: kind}
	require.NoError(t, e.db.Create(n).Error)
	return n.ID
}

func TestListNotifications(t *testing.T) {
	e := newTestEnv(t)
	uID, auth := e.mkAuthedUser(t, "nl_user")
	otherID, _ := e.mkAuthedUser(t, "nl_other")

	seedNotification(t, e, uID, otherID, model.NotifFriendRequest)
	seedNotification(t, e, uID, otherID, model.NotifPinReaction)
	// Someone else's notification stays invisible.
	seedNotification(t, e, otherID, uID, model.NotifFriendRequest)

	w := e.do(http.MethodGet, "/api/notifications", nil, "Authorization", auth)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Len(t, resp["notifications"].([]interface{}), 2)
	assert.Equal(t, float64(2), resp["unread_count"])
}

func TestMarkRead(t *testing.T) {
	e := newTestEnv(t)
	uID, auth := e.mkAuthedUser(t, "nr_user")
	otherID, otherAuth := e.mkAuthedUser(t, "nr_other")
	notifID := seedNotification(t, e, uID, otherID, model.NotifFriendRequest)

	// Another user cannot mark it.
	w := e.do(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notifID), nil, "Authorization", otherAuth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notifID), nil, "Authorization", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	// Already read → 404.
	w = e.do(http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notifID), nil, "Authorization", auth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Unread filter now returns nothing.
	w = e.do(http.MethodGet, "/api/notifications?unread=1", nil, "Authorization", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["unread_count"])
}

func TestMarkAllRead(t *testing.T) {
	e := newTestEnv(t)
	uID, auth := e.mkAuthedUser(t, "na_user")
	otherID, _ := e.mkAuthedUser(t, "na_other")
	seedNotification(t, e, uID, otherID, model.NotifFriendRequest)
	seedNotification(t, e, uID, otherID, model.NotifPinComment)

	w := e.do(http.MethodPost, "/api/notifications/read-all", nil, "Authorization", auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decodeBody(t, w)["marked"])

	var unread int64
	e.db.Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", uID).Count(&unread)
	assert.Zero(t, unread)
}
