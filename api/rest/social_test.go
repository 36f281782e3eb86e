package rest_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/model"
)

func sendRequest(t *testing.T, e *testEnv, auth string, receiverID int64) int64 {
	t.Helper()
	w := e.do(http.MethodPost, "/api/social/requests",
		map[string]int64{"receiver_id": receiverID}, "Authorization", auth)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody(t, w)
	rel := resp["relationship"].(map[string]interface{})
	return int64(rel["id"].(float64))
}

func TestFriendRequestFlow(t *testing.T) {
	e := newTestEnv(t)
	aID, aAuth := e.mkAuthedUser(t, "hf_alice")
	bID, bAuth := e.mkAuthedUser(t, "hf_bob")

	relID := sendRequest(t, e, aAuth, bID)

	// Status is visible from both sides.
	w := e.do(http.MethodGet, fmt.Sprintf("/api/social/status/%d", bID), nil, "Authorization", aAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending_sent", decodeBody(t, w)["status"])

	w = e.do(http.MethodGet, fmt.Sprintf("/api/social/status/%d", aID), nil, "Authorization", bAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending_received", decodeBody(t, w)["status"])

	// Receiver sees it in the pending list.
	w = e.do(http.MethodGet, "/api/social/requests", nil, "Authorization", bAuth)
	require.Equal(t, http.StatusOK, w.Code)
	received := decodeBody(t, w)["received"].([]interface{})
	require.Len(t, received, 1)

	// Accept.
	w = e.do(http.MethodPost, fmt.Sprintf("/api/social/requests/%d/respond", relID),
		map[string]string{"action": "accept"}, "Authorization", bAuth)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/social/friends", nil, "Authorization", aAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	// Accepting a friendship awards XP to both users.
	var a, b model.User
	require.NoError(t, e.db.First(&a, aID).Error)
	require.NoError(t, e.db.First(&b, bID).Error)
	assert.NotZero(t, a.XP)
	assert.NotZero(t, b.XP)
}

func TestFriendRequestConflicts(t *testing.T) {
	e := newTestEnv(t)
	_, aAuth := e.mkAuthedUser(t, "hc_alice")
	bID, _ := e.mkAuthedUser(t, "hc_bob")

	sendRequest(t, e, aAuth, bID)

	// Duplicate request → 409.
	w := e.do(http.MethodPost, "/api/social/requests",
		map[string]int64{"receiver_id": bID}, "Authorization", aAuth)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRespondByWrongUser(t *testing.T) {
	e := newTestEnv(t)
	_, aAuth := e.mkAuthedUser(t, "hw_alice")
	bID, _ := e.mkAuthedUser(t, "hw_bob")
	_, cAuth := e.mkAuthedUser(t, "hw_carol")

	relID := sendRequest(t, e, aAuth, bID)

	w := e.do(http.MethodPost, fmt.Sprintf("/api/social/requests/%d/respond", relID),
		map[string]string{"action": "accept"}, "Authorization", cAuth)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCancelRequest(t *testing.T) {
	e := newTestEnv(t)
	_, aAuth := e.mkAuthedUser(t, "hx_alice")
	bID, bAuth := e.mkAuthedUser(t, "hx_bob")

	relID := sendRequest(t, e, aAuth, bID)

	// Receiver cannot cancel.
	w := e.do(http.MethodDelete, fmt.Sprintf("/api/social/requests/%d", relID), nil, "Authorization", bAuth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/api/social/requests/%d", relID), nil, "Authorization", aAuth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, fmt.Sprintf("/api/social/status/%d", bID), nil, "Authorization", aAuth)
	assert.Equal(t, "none", decodeBody(t, w)["status"])
}

func TestBlockAndUnblock(t *testing.T) {
	e := newTestEnv(t)
	aID, aAuth := e.mkAuthedUser(t, "hb_alice")
	bID, bAuth := e.mkAuthedUser(t, "hb_bob")

	w := e.do(http.MethodPost, fmt.Sprintf("/api/social/blocks/%d", bID), nil, "Authorization", aAuth)
	require.Equal(t, http.StatusOK, w.Code)

	// Blocked user cannot send a request.
	w = e.do(http.MethodPost, "/api/social/requests",
		map[string]int64{"receiver_id": aID}, "Authorization", bAuth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Block list only shows the caller's own blocks.
	w = e.do(http.MethodGet, "/api/social/blocks", nil, "Authorization", aAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	// Only the blocker may unblock.
	w = e.do(http.MethodDelete, fmt.Sprintf("/api/social/blocks/%d", aID), nil, "Authorization", bAuth)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/api/social/blocks/%d", bID), nil, "Authorization", aAuth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, fmt.Sprintf("/api/social/status/%d", bID), nil, "Authorization", aAuth)
	assert.Equal(t, "none", decodeBody(t, w)["status"])
}

func TestRemoveFriendOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	aID, aAuth := e.mkAuthedUser(t, "hr_alice")
	bID, bAuth := e.mkAuthedUser(t, "hr_bob")

	relID := sendRequest(t, e, aAuth, bID)
	w := e.do(http.MethodPost, fmt.Sprintf("/api/social/requests/%d/respond", relID),
		map[string]string{"action": "accept"}, "Authorization", bAuth)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodDelete, fmt.Sprintf("/api/social/friends/%d", aID), nil, "Authorization", bAuth)
	assert.Equal(t, http.StatusOK, w.Code)

	// Removing again → 404.
	w = e.do(http.MethodDelete, fmt.Sprintf("/api/social/friends/%d", aID), nil, "Authorization", bAuth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFriendRequestNotification(t *testing.T) {
	e := newTestEnv(t)
	aID, aAuth := e.mkAuthedUser(t, "hn_alice")
	bID, _ := e.mkAuthedUser(t, "hn_bob")

	sendRequest(t, e, aAuth, bID)

	var notifs []model.Notification
	require.NoError(t, e.db.Where("user_id = ?", bID).Find(&notifs).Error)
	require.Len(t, notifs, 1)
	assert.Equal(t, model.NotifFriendRequest, notifs[0].Kind)
	assert.Equal(t, aID, notifs[0].ActorID)
}

func TestSocialRequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/social/friends", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
