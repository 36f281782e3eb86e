package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/model"
)

func TestTopXPFromDB(t *testing.T) {
	e := newTestEnv(t)
	e.mkAuthedUser(t, "rank_low")
	e.mkAuthedUser(t, "rank_high")
	e.db.Model(&model.User{}).Where("username = ?", "rank_low").
		Updates(map[string]interface{}{"xp": 100, "level": 2})
	e.db.Model(&model.User{}).Where("username = ?", "rank_high").
		Updates(map[string]interface{}{"xp": 900, "level": 4})

	// Cold cache falls back to the DB and returns sorted entries.
	w := e.do(http.MethodGet, "/api/ranking/xp?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ranking := decodeBody(t, w)["ranking"].([]interface{})
	require.Len(t, ranking, 2)

	first := ranking[0].(map[string]interface{})
	assert.Equal(t, "rank_high", first["display_name"])
	assert.Equal(t, float64(900), first["xp"])
	assert.Equal(t, float64(1), first["rank"])

	// Second call is served from the now-warm sorted set.
	w2 := e.do(http.MethodGet, "/api/ranking/xp?limit=10", nil)
	require.Equal(t, http.StatusOK, w2.Code)
	ranking2 := decodeBody(t, w2)["ranking"].([]interface{})
	require.Len(t, ranking2, 2)
	assert.Equal(t, "rank_high", ranking2[0].(map[string]interface{})["display_name"])
}

func TestAdminRankingRefresh(t *testing.T) {
	e := newTestEnv(t)
	e.mkAuthedUser(t, "rr_user")
	e.db.Model(&model.User{}).Where("username = ?", "rr_user").Update("xp", 50)

	// Without the admin key the endpoint is rejected.
	w := e.do(http.MethodPost, "/api/admin/ranking/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/admin/ranking/refresh", nil, "X-Admin-Key", "test-admin-key")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["refreshed"])
}
