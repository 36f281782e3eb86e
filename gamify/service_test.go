package gamify_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/gamify"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/testutil"
	"go.uber.org/zap"
)

func TestLevelForXP(t *testing.T) {
	cases := []struct {
		xp    int64
		level int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{299, 2},
		{300, 3},
		{599, 3},
		{600, 4},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, gamify.LevelForXP(tc.xp), "xp=%d", tc.xp)
	}
}

func TestXPForLevel_Inverse(t *testing.T) {
	for level := 1; level <= 30; level++ {
		threshold := gamify.XPForLevel(level)
		assert.Equal(t, level, gamify.LevelForXP(threshold))
		if threshold > 0 {
			assert.Equal(t, level-1, gamify.LevelForXP(threshold-1))
		}
	}
}

func TestAward(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger, _ := zap.NewDevelopment()
	svc := gamify.NewService(db, c, logger)
	ctx := context.Background()

	u := &model.User{Username: "xpuser", PasswordHash: "x", Status: 1, Level: 1}
	require.NoError(t, db.Create(u).Error)

	require.NoError(t, svc.Award(ctx, u.ID, 120))

	var got model.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, int64(120), got.XP)
	assert.Equal(t, 2, got.Level)

	score, err := c.ZScore(ctx, gamify.RankingKey, strconv.FormatInt(u.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, float64(120), score)

	// Awards accumulate.
	require.NoError(t, svc.Award(ctx, u.ID, 200))
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, int64(320), got.XP)
	assert.Equal(t, 3, got.Level)
}

func TestAward_UnknownUserIgnored(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger, _ := zap.NewDevelopment()
	svc := gamify.NewService(db, c, logger)

	assert.NoError(t, svc.Award(context.Background(), 777, 50))
}

func TestRefreshLeaderboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger, _ := zap.NewDevelopment()
	svc := gamify.NewService(db, c, logger)
	ctx := context.Background()

	users := []*model.User{
		{Username: "lb1", PasswordHash: "x", Status: 1, XP: 500, Level: 3},
		{Username: "lb2", PasswordHash: "x", Status: 1, XP: 900, Level: 4},
		{Username: "lb3", PasswordHash: "x", Status: 0, XP: 9999, Level: 9},
	}
	for _, u := range users {
		require.NoError(t, db.Create(u).Error)
	}

	n, err := svc.RefreshLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // banned user excluded

	top, err := c.ZRevRange(ctx, gamify.RankingKey, 0, 9)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "2", top[0])
	assert.Equal(t, "1", top[1])
}

func TestRemoveFromLeaderboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger, _ := zap.NewDevelopment()
	svc := gamify.NewService(db, c, logger)
	ctx := context.Background()

	require.NoError(t, c.ZAdd(ctx, gamify.RankingKey, 100, "5"))
	svc.RemoveFromLeaderboard(ctx, 5)

	top, err := c.ZRevRange(ctx, gamify.RankingKey, 0, 9)
	require.NoError(t, err)
	assert.Empty(t, top)
}
