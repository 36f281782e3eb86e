package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/whisperyapp/server/api/rest"
	"github.com/whisperyapp/server/cache"
	"github.com/whisperyapp/server/config"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/notify"
	"github.com/whisperyapp/server/scheduler"
	"github.com/whisperyapp/server/social"
	"github.com/whisperyapp/server/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSec = config.SecurityConfig{
	JWTSecret: "test-secret",
	JWTTTL:    72 * time.Hour,
}

var testSocialCfg = config.SocialConfig{
	NearbyRadiusDeg: 0.05,
	MaxPageSize:     50,
}

// testEnv bundles everything a handler test needs: DB, cache and a gin
// engine with all routes mounted the way main.go mounts them.
type testEnv struct {
	db     *gorm.DB
	cache  cache.Cache
	router *gin.Engine
}

// notifySink is a synchronous Notifier that writes rows immediately, so
// tests can assert on notifications without waiting out flush timers.
type notifySink struct {
	db *gorm.DB
}

func (s *notifySink) Notify(ev notify.Event) {
	payload, _ := json.Marshal(ev.Payload)
	s.db.Create(&model.Notification{
		UserID:  ev.UserID,
		ActorID: ev.ActorID,
		Kind:    ev.Kind,
		Payload: datatypes.JSON(payload),
	})
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	gm := gamify.NewService(db, c, logger)
	sink := &notifySink{db: db}
	socialSvc := social.NewService(db, social.NewGormUsers(db), sink, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	auth := rest.NewAuthHandler(db, c, testSec)
	users := rest.NewUserHandler(db, gm, logger)
	pins := rest.NewPinHandler(db, gm, testSocialCfg, logger)
	reactions := rest.NewReactionHandler(db, gm, sink, logger)
	comments := rest.NewCommentHandler(db, gm, sink, testSocialCfg, logger)
	socialH := rest.NewSocialHandler(socialSvc, gm, logger)
	notifications := rest.NewNotificationHandler(db, testSocialCfg)
	ranking := rest.NewRankingHandler(db, c, gm, logger)
	admin := rest.NewAdminHandler(db, gm, sched, logger)

	r := gin.New()
	r.POST("/api/auth/register", auth.Register)
	r.POST("/api/auth/login", auth.Login)
	r.POST("/api/auth/logout", mw.Auth(testSec, c), auth.Logout)
	r.POST("/api/auth/refresh", mw.Auth(testSec, c), auth.Refresh)

	authed := r.Group("/api", mw.Auth(testSec, c))
	authed.GET("/users/:id", users.GetProfile)
	authed.PATCH("/users/me", users.UpdateProfile)
	authed.DELETE("/users/me", users.DeleteAccount)
	authed.GET("/users/:id/pins", pins.ListByUser)

	authed.POST("/pins", pins.Create)
	authed.GET("/pins/nearby", pins.Nearby)
	authed.GET("/pins/:id", pins.Get)
	authed.POST("/pins/:id/listen", pins.Listen)
	authed.DELETE("/pins/:id", pins.Delete)
	authed.PUT("/pins/:id/reaction", reactions.React)
	authed.DELETE("/pins/:id/reaction", reactions.Unreact)
	authed.POST("/pins/:id/comments", comments.Add)
	authed.GET("/pins/:id/comments", comments.List)
	authed.DELETE("/comments/:id", comments.Delete)

	authed.POST("/social/requests", socialH.SendRequest)
	authed.GET("/social/requests", socialH.ListPending)
	authed.POST("/social/requests/:id/respond", socialH.Respond)
	authed.DELETE("/social/requests/:id", socialH.Cancel)
	authed.GET("/social/friends", socialH.ListFriends)
	authed.DELETE("/social/friends/:id", socialH.RemoveFriend)
	authed.GET("/social/status/:id", socialH.GetStatus)
	authed.POST("/social/blocks/:id", socialH.Block)
	authed.DELETE("/social/blocks/:id", socialH.Unblock)
	authed.GET("/social/blocks", socialH.ListBlocked)

	authed.GET("/notifications", notifications.List)
	authed.POST("/notifications/:id/read", notifications.MarkRead)
	authed.POST("/notifications/read-all", notifications.MarkAllRead)

	r.GET("/api/ranking/xp", ranking.TopXP)

	adminGroup := r.Group("/api/admin", rest.AdminAuth("test-admin-key"))
	adminGroup.GET("/metrics", admin.Metrics)
	adminGroup.POST("/users/:id/ban", admin.BanUser)
	adminGroup.POST("/ranking/refresh", ranking.Refresh)

	return &testEnv{db: db, cache: c, router: r}
}

// mkAuthedUser creates a user and a live session, returning the user ID
// and a ready Authorization header value.
func (e *testEnv) mkAuthedUser(t *testing.T, username string) (int64, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pass123456"), 4)
	require.NoError(t, err)
	u := &model.User{Username: username, PasswordHash: string(hash), Level: 1, Status: 1}
	require.NoError(t, e.db.Create(u).Error)

	token, err := mw.GenerateToken(u.ID, testSec.JWTSecret, testSec.JWTTTL)
	require.NoError(t, err)
	require.NoError(t, e.cache.Set(context.Background(), "session:"+token,
		strconv.FormatInt(u.ID, 10), testSec.JWTTTL))
	return u.ID, "Bearer " + token
}

func (e *testEnv) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
