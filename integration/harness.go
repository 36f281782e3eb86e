// Package integration spins up a fully wired HTTP server backed by an
// in-memory database and exercises it over real HTTP.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/whisperyapp/server/api/rest"
	"github.com/whisperyapp/server/cache"
	"github.com/whisperyapp/server/config"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/notify"
	"github.com/whisperyapp/server/scheduler"
	"github.com/whisperyapp/server/social"
	"github.com/whisperyapp/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with all subsystems wired together.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	Notifier *notify.Service
	Server   *httptest.Server
	URL      string
	Sec      config.SecurityConfig
	AdminKey string
}

// NewTestServer creates a fully wired server for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTL:         72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}
	socialCfg := config.SocialConfig{NearbyRadiusDeg: 0.05, MaxPageSize: 50}
	mediaCfg := config.MediaConfig{Dir: t.TempDir(), MaxUploadMB: 5}
	adminKey := "integration-admin-key"

	// Short flush interval so notification assertions settle quickly.
	notifier := notify.New(db, config.NotifyConfig{
		BufferSize:    256,
		FlushInterval: 20 * time.Millisecond,
	}, logger)
	t.Cleanup(notifier.Stop)

	gm := gamify.NewService(db, c, logger)
	socialSvc := social.NewService(db, social.NewGormUsers(db), notifier, logger)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.CORS(sec))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
	r.Static("/media", mediaCfg.Dir)

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(db, c, sec)
	userH := apirest.NewUserHandler(db, gm, logger)
	pinH := apirest.NewPinHandler(db, gm, socialCfg, logger)
	reactionH := apirest.NewReactionHandler(db, gm, notifier, logger)
	commentH := apirest.NewCommentHandler(db, gm, notifier, socialCfg, logger)
	socialH := apirest.NewSocialHandler(socialSvc, gm, logger)
	notifH := apirest.NewNotificationHandler(db, socialCfg)
	rankH := apirest.NewRankingHandler(db, c, gm, logger)
	mediaH := apirest.NewMediaHandler(mediaCfg, logger)
	adminH := apirest.NewAdminHandler(db, gm, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(sec, c))
		usersG.GET("/:id", userH.GetProfile)
		usersG.PATCH("/me", userH.UpdateProfile)
		usersG.DELETE("/me", userH.DeleteAccount)
		usersG.GET("/:id/pins", pinH.ListByUser)

		pinsG := api.Group("/pins")
		pinsG.Use(mw.Auth(sec, c))
		pinsG.POST("", pinH.Create)
		pinsG.GET("/nearby", pinH.Nearby)
		pinsG.GET("/:id", pinH.Get)
		pinsG.POST("/:id/listen", pinH.Listen)
		pinsG.DELETE("/:id", pinH.Delete)
		pinsG.PUT("/:id/reaction", reactionH.React)
		pinsG.DELETE("/:id/reaction", reactionH.Unreact)
		pinsG.POST("/:id/comments", commentH.Add)
		pinsG.GET("/:id/comments", commentH.List)

		commentsG := api.Group("/comments")
		commentsG.Use(mw.Auth(sec, c))
		commentsG.DELETE("/:id", commentH.Delete)

		socialG := api.Group("/social")
		socialG.Use(mw.Auth(sec, c))
		socialG.POST("/requests", socialH.SendRequest)
		socialG.GET("/requests", socialH.ListPending)
		socialG.POST("/requests/:id/respond", socialH.Respond)
		socialG.DELETE("/requests/:id", socialH.Cancel)
		socialG.GET("/friends", socialH.ListFriends)
		socialG.DELETE("/friends/:id", socialH.RemoveFriend)
		socialG.GET("/status/:id", socialH.GetStatus)
		socialG.POST("/blocks/:id", socialH.Block)
		socialG.DELETE("/blocks/:id", socialH.Unblock)
		socialG.GET("/blocks", socialH.ListBlocked)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(sec, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/read-all", notifH.MarkAllRead)

		api.POST("/media", mw.Auth(sec, c), mediaH.Upload)

		rankG := api.Group("/ranking")
		rankG.GET("/xp", rankH.TopXP)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(adminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/ranking/refresh", rankH.Refresh)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &TestServer{
		DB:       db,
		Cache:    c,
		Notifier: notifier,
		Server:   server,
		URL:      server.URL,
		Sec:      sec,
		AdminKey: adminKey,
	}
}

// --- HTTP helpers ---

func (ts *TestServer) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	return ts.request(t, http.MethodPost, path, body, token)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	return ts.request(t, http.MethodGet, path, nil, token)
}

// Delete sends a DELETE request with optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	return ts.request(t, http.MethodDelete, path, nil, token)
}

// Put sends a PUT request with JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	return ts.request(t, http.MethodPut, path, body, token)
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Register creates an account and returns the new user ID.
func (ts *TestServer) Register(t *testing.T, username, password string) int64 {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return int64(result["user_id"].(float64))
}

// Login returns the session token and user ID for existing credentials.
func (ts *TestServer) Login(t *testing.T, username, password string) (token string, userID int64) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	token = result["token"].(string)
	userID = int64(result["user_id"].(float64))
	return
}

// Signup registers and logs in with one call.
func (ts *TestServer) Signup(t *testing.T, username string) (token string, userID int64) {
	t.Helper()
	ts.Register(t, username, username+"-pass")
	return ts.Login(t, username, username+"-pass")
}

// UniqueID returns a short unique string suitable for usernames.
var testCounter uint64

func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
