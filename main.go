package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/whisperyapp/server/api/rest"
	"github.com/whisperyapp/server/cache"
	"github.com/whisperyapp/server/config"
	dbadapter "github.com/whisperyapp/server/db"
	"github.com/whisperyapp/server/gamify"
	mw "github.com/whisperyapp/server/middleware"
	"github.com/whisperyapp/server/model"
	"github.com/whisperyapp/server/notify"
	"github.com/whisperyapp/server/scheduler"
	"github.com/whisperyapp/server/social"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Notifications ----
	notifier := notify.New(db, cfg.Notify, logger)
	defer notifier.Stop()

	// ---- Services ----
	gm := gamify.NewService(db, c, logger)
	socialSvc := social.NewService(db, social.NewGormUsers(db), notifier, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("leaderboard_refresh", 5*time.Minute, func() {
		n, err := gm.RefreshLeaderboard(context.Background())
		if err != nil {
			logger.Error("leaderboard refresh failed", zap.Error(err))
			return
		}
		logger.Debug("leaderboard refreshed", zap.Int("entries", n))
	})
	sched.AddTicker("notification_cleanup", time.Hour, func() {
		notifier.CleanupRead(cfg.Notify.Retention)
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.CORS(cfg.Security))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- Uploaded audio clips ----
	if cfg.Media.Dir != "" {
		if err := os.MkdirAll(cfg.Media.Dir, 0o755); err != nil {
			log.Fatalf("media dir: %v", err)
		}
		r.Static("/media", cfg.Media.Dir)
		logger.Info("Serving media", zap.String("dir", cfg.Media.Dir))
	}

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	userH := apirest.NewUserHandler(db, gm, logger)
	pinH := apirest.NewPinHandler(db, gm, cfg.Social, logger)
	reactionH := apirest.NewReactionHandler(db, gm, notifier, logger)
	commentH := apirest.NewCommentHandler(db, gm, notifier, cfg.Social, logger)
	socialH := apirest.NewSocialHandler(socialSvc, gm, logger)
	notifH := apirest.NewNotificationHandler(db, cfg.Social)
	rankH := apirest.NewRankingHandler(db, c, gm, logger)
	mediaH := apirest.NewMediaHandler(cfg.Media, logger)
	adminH := apirest.NewAdminHandler(db, gm, sched, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(cfg.Security, c))
		usersG.GET("/:id", userH.GetProfile)
		usersG.PATCH("/me", userH.UpdateProfile)
		usersG.DELETE("/me", userH.DeleteAccount)
		usersG.GET("/:id/pins", pinH.ListByUser)

		pinsG := api.Group("/pins")
		pinsG.Use(mw.Auth(cfg.Security, c))
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
		commentsG.Use(mw.Auth(cfg.Security, c))
		commentsG.DELETE("/:id", commentH.Delete)

		socialG := api.Group("/social")
		socialG.Use(mw.Auth(cfg.Security, c))
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
		notifG.Use(mw.Auth(cfg.Security, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/read-all", notifH.MarkAllRead)

		api.POST("/media", mw.Auth(cfg.Security, c), mediaH.Upload)

		rankG := api.Group("/ranking")
		rankG.GET("/xp", rankH.TopXP)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminIPs))
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/users/:id/ban", adminH.BanUser)
		adminG.POST("/ranking/refresh", rankH.Refresh)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
