package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/termchat/server/internal/api"
	"github.com/termchat/server/internal/config"
	"github.com/termchat/server/internal/db"
	"github.com/termchat/server/internal/hub"
	"github.com/termchat/server/internal/middleware"
	"github.com/termchat/server/internal/observ"
	"github.com/termchat/server/internal/presence"
	"github.com/termchat/server/internal/repository/postgres"
	"github.com/termchat/server/internal/upload"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no deadline — take as long as the database needs.
	// Once serving, every request carries its own context.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	defer redisClient.Close()

	pool := database.Pool()
	roomRepo := postgres.NewRoomStore(pool)
	messageRepo := postgres.NewMessageStore(pool)

	tracker := presence.NewTracker(redisClient)
	broadcastHub := hub.New(messageRepo, tracker, cfg.HistoryLimit, logger)

	uploadClient := upload.NewClient(cfg.UploadURL, cfg.UploadFolder, logger)

	production := cfg.Env == "production"
	roomHandler := api.NewRoomHandler(roomRepo, cfg.JWTSecret, production, logger)
	uploadHandler := api.NewUploadHandler(uploadClient, logger)
	presenceHandler := api.NewPresenceHandler(tracker, logger)
	wsHandler := api.NewWSHandler(broadcastHub, logger)

	if production {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health stays public so the load balancer can reach it.
	srv.GET("/v1/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := srv.Group("/v1")
	v1.POST("/rooms", roomHandler.Create)
	v1.GET("/rooms/check-name", roomHandler.CheckName)
	v1.POST("/rooms/join", roomHandler.Join)
	v1.POST("/rooms/:id/verify", roomHandler.Verify)
	v1.POST("/upload", uploadHandler.Create)

	// Everything inside a room requires the token minted by the
	// password flow above.
	room := v1.Group("/rooms/:id")
	room.Use(middleware.RoomAuth(cfg.JWTSecret))
	room.GET("/ws", wsHandler.Serve)
	room.GET("/presence", presenceHandler.Get)

	logger.Info("starting termchat",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	if err := srv.Run(":" + cfg.Port); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
