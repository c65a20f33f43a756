package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/geezlabs/geez-bingo/bot"
	"github.com/geezlabs/geez-bingo/config"
	"github.com/geezlabs/geez-bingo/controllers"
	"github.com/geezlabs/geez-bingo/game"
	"github.com/geezlabs/geez-bingo/routes"
	"github.com/geezlabs/geez-bingo/services"
	"github.com/geezlabs/geez-bingo/utils/logger"
)

func main() {
	cfg := config.Load()

	var history game.HistoryRecorder
	if cfg.DatabaseURL != "" {
		db, err := config.SetupDatabase(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database setup failed: %v", err)
		}
		history = services.NewHistoryService(db)
	} else {
		logger.Info("DATABASE_URL not set, round history disabled")
	}

	var sessions game.SessionStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		sessions = services.NewRedisSessionStore(rdb)
		logger.Infof("using redis sessions at %s", cfg.RedisAddr)
	}

	snapshots := game.NewSnapshotStore(cfg.StateFile)

	engine := game.NewEngine(game.Options{
		AdminID:   cfg.AdminID,
		EntryFee:  cfg.EntryFee,
		Pattern:   game.Pattern(cfg.WinPattern),
		Snapshots: snapshots,
		Sessions:  sessions,
		History:   history,
	})

	snap, err := snapshots.Load()
	if err != nil {
		logger.Fatalf("state file unreadable: %v", err)
	}
	if snap != nil {
		engine.Restore(snap)
		logger.Infof("restored state from %s", cfg.StateFile)
	}

	tg, err := bot.New(cfg, engine)
	if err != nil {
		logger.Fatalf("telegram setup failed: %v", err)
	}
	engine.SetNotifier(tg.Notifier())

	hub := services.NewHub(engine)
	engine.SetOnChange(hub.Broadcast)

	controllers.Init(engine)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	routes.SetupRoutes(router, hub)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})

	if err := tg.Run(router); err != nil {
		logger.Fatalf("telegram startup failed: %v", err)
	}

	logger.Infof("bingo server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
