package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cubedev/cubedev/internal/api/admin"
	"github.com/cubedev/cubedev/internal/api/user"
	"github.com/cubedev/cubedev/internal/cache"
	"github.com/cubedev/cubedev/internal/config"
	"github.com/cubedev/cubedev/internal/database"
	"github.com/cubedev/cubedev/internal/pubsub"
	"github.com/cubedev/cubedev/internal/room"

	"go.uber.org/zap"
)

var Version = "dev-build"

func main() {

	fmt.Fprintf(os.Stderr, "CubeDev %s - Speedcubing Timer & Challenge Rooms\n\n", Version)

	// config
	var configPath string
	flag.StringVar(&configPath, "c", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// logger
	var logger *zap.Logger
	if cfg.Logger.Level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// database
	db, err := database.Init(cfg.Storage.Database)
	if err != nil {
		zap.S().Fatalf("failed to initialize database: %v", err)
	}
	zap.S().Info("database initialized successfully")

	// room cache (optional, degrades to the database when redis is absent)
	roomCache := cache.New(cfg.Redis)

	// challenge-room engine
	rooms := room.NewService(db, pubsub.GetBroker(), roomCache)

	// Catch up on rooms that hit their deadline while the server was down.
	if err := rooms.ProcessExpired(); err != nil {
		zap.S().Errorf("failed to process expired rooms on startup: %v", err)
	} else {
		zap.S().Info("successfully processed rooms expired during downtime")
	}

	// expiry sweeper
	sweeper, err := room.NewSweeper(rooms, time.Duration(cfg.Rooms.SweepIntervalMinutes)*time.Minute)
	if err != nil {
		zap.S().Fatalf("failed to create room sweeper: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// API routers
	userEngine := user.NewUserRouter(cfg, db, rooms)
	adminEngine := admin.NewAdminRouter(cfg, db, rooms)

	// start servers
	go func() {
		zap.S().Infof("starting user server at %s", cfg.Listen)
		if err := userEngine.Run(cfg.Listen); err != nil {
			zap.S().Fatalf("failed to start user server: %v", err)
		}
	}()

	if cfg.Admin.Enabled {
		go func() {
			zap.S().Infof("starting admin server at %s", cfg.Admin.Listen)
			if err := adminEngine.Run(cfg.Admin.Listen); err != nil {
				zap.S().Fatalf("failed to start admin server: %v", err)
			}
		}()
	}

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.S().Info("shutting down server...")
}
