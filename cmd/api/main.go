package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/argus-sec/argus/internal/config"
	"github.com/argus-sec/argus/internal/database"
	"github.com/argus-sec/argus/internal/jobs"
	"github.com/argus-sec/argus/internal/logger"
	"github.com/argus-sec/argus/internal/server"
	"github.com/argus-sec/argus/internal/services"
	"github.com/argus-sec/argus/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := filepath.Join("data", "logs")
	_ = os.MkdirAll(logDir, 0o755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "argus.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	logger.Init(cfg.Environment == "development", mw)

	logger.Log().Infof("starting %s %s", version.Name, version.Full())

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	srv, err := server.New(db, cfg)
	if err != nil {
		log.Fatalf("setup server: %v", err)
	}

	scheduler := jobs.NewScheduler(services.NewAuthService(db, cfg))
	if err := scheduler.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log().WithField("port", cfg.HTTPPort).Info("listening")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
