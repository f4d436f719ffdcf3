package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"reservely/internal/engine"
	"reservely/internal/shared/config"
	"reservely/internal/shared/database"
	"reservely/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	appLogger := logger.New()
	logger.SetDefault(appLogger)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to initialize databases", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	eng, err := engine.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Error("failed to build reservation engine", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Start(ctx)

	appLogger.Info("reservation engine started",
		"environment", cfg.Environment,
		"sweep_interval", cfg.Jobs.SweepInterval.String(),
		"outbox_interval", cfg.Jobs.OutboxInterval.String(),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down reservation engine")
	if err := eng.Stop(); err != nil {
		appLogger.Error("shutdown error", "error", err)
	}
}
