package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/animarr/animarr/internal/api"
	"github.com/animarr/animarr/internal/config"
	"github.com/animarr/animarr/internal/controllers"
	"github.com/animarr/animarr/internal/feeds"
	"github.com/animarr/animarr/internal/filters"
	"github.com/animarr/animarr/internal/models"
	"github.com/animarr/animarr/internal/scheduler"
	"github.com/animarr/animarr/internal/services/anilist"
	"github.com/animarr/animarr/internal/services/transmission"
	"github.com/animarr/animarr/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting Animarr")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	httpTimeout := time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	// 4. Initialize services
	transmissionClient := transmission.NewClient(cfg.TransmissionHost, cfg.TransmissionPort, httpTimeout, logger)
	if err := transmissionClient.Ping(context.Background()); err != nil {
		logger.WithError(err).Warn("Transmission not reachable yet, continuing")
	} else {
		logger.Info("Transmission client initialized")
	}

	anilistClient := anilist.NewClient(httpTimeout, logger)
	logger.Info("AniList client initialized")

	feedClient := feeds.NewClient(httpTimeout, logger)
	feedClient.SetBaseURLs(cfg.NyaaBaseURL, cfg.SubsPleaseBaseURL)
	registry := feeds.NewRegistry(feedClient)
	logger.Info("Feed sources initialized")

	// 5. Initialize pipeline
	engine := filters.NewEngine(logger)
	selector := controllers.NewSelector(cfg.SourcePriority, logger)
	dispatcher := controllers.NewDispatcher(db, transmissionClient, cfg.DownloadDir, logger)
	tracker := controllers.NewTracker(db, registry, engine, selector, dispatcher, cfg.ShowConcurrency, logger)
	logger.Info("Tracker pipeline initialized")

	// 6. Initialize scheduler
	sched := scheduler.NewScheduler(tracker, logger)
	if err := sched.Start(cfg.PollTimesPerDay); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 7. Initialize HTTP server
	server := api.NewServer(cfg, db, sched, anilistClient, logger)

	// Start server in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 8. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Animarr is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Animarr stopped")
	return nil
}
