package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/agileview/reporting/go/configs"
	appcache "github.com/agileview/reporting/go/internal/application/cache"
	"github.com/agileview/reporting/go/internal/application/services"
	"github.com/agileview/reporting/go/internal/core/ports"
	"github.com/agileview/reporting/go/internal/infrastructure/db"
	"github.com/agileview/reporting/go/internal/infrastructure/email"
	"github.com/agileview/reporting/go/internal/infrastructure/health"
	"github.com/agileview/reporting/go/internal/infrastructure/httpserver"
	"github.com/agileview/reporting/go/internal/infrastructure/memory"
	infraRedis "github.com/agileview/reporting/go/internal/infrastructure/redis"
	"github.com/agileview/reporting/go/internal/infrastructure/repositories"
	"github.com/agileview/reporting/go/internal/infrastructure/sourcecontrol"
	"github.com/agileview/reporting/go/internal/infrastructure/tiered"
	"github.com/agileview/reporting/go/internal/infrastructure/tracker"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting sprint reporting service...")

	// Initialize the snapshot database
	database, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := infraRedis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	// Cache store: fast local tier in front of shared Redis
	sharedStore := infraRedis.NewRedisStore(redisClient, cfg.Cache.KeyPrefix)
	localStore := memory.NewMemoryStore()
	defer localStore.Close()
	store := tiered.NewStore(localStore, sharedStore, cfg.Cache.LocalTTL)

	// Upstream clients
	trackerClient := tracker.NewClient(&cfg.Tracker, logger)
	vcsClient := sourcecontrol.NewClient(&cfg.SourceControl, logger)

	// Optional report-ready notifications
	var emailSender ports.EmailSender
	if cfg.Email.SendGridAPIKey != "" {
		emailSender, err = email.NewEmailService(&email.EmailConfig{
			SendGridAPIKey: cfg.Email.SendGridAPIKey,
			FromEmail:      cfg.Email.FromEmail,
			FromName:       cfg.Email.FromName,
		}, logger)
		if err != nil {
			logger.Warn("Failed to initialize email service:", err)
		}
	}

	// Caching core
	snapshotRepo := repositories.NewSnapshotRepository(database, logger)
	filler := appcache.NewFiller(store, logger, cfg.Cache.FanOutLimit)
	resolver := appcache.NewResolver(store, trackerClient, logger)
	orchestrator := appcache.NewOrchestrator(store, trackerClient, vcsClient, logger, appcache.OrchestratorConfig{
		Snapshots:      snapshotRepo,
		Email:          emailSender,
		NotifyEmail:    cfg.Email.NotifyEmail,
		ReportBaseURL:  cfg.Email.ReportBaseURL,
		RefreshTimeout: cfg.Cache.RefreshTimeout,
	})

	// Services
	analyticsService := services.NewAnalyticsService(store, trackerClient, vcsClient, filler, resolver, orchestrator, logger)
	snapshotService := services.NewSnapshotService(snapshotRepo, logger)

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	server := httpserver.NewServer(serverConfig, cfg.Auth.AdminJWTSecret, logger, httpserver.ServerDeps{
		Analytics:    analyticsService,
		Orchestrator: orchestrator,
		Snapshots:    snapshotService,
		HealthCheckers: []ports.HealthChecker{
			health.NewRedisHealthChecker(redisClient),
			health.NewDBHealthChecker(database),
			health.NewTrackerHealthChecker(trackerClient, cfg.Tracker.ProbeSprintID),
		},
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Info("HTTP server stopped:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown:", err)
	}
	logger.Info("Server exited")
}
