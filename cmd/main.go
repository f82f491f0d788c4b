package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-events-api/config"
	"campus-events-api/db"
	"campus-events-api/handlers"
	"campus-events-api/middleware"
	"campus-events-api/realtime"
	"campus-events-api/repositories"
	"campus-events-api/routes"
	"campus-events-api/services"
	"campus-events-api/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const schedulerInterval = time.Minute // how often finished events are swept

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, banner uploads disabled")
	}

	wsHub := realtime.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	txManager := repositories.NewSQLTxManager(dbConn)
	logger.Info("repositories initialized")

	emailService := services.NewEmailService(cfg)
	notificationService := services.NewNotificationService(notificationRepo, wsHub, logger)
	authService := services.NewAuthService(userRepo, cfg.StudentIDPattern)
	userService := services.NewUserService(userRepo)
	eventService := services.NewEventService(
		txManager, eventRepo, userRepo, registrationRepo,
		notificationService, emailService, uploader, logger,
	)
	registrationService := services.NewRegistrationService(
		txManager, eventRepo, userRepo, registrationRepo, teamRepo,
		notificationService, emailService, cfg.OrgEmailDomain, cfg.StudentIDPattern, logger,
	)
	dashboardService := services.NewDashboardService(userRepo, eventRepo, notificationRepo, uploader)
	adminService := services.NewAdminService(userRepo, notificationService, emailService, logger)
	logger.Info("services initialized")

	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("event completion scheduler started", slog.Duration("interval", schedulerInterval))

		if err := eventService.AutoCompleteFinishedEvents(context.Background()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}
		for range ticker.C {
			if err := eventService.AutoCompleteFinishedEvents(context.Background()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, emailService, cfg.JWTSecretKey, logger),
		User:         handlers.NewUserHandler(userService),
		Event:        handlers.NewEventHandler(eventService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Admin:        handlers.NewAdminHandler(adminService),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}
	logger.Info("HTTP handlers initialized")

	limiter := middleware.NewRateLimiter(20, 40)
	router := chi.NewRouter()
	routes.SetupRoutes(router, h, []byte(cfg.JWTSecretKey), cfg.CORSAllowedOrigins, limiter)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
