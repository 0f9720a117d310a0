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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/smashpoint/tournament-api/config"
	"github.com/smashpoint/tournament-api/db"
	"github.com/smashpoint/tournament-api/handlers"
	"github.com/smashpoint/tournament-api/live"
	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/ranking"
	"github.com/smashpoint/tournament-api/repositories"
	api "github.com/smashpoint/tournament-api/routes"
	"github.com/smashpoint/tournament-api/services"
	"github.com/smashpoint/tournament-api/storage"
)

const schedulerInterval = 30 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
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

	// Применение миграций
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2Configured() {
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
		logger.Warn("object storage is not configured, uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	txManager := repositories.NewSQLTxManager(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	characterRepo := repositories.NewPostgresCharacterRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, logger)
	emailService := services.NewEmailService(cfg)
	userService := services.NewUserService(userRepo, uploader)
	characterService := services.NewCharacterService(characterRepo, uploader)
	statsService := services.NewStatsService(userRepo, rankingRepo)

	rankingService := services.NewRankingService(
		txManager,
		tournamentRepo,
		registrationRepo,
		matchRepo,
		rankingRepo,
		userRepo,
		ranking.StandardPolicy{},
		wsHub,
		logger,
	)

	tournamentService := services.NewTournamentService(
		tournamentRepo,
		matchRepo,
		userRepo,
		rankingService,
		wsHub,
		logger,
	)

	registrationService := services.NewRegistrationService(
		registrationRepo,
		tournamentRepo,
		userRepo,
		characterRepo,
	)

	matchService := services.NewMatchService(
		matchRepo,
		tournamentRepo,
		registrationRepo,
		wsHub,
		logger,
	)
	logger.Info("Services initialized")

	// Планировщик автоматической смены статусов турниров
	go func() {
		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()
		logger.Info("tournament status update scheduler started", slog.Duration("interval", schedulerInterval))

		if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background(), time.Now()); err != nil {
			logger.Error("scheduler: initial run failed", slog.Any("error", err))
		}

		for range ticker.C {
			if err := tournamentService.AutoUpdateTournamentStatusesByDates(context.Background(), time.Now()); err != nil {
				logger.Error("scheduler: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, emailService, cfg.JWTSecretKey, logger)
	userHandler := handlers.NewUserHandler(userService, statsService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, matchService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	matchHandler := handlers.NewMatchHandler(matchService)
	characterHandler := handlers.NewCharacterHandler(characterService)
	rankingHandler := handlers.NewRankingHandler(rankingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	authenticate := middleware.Authenticate([]byte(cfg.JWTSecretKey), userRepo)
	api.SetupRoutes(
		router,
		authenticate,
		authHandler,
		userHandler,
		tournamentHandler,
		registrationHandler,
		matchHandler,
		characterHandler,
		rankingHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
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

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
