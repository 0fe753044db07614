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

	"github.com/Dosada05/chess-tournament/config"
	"github.com/Dosada05/chess-tournament/db"
	"github.com/Dosada05/chess-tournament/handlers"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
	api "github.com/Dosada05/chess-tournament/routes"
	"github.com/Dosada05/chess-tournament/services"
	"github.com/Dosada05/chess-tournament/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	envFile := pflag.String("env-file", "", "path to a .env file (default ./.env if present)")
	migrateOnly := pflag.Bool("migrate-only", false, "apply the database schema and exit")
	pflag.Parse()

	// Загрузка конфигурации
	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("log_level", cfg.LogLevel))

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

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to apply database schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema applied")
	if *migrateOnly {
		return
	}

	// Инициализация репозиториев
	tx := repositories.NewPostgresTransactor(dbConn, logger)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	enrollmentRepo := repositories.NewPostgresTournamentPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	tournamentService := services.NewTournamentService(tx, tournamentRepo, groupRepo, enrollmentRepo, matchRepo, logger)

	// Архив завершенных турниров в Cloudflare R2, если хранилище настроено
	var archiver services.Archiver
	if cfg.R2Enabled() {
		uploader, err := storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = services.NewArchiveService(tournamentService, uploader, logger)
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Warn("R2 storage is not configured, completed tournaments will not be archived")
	}

	progressionService := services.NewProgressionService(tx, tournamentRepo, groupRepo, enrollmentRepo, matchRepo, archiver, logger)
	matchService := services.NewMatchService(tx, tournamentRepo, matchRepo, progressionService, logger)
	participantService := services.NewParticipantService(tx, tournamentRepo, playerRepo, enrollmentRepo, matchRepo, progressionService, logger)
	playerService := services.NewPlayerService(playerRepo, logger)
	authService := services.NewAuthService(adminRepo, playerRepo, logger)
	logger.Info("services initialized")

	if err := authService.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Error("failed to create bootstrap admin", slog.Any("error", err))
		os.Exit(1)
	}

	// Восстанавливаем продвижения, потерянные при сбое между сохранением результата и продвижением
	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), time.Minute)
	recoverPendingAdvancements(recoverCtx, logger, tournamentService, progressionService)
	cancelRecover()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.TokenTTL)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, progressionService, participantService, matchService)
	matchHandler := handlers.NewMatchHandler(matchService, progressionService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	systemHandler := handlers.NewSystemHandler(dbConn)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:          cfg.JWTSecretKey,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, authHandler, tournamentHandler, matchHandler, playerHandler, systemHandler)
	logger.Info("routes configured")

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
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
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

// recoverPendingAdvancements прогоняет восстановление по всем турнирам на стадии плей-офф.
func recoverPendingAdvancements(ctx context.Context, logger *slog.Logger, tournaments services.TournamentService, progression services.ProgressionService) {
	status := models.StatusKnockoutStage
	active, err := tournaments.ListTournaments(ctx, services.ListTournamentsFilter{Status: &status})
	if err != nil {
		logger.Error("failed to list knockout tournaments for recovery", slog.Any("error", err))
		return
	}
	for _, t := range active {
		n, err := progression.RecoverAdvancements(ctx, t.ID)
		if err != nil {
			logger.Error("advancement recovery failed", slog.Int("tournament_id", t.ID), slog.Any("error", err))
			continue
		}
		if n > 0 {
			logger.Warn("recovered lost advancements", slog.Int("tournament_id", t.ID), slog.Int("recovered", n))
		}
	}
}
