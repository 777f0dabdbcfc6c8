package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/edielopx/FreelanceHub-sub001/internal/api"
	"github.com/edielopx/FreelanceHub-sub001/internal/auth"
	"github.com/edielopx/FreelanceHub-sub001/internal/config"
	"github.com/edielopx/FreelanceHub-sub001/internal/domain"
	"github.com/edielopx/FreelanceHub-sub001/internal/realtime"
	"github.com/edielopx/FreelanceHub-sub001/internal/repository"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Starting FreelanceHub realtime API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database
	ctx := context.Background()
	db, err := initDatabase(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Connected to database")

	// Initialize dependencies
	repo := repository.NewPostgresRepository(db, logger)
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	// Realtime core: one hub per process, injected everywhere it is needed
	hub := realtime.NewHub(logger)
	sessionValidator := domain.NewSessionValidator(repo, logger)
	notifier := domain.NewNotifierService(hub, logger)

	// Initialize services
	authService := domain.NewAuthService(repo, jwtManager)
	messageService := domain.NewMessageService(repo, repo, notifier)

	// Initialize handlers
	realtimeOpts := realtime.Options{
		WriteWait:      cfg.Realtime.WriteWait,
		PongWait:       cfg.Realtime.PongWait,
		HandshakeWait:  cfg.Realtime.HandshakeWait,
		MaxMessageSize: cfg.Realtime.MaxMessageSize,
		SendBuffer:     cfg.Realtime.SendBuffer,
	}
	authHandler := api.NewAuthHandler(authService, logger)
	messageHandler := api.NewMessageHandler(messageService, logger)
	realtimeHandler := api.NewRealtimeHandler(hub, sessionValidator, realtimeOpts, logger)
	healthHandler := api.NewHealthHandler()

	// Initialize router
	router := api.NewRouter(authHandler, messageHandler, realtimeHandler, healthHandler, jwtManager, logger)
	r := router.Setup()

	// Start session cleanup worker
	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	repo.StartCleanupWorker(cleanupCtx, 1*time.Hour)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cleanupCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("ENV")
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
