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

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api"
	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/logging"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

func main() {
	cfg := config.MustLoad()
	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("database ready", slog.String("host", cfg.Database.Host), slog.String("db", cfg.Database.Name))

	authService, err := loadAuthService(cfg.Auth)
	if err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}

	exporter, closeExporter, err := pdf.NewFromConfig(cfg.Export, logger, pdf.WithRecorder(metrics.NewExportRecorder("api")))
	if err != nil {
		return fmt.Errorf("init exporter: %w", err)
	}
	defer closeExporter()

	styles, err := pdf.LoadStyles(cfg.Export)
	if err != nil {
		return err
	}

	var scanner api.Scanner
	if cfg.Clamd.Addr != "" {
		scanner = api.NewClamdScanner(cfg.Clamd.Addr)
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		DB:       db,
		Redis:    redisClient,
		Auth:     authService,
		Store:    storageClient,
		Scanner:  scanner,
		Exporter: exporter,
		Queue:    asynqClient,
		Guard:    tasks.NewExportGuard(redisClient, cfg.Export.InFlightTTL),
		Styles:   styles,
		Logger:   logger,
		LoginLimits: api.LoginLimits{
			PerHour:       cfg.Auth.LoginRateLimitPerHour,
			LockThreshold: cfg.Auth.LoginLockThreshold,
			LockTTL:       cfg.Auth.LoginLockTTL,
		},
		CookieDomain:   cfg.Auth.CookieDomain,
		AllowedOrigins: cfg.API.AllowedOrigins,
		MaxResumes:     cfg.API.MaxResumes,
		MaxRetry:       cfg.Worker.MaxRetry,
		TaskTimeout:    cfg.Export.Timeout,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadAuthService(cfg config.AuthConfig) (*auth.AuthService, error) {
	privateKey, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt private key: %w", err)
	}
	publicKey, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	return auth.NewAuthService(privateKey, publicKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
}
