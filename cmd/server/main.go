package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/fiteval/internal/api"
	"github.com/mcoot/fiteval/internal/config"
	"github.com/mcoot/fiteval/internal/factory"
)

func main() {
	// Bootstrap logger until the configured level is known
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(context.Background())
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	os.Exit(run(cfg, logger))
}

// run serves until a signal arrives or the listener fails and returns the exit code
func run(cfg *config.Config, logger *slog.Logger) int {
	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close stores", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: app.AuthService,
		Receiver:    app.Receiver,
		Evaluator:   app.Evaluator,
		Cookie:      cfg.HTTP.Cookie,
		LoginPath:   cfg.HTTP.LoginPath,
	})

	// Create server
	server := api.NewServer(router, cfg.HTTP.Server, logger)

	// Expired sessions are swept in the background until shutdown
	go app.AuthService.RunJanitor(ctx, cfg.Auth.JanitorInterval)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("upload_dir", app.Receiver.Dir()),
		slog.String("evaluator", cfg.Evaluator.Command),
		slog.String("credential_store", cfg.Store.Credentials),
		slog.String("session_store", cfg.Store.Sessions),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	logger.Info("server stopped")
	return exitCode
}

func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:            logger,
		CredentialStorage: cfg.Store.Credentials,
		SessionStorage:    cfg.Store.Sessions,
		UsersFile:         cfg.Store.UsersFile,
		AuthConfig:        cfg.Auth,
		UploadConfig:      cfg.Upload,
		EvaluatorConfig:   cfg.Evaluator,
	}
	if cfg.Store.Credentials == config.StoreRedis || cfg.Store.Sessions == config.StoreRedis {
		fc.RedisConfig = &cfg.Redis
	}
	if cfg.Store.Credentials == config.StorePostgres || cfg.Store.Sessions == config.StorePostgres {
		fc.DatabaseConfig = &cfg.Database
	}
	return fc
}
