package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/api/middleware"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/config"
	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/factory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)

	// Create application factory
	app, err := factory.New(cfg.Factory(logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close application", slog.String("error", err.Error()))
		}
	}()

	logger.Info("application ready",
		slog.String("storage", cfg.Storage.Type),
		slog.String("embedding", cfg.Embedding.Type),
		slog.Int("dictionary_words", app.DictionaryService.WordCount()),
		slog.Int("target_words", app.SecretSelector.Len()),
	)

	routerCfg := api.RouterConfig{
		Logger:          logger,
		PlayerService:   app.PlayerService,
		LobbyController: app.LobbyController,
		GameController:  app.GameController,
		HubManager:      app.HubManager,
		CORSOrigins:     cfg.Server.CORSOrigins,
	}
	if cfg.RateLimitEnabled() {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit, app.Clock)
	}

	server := api.NewServer(api.NewRouter(routerCfg), cfg.APIServer(), logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.HubManager.RunJanitor(ctx, cfg.Server.JanitorInterval)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			stop()
			_ = app.Close()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// event streams would otherwise hold the shutdown open
		app.HubManager.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}
