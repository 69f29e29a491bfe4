// Package main Hanzi Trainer API
//
// @title           Hanzi Trainer API
// @version         1.0
// @description     API мини-программы для изучения иероглифов: вход, упражнения, баллы, членство и приглашения

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/hanzi-trainer/internal/app/hanziserver"
	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
)

func main() {
	// .env необязателен, переменные окружения могут быть заданы снаружи.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	logger.Info("starting hanzi-server", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := hanziserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("hanzi-server stopped gracefully")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
