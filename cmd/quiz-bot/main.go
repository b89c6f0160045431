// Package main точка входа бота с платным доступом к тестам.
//
// @title           Quiz Access Bot API
// @version         1.0
// @description     API чтения: тарифы, наборы карточек и проверка доступа пользователей

// @host      localhost:8080
// @BasePath  /api/v1
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/quiz-access-bot/internal/app/bot"
	"github.com/magabrotheeeer/quiz-access-bot/internal/config"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env)

	logger.Info("starting quiz-bot", slog.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bot.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("quiz-bot stopped gracefully")
}
