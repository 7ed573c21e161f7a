package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/uqar-pharmacy/moneybox/internal/notify"
	"github.com/uqar-pharmacy/moneybox/internal/platform/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.RedisURL == "" {
		logger.Error("REDIS_URL is required for the notification worker")
		os.Exit(1)
	}

	redisOpts, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Error("Invalid REDIS_URL", slog.String("error", err.Error()))
		os.Exit(1)
	}

	worker := notify.NewWorker(notify.WorkerConfig{
		RedisOpts:   redisOpts,
		Concurrency: cfg.WorkerConcurrency,
		Queue:       cfg.NotificationQueue,
		Logger:      logger,
	})
	if err := worker.Run(ctx); err != nil {
		logger.Error("Notification worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
