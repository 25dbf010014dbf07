// Package main runs the background auto-resume sweeper for paused recordings.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calldoc/backend/config"
	"github.com/calldoc/backend/internal/pauses"
	"github.com/calldoc/backend/internal/recordings"
	"github.com/calldoc/backend/internal/worker"
	"github.com/calldoc/backend/pkg/database"
	"github.com/calldoc/backend/pkg/queue"
	"github.com/calldoc/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Pause.AutoResumeTimeoutMs == 0 {
		logger.Info("auto-resume disabled; nothing to sweep")
		return
	}
	if cfg.Pause.LockBackend == config.LockBackendLocal {
		logger.Fatal("worker needs the redis lock backend to coordinate with API instances")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	pauseSvc := pauses.NewService(
		recordings.NewRepository(pool),
		pauses.NewRepository(pool),
		rdb.Locker(cfg.Pause.LockTTL()),
		pauses.Config{
			AutoResumeTimeout:  cfg.Pause.AutoResumeTimeout(),
			DisableLocalTimers: true,
			SweepConcurrency:   cfg.Pause.SweepConcurrency,
		},
		logger,
		pauses.WithNotifier(pauses.NewQueueNotifier(jobQueue)),
	)
	sweeper := worker.NewSweeper(pauseSvc, cfg.Pause.SweepInterval(), logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := sweeper.Start(workerCtx)
	logger.Info("worker started", zap.Duration("interval", cfg.Pause.SweepInterval()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
	pauseSvc.Shutdown()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
