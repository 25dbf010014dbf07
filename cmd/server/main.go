// Package main runs the call recording HTTP server: PCI pause/resume API, auto-resume timers and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calldoc/backend/config"
	"github.com/calldoc/backend/internal/auth"
	"github.com/calldoc/backend/internal/middleware"
	"github.com/calldoc/backend/internal/pauses"
	"github.com/calldoc/backend/internal/recordings"
	"github.com/calldoc/backend/internal/worker"
	"github.com/calldoc/backend/pkg/database"
	"github.com/calldoc/backend/pkg/queue"
	"github.com/calldoc/backend/pkg/redis"
	"github.com/calldoc/backend/pkg/response"
	"github.com/calldoc/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AuditBucket:          cfg.AWS.AuditBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)

	var locker pauses.Locker
	if cfg.Pause.LockBackend == config.LockBackendLocal {
		locker = pauses.NewKeyedLocker()
		logger.Warn("using in-process pause locks; run a single instance only")
	} else {
		locker = rdb.Locker(cfg.Pause.LockTTL())
	}

	// Pauses
	recordingRepo := recordings.NewRepository(pool)
	pauseRepo := pauses.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	pauseSvc := pauses.NewService(recordingRepo, pauseRepo, locker, pauses.Config{
		AutoResumeTimeout:  cfg.Pause.AutoResumeTimeout(),
		DisableLocalTimers: !cfg.Pause.LocalTimers,
		SweepConcurrency:   cfg.Pause.SweepConcurrency,
	}, logger, pauses.WithNotifier(pauses.NewQueueNotifier(jobQueue)))
	pauseHandler := pauses.NewHandler(pauseSvc, logger)
	if s3Client != nil {
		pauseHandler.SetExporter(pauses.NewExporter(pauseSvc, s3Client, logger))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/recordings/:id/pause", pauseHandler.Pause)
		api.POST("/recordings/:id/resume", pauseHandler.Resume)
		api.GET("/recordings/:id/pause-state", pauseHandler.State)
		api.GET("/recordings/:id/segments", pauseHandler.Segments)
		api.GET("/recordings/:id/pause-events", middleware.RequireRole(auth.RoleAdmin, auth.RoleSupervisor), pauseHandler.History)
		api.POST("/recordings/:id/pause-events/export", middleware.RequireRole(auth.RoleAdmin), pauseHandler.Export)
		api.POST("/pauses/auto-resume-check", middleware.RequireRole(auth.RoleAdmin), pauseHandler.AutoResumeCheck)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Auto-resume sweep (recovers pauses whose timers were lost to a restart)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	var sweepDone <-chan struct{}
	if cfg.Pause.SweepInServer && cfg.Pause.AutoResumeTimeoutMs > 0 {
		sweepDone = worker.NewSweeper(pauseSvc, cfg.Pause.SweepInterval(), logger).Start(workerCtx)
		logger.Info("auto-resume sweeper started", zap.Duration("interval", cfg.Pause.SweepInterval()))
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Duration("auto_resume_timeout", cfg.Pause.AutoResumeTimeout()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	// An in-progress sweep must finish before timers stop and the pool closes.
	if sweepDone != nil {
		<-sweepDone
	}
	pauseSvc.Shutdown()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
