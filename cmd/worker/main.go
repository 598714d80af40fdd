package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/staffhub/staffhub/internal/app"
	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/observability"
	"github.com/staffhub/staffhub/internal/platform/cache"
	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		logger.Error("redis options", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics().Jobs()

	var source rbac.MatrixSource = rbac.YAMLSource{Path: cfg.RBACMatrixFile}
	if cfg.RBACMatrixSource == app.MatrixSourcePostgres {
		source = rbac.NewRepository(pool)
	}

	auditJob := jobs.NewAuditRecordJob(audit.NewPostgresStore(pool), logger, metrics)
	reconcileJob := jobs.NewMatrixReconcileJob(source, rbac.NewBroadcaster(redisClient, logger), logger, metrics)

	reconcileTask, err := jobs.NewMatrixReconcileTask("schedule")
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.MatrixReconcileCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.MatrixReconcileCron,
			Task:    reconcileTask,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpt,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditRecord, Handler: auditJob.Handle},
			{Type: jobs.TaskMatrixReconcile, Handler: reconcileJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker",
		slog.Int("concurrency", cfg.WorkerConcurrency),
		slog.String("matrix_source", cfg.RBACMatrixSource))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
