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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staffhub/staffhub/internal/app"
	"github.com/staffhub/staffhub/internal/audit"
	audithttp "github.com/staffhub/staffhub/internal/audit/http"
	"github.com/staffhub/staffhub/internal/auth"
	"github.com/staffhub/staffhub/internal/bench"
	"github.com/staffhub/staffhub/internal/observability"
	"github.com/staffhub/staffhub/internal/platform/cache"
	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
	"github.com/staffhub/staffhub/internal/users"
	"github.com/staffhub/staffhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("staffhub exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpt, err := jobs.RedisOpt(cfg.RedisAddr)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	// Audit pipeline first: everything below may emit events.
	sink, closeSink, err := newAuditSink(cfg, pool, redisOpt)
	if err != nil {
		return err
	}
	defer closeSink()
	emitter := audit.NewEmitter(sink, audit.EmitterConfig{
		QueueSize:    cfg.AuditQueueSize,
		WriteTimeout: cfg.AuditWriteTimeout,
		Logger:       logger,
		Failures:     metrics,
	})
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := emitter.Close(drainCtx); err != nil {
			logger.Warn("audit drain incomplete", slog.Any("error", err))
		}
	}()

	rbacRepo := rbac.NewRepository(pool)
	store, writer, err := newMatrixStore(ctx, cfg, rbacRepo, logger)
	if err != nil {
		return err
	}
	broadcaster := rbac.NewBroadcaster(redisClient, logger)
	if err := broadcaster.ListenForReload(ctx, store); err != nil {
		return fmt.Errorf("subscribe matrix reloads: %w", err)
	}

	authorizer := rbac.NewAuthorizer(rbac.AuthorizerParams{
		Matrix:    store,
		Narrowing: rbac.DefaultNarrowing(),
		Events:    emitter,
		Decisions: metrics,
		Logger:    logger,
	})
	rbacService := rbac.NewService(rbac.ServiceParams{
		Store:     store,
		Writer:    writer,
		Publisher: broadcaster,
		Events:    emitter,
		Logger:    logger,
	})

	userRepo := users.NewRepository(pool)
	sessions := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	resolvers := auth.ChainResolver{}
	var tokens *auth.JWTResolver
	if cfg.JWTEnabled() {
		tokens = auth.NewJWTResolver(auth.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      cfg.JWTTTL,
		})
		resolvers = append(resolvers, tokens)
	}
	resolvers = append(resolvers, auth.NewSessionResolver(userRepo))

	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessions,
		Resolver:       resolvers,
		Metrics:        metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Authorizer:   authorizer,
		AuthHandler:  auth.NewHandler(logger, auth.NewService(userRepo), sessions, tokens),
		AuthzHandler: rbac.NewHandler(logger, authorizer, rbacService),
		AuditHandler: audithttp.NewHandler(logger, audit.NewService(auditReader(sink, pool)), authorizer),
		UsersHandler: users.NewHandler(logger, users.NewService(userRepo, emitter), authorizer),
		BenchHandler: bench.NewHandler(logger, bench.NewService(bench.NewRepository(pool), emitter), authorizer),
		JobHandler:   jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("matrix_source", cfg.RBACMatrixSource),
			slog.String("audit_sink", cfg.AuditSink),
			slog.Int64("matrix_version", store.Version()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

// newMatrixStore loads the role matrix. Only the Postgres source accepts
// role edits; the YAML source is read-only.
func newMatrixStore(ctx context.Context, cfg *app.Config, repo *rbac.Repository, logger *slog.Logger) (*rbac.MatrixStore, rbac.RoleWriter, error) {
	if cfg.RBACMatrixSource == app.MatrixSourcePostgres {
		store, err := rbac.NewMatrixStore(ctx, repo, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load role matrix from postgres: %w", err)
		}
		return store, repo, nil
	}
	store, err := rbac.NewMatrixStore(ctx, rbac.YAMLSource{Path: cfg.RBACMatrixFile}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load role matrix from yaml: %w", err)
	}
	return store, nil, nil
}

// newAuditSink picks where audit events are written. The returned func
// releases sink resources.
func newAuditSink(cfg *app.Config, pool *pgxpool.Pool, redisOpt asynq.RedisClientOpt) (audit.Sink, func(), error) {
	switch cfg.AuditSink {
	case app.AuditSinkQueue:
		client := jobs.NewClient(redisOpt)
		return jobs.NewAuditQueueSink(client), func() { _ = client.Close() }, nil
	case app.AuditSinkMemory:
		return audit.NewMemoryStore(), func() {}, nil
	case app.AuditSinkPostgres:
		return audit.NewPostgresStore(pool), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.AuditSink)
	}
}

// auditReader returns the store the audit trail is read from. Queued events
// land in Postgres through the worker, so only the memory sink reads locally.
func auditReader(sink audit.Sink, pool *pgxpool.Pool) audit.Repository {
	if mem, ok := sink.(*audit.MemoryStore); ok {
		return mem
	}
	return audit.NewPostgresStore(pool)
}
