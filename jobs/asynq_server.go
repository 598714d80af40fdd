package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/staffhub/staffhub/internal/platform/cache"
	"github.com/staffhub/staffhub/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueAudit:   3,
			QueueDefault: 1,
		},
		Logger: slogAdapter{cfg.Logger},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// RedisOpt turns a REDIS_ADDR value (host:port or redis:// URL) into asynq
// connection options.
func RedisOpt(addr string) (asynq.RedisClientOpt, error) {
	opts, err := cache.Options(addr)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueContext implements Enqueuer.
func (c *Client) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return c.client.EnqueueContext(ctx, task, opts...)
}

// EnqueueMatrixReconcile asks the worker to re-validate and rebroadcast the
// role matrix.
func (c *Client) EnqueueMatrixReconcile(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewMatrixReconcileTask(reason)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task)
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector is satisfied by *asynq.Inspector.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints. inspector may be
// nil when no queue is configured.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	queues := []string{QueueAudit, QueueDefault}
	out := make([]queueHealth, 0, len(queues))
	for _, q := range queues {
		if h.inspector == nil {
			out = append(out, queueHealth{Queue: q})
			continue
		}
		info, err := h.inspector.GetQueueInfo(q)
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				out = append(out, queueHealth{Queue: q})
				continue
			}
			h.logger.Warn("jobs health", slog.String("queue", q), slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
			return
		}
		out = append(out, queueHealth{Queue: info.Queue, Pending: info.Pending, Retry: info.Retry, Archived: info.Archived})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": out})
}

// slogAdapter routes asynq's internal logging through slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...any) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...any)  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...any)  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...any) { a.logger.Error(fmt.Sprint(args...)) }

func (a slogAdapter) Fatal(args ...any) {
	a.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
