package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/staffhub/staffhub/internal/audit/http"
	"github.com/staffhub/staffhub/internal/auth"
	"github.com/staffhub/staffhub/internal/bench"
	"github.com/staffhub/staffhub/internal/observability"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
	"github.com/staffhub/staffhub/internal/users"
	"github.com/staffhub/staffhub/jobs"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are not mounted.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Resolver       auth.Resolver
	Metrics        *observability.Metrics
	HealthChecks   map[string]HealthCheck
	// Authorizer gates operator routes. /jobs is not mounted without it.
	Authorizer *rbac.Authorizer

	AuthHandler  *auth.Handler
	AuthzHandler *rbac.Handler
	AuditHandler *audithttp.Handler
	UsersHandler *users.Handler
	BenchHandler *bench.Handler
	JobHandler   *jobs.Handler
}

// NewRouter constructs the chi.Router with StaffHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			Resolver:       params.Resolver,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.AuthzHandler != nil {
			r.Route("/authz", params.AuthzHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/admin/users", params.UsersHandler.MountRoutes)
		}
		if params.BenchHandler != nil {
			r.Route("/bench", params.BenchHandler.MountRoutes)
		}
		if params.JobHandler != nil && params.Authorizer != nil {
			gate := rbac.Middleware{Authorizer: params.Authorizer, Logger: params.Logger}
			r.Route("/jobs", func(r chi.Router) {
				r.Use(gate.RequirePermission(shared.PermAdminSettings))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})
	return r
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		body := map[string]any{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		httpx.JSON(w, status, body)
	}
}
