package rbac

import (
	"log/slog"
	"net/http"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects
// the actor to be resolved into the request context upstream.
type Middleware struct {
	Authorizer *Authorizer
	Logger     *slog.Logger
}

// RequirePermission ensures the current actor holds perm.
func (m Middleware) RequirePermission(perm shared.Permission) func(http.Handler) http.Handler {
	return m.RequireAll(perm)
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...shared.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			guard := m.Authorizer.FromContext(r.Context())
			if guard.Err() != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", guard.Denial(perms[0], nil))
				return
			}
			for _, p := range perms {
				if guard.Can(p, nil) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.deny(w, r, guard, perms[0])
		})
	}
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...shared.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			guard := m.Authorizer.FromContext(r.Context())
			if guard.Err() != nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", guard.Denial(perms[0], nil))
				return
			}
			for _, p := range perms {
				if !guard.Can(p, nil) {
					m.deny(w, r, guard, p)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, guard *Guard, perm shared.Permission) {
	if m.Logger != nil {
		m.Logger.Info("rbac denied",
			slog.String("actor", guard.Actor().ID),
			slog.String("permission", perm.String()),
			slog.String("path", r.URL.Path))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", guard.Denial(perm, nil))
}
