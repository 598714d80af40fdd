package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the audit event list and CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, try again later")
		}),
	)
	r.Get("/events", h.handleEvents)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleExport)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := shared.ActorFromContext(r.Context()); actor != nil && actor.ID != "" {
		return "actor:" + actor.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
