package bench

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

// Handler serves bench resources and hotlists.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	authorizer *rbac.Authorizer
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authorizer *rbac.Authorizer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, authorizer: authorizer}
}

// MountRoutes registers bench routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/resources", func(r chi.Router) {
		r.Get("/", h.listResources)
		r.Post("/", h.createResource)
		r.Get("/{id}", h.getResource)
		r.Put("/{id}", h.updateResource)
		r.Delete("/{id}", h.deleteResource)
	})
	r.Route("/hotlists", func(r chi.Router) {
		r.Get("/", h.listHotlists)
		r.Post("/", h.createHotlist)
		r.Put("/{id}", h.updateHotlist)
		r.Delete("/{id}", h.deleteHotlist)
	})
}

func (h *Handler) listResources(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListResources(r.Context(), h.authorizer.FromContext(r.Context()))
	if err != nil {
		h.respond(w, "list bench resources failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"resources": items})
}

func (h *Handler) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetResource(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.respond(w, "get bench resource failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) createResource(w http.ResponseWriter, r *http.Request) {
	var in ResourceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	res, err := h.service.CreateResource(r.Context(), h.authorizer.FromContext(r.Context()), in)
	if err != nil {
		h.respond(w, "create bench resource failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) updateResource(w http.ResponseWriter, r *http.Request) {
	var in ResourceInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	res, err := h.service.UpdateResource(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.respond(w, "update bench resource failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) deleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteResource(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respond(w, "delete bench resource failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listHotlists(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListHotlists(r.Context(), h.authorizer.FromContext(r.Context()))
	if err != nil {
		h.respond(w, "list hotlists failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"hotlists": items})
}

func (h *Handler) createHotlist(w http.ResponseWriter, r *http.Request) {
	var in HotlistInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	hl, err := h.service.CreateHotlist(r.Context(), h.authorizer.FromContext(r.Context()), in)
	if err != nil {
		h.respond(w, "create hotlist failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, hl)
}

func (h *Handler) updateHotlist(w http.ResponseWriter, r *http.Request) {
	var in HotlistInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	hl, err := h.service.UpdateHotlist(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.respond(w, "update hotlist failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, hl)
}

func (h *Handler) deleteHotlist(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteHotlist(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.respond(w, "delete hotlist failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNoActor),
		errors.Is(err, shared.ErrNotFound), errors.Is(err, httpx.ErrValidation):
	default:
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
