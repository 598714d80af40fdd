package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Put("/{id}/role", h.assignRole)
	r.Put("/{id}/accounts", h.assignAccounts)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), h.authorizer.FromContext(r.Context()))
	if err != nil {
		h.respond(w, "list users failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	user, err := h.service.Create(r.Context(), h.authorizer.FromContext(r.Context()), in)
	if err != nil {
		h.respond(w, "create user failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	user, err := h.service.AssignRole(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id"), body.Role)
	if err != nil {
		h.respond(w, "assign role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) assignAccounts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountIDs []string `json:"account_ids"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	user, err := h.service.AssignAccounts(r.Context(), h.authorizer.FromContext(r.Context()), chi.URLParam(r, "id"), body.AccountIDs)
	if err != nil {
		h.respond(w, "assign accounts failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) respond(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNoActor),
		errors.Is(err, shared.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrDuplicate):
	default:
		h.logger.Error(message, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
