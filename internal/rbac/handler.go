package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// Handler exposes permission checks and role management over HTTP.
type Handler struct {
	logger     *slog.Logger
	authorizer *Authorizer
	service    *Service
	validator  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, authorizer *Authorizer, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, authorizer: authorizer, service: service, validator: validator.New()}
}

// MountRoutes registers authz routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/check", h.check)
	r.Get("/menu", h.menu)
	r.Get("/roles", h.listRoles)
	r.Put("/roles/{role}/permissions", h.setPermissions)
	r.Put("/roles/{role}/inherits", h.setInherits)
	r.Post("/reload", h.reload)
}

type checkResponse struct {
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	guard := h.authorizer.FromContext(r.Context())
	if err := guard.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	perm, err := shared.ParsePermission(q.Get("permission"))
	if err != nil {
		// Unknown permissions are a valid question with a negative answer.
		httpx.JSON(w, http.StatusOK, checkResponse{Permission: q.Get("permission"), Allowed: false, Reason: guard.Denial(perm, nil)})
		return
	}
	var pctx *PermissionContext
	if q.Get("resource_type") != "" || q.Get("account_id") != "" || q.Get("created_by") != "" || q.Get("employee_id") != "" {
		pctx = &PermissionContext{
			ResourceType: ResourceType(strings.TrimSpace(q.Get("resource_type"))),
			ResourceID:   q.Get("resource_id"),
			AccountID:    q.Get("account_id"),
			VendorType:   q.Get("vendor_type"),
			CreatedBy:    q.Get("created_by"),
			EmployeeID:   q.Get("employee_id"),
		}
	}
	resp := checkResponse{Permission: perm.String(), Allowed: guard.Can(perm, pctx)}
	if !resp.Allowed {
		resp.Reason = guard.Denial(perm, pctx)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request) {
	guard := h.authorizer.FromContext(r.Context())
	if err := guard.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": guard.Menu()})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), h.authorizer.FromContext(r.Context()))
	if err != nil {
		h.respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := shared.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	summary, err := h.service.SetRolePermissions(r.Context(), h.authorizer.FromContext(r.Context()), role, req.Permissions)
	if err != nil {
		h.respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type inheritsRequest struct {
	Inherits []string `json:"inherits" validate:"dive,required"`
}

func (h *Handler) setInherits(w http.ResponseWriter, r *http.Request) {
	var req inheritsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := shared.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	parents := make([]shared.Role, 0, len(req.Inherits))
	for _, raw := range req.Inherits {
		parent, err := shared.ParseRole(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		parents = append(parents, parent)
	}
	summary, err := h.service.SetRoleInherits(r.Context(), h.authorizer.FromContext(r.Context()), role, parents)
	if err != nil {
		h.respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	version, err := h.service.Reload(r.Context(), h.authorizer.FromContext(r.Context()))
	if err != nil {
		h.respond(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"version": version})
}

func (h *Handler) respond(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrReadOnlyMatrix) {
		httpx.Problem(w, http.StatusConflict, "Read Only", "roles are managed in the matrix file")
		return
	}
	var unknown *shared.UnknownRoleError
	if errors.As(err, &unknown) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", unknown.Error())
		return
	}
	if !errors.Is(err, shared.ErrForbidden) && !errors.Is(err, shared.ErrNoActor) {
		h.logger.Error("rbac handler", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
