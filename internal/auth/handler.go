package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	tokens    *JWTResolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. tokens may be nil, in which case
// login only establishes a cookie session.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, tokens *JWTResolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		tokens:    tokens,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Actor     *shared.Actor `json:"actor"`
	Token     string        `json:"token,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			h.logger.Error("authenticate", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "email or password is invalid")
		return
	}

	actor := user.Actor()
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.sessions.Renew(r.Context(), sess); err != nil {
			h.logger.Error("renew session", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		sess.SetUser(user.ID)
	} else {
		h.logger.Error("session missing during login")
	}
	resp := loginResponse{Actor: actor}
	if h.tokens != nil {
		token, expires, err := h.tokens.Issue(actor)
		if err != nil {
			h.logger.Error("issue token", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expires
	}
	h.logger.Info("login", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.RespondError(w, shared.ErrNoActor)
		return
	}
	httpx.JSON(w, http.StatusOK, actor)
}

// HandleLoginForTest exposes the login handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleLogoutForTest exposes the logout handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
