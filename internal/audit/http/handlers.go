package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 50
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// EventService defines the business contract for audit queries.
type EventService interface {
	Events(ctx context.Context, gate audit.Gate, filters audit.Filters) (audit.Result, error)
	Export(ctx context.Context, gate audit.Gate, filters audit.Filters) ([]audit.Event, error)
}

// Handler serves audit event queries.
type Handler struct {
	logger     *slog.Logger
	service    EventService
	authorizer *rbac.Authorizer
	now        func() time.Time
}

// NewHandler builds an audit handler.
func NewHandler(logger *slog.Logger, service EventService, authorizer *rbac.Authorizer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		authorizer: authorizer,
		now:        time.Now,
	}
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	result, err := h.service.Events(r.Context(), h.authorizer.FromContext(r.Context()), filters)
	if err != nil {
		h.respondError(w, "list audit events", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), h.authorizer.FromContext(r.Context()), filters)
	if err != nil {
		h.respondError(w, "export audit events", err)
		return
	}
	csvBytes, err := audit.ExportCSV(rows)
	if err != nil {
		h.respondError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-events.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(time.DateOnly)
	}
	toDay, err := time.Parse(time.DateOnly, toStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toDay.Add(-defaultDateRange).Format(time.DateOnly)
	}
	fromDay, err := time.Parse(time.DateOnly, fromStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "from"}
	}
	if fromDay.After(toDay) {
		return audit.Filters{}, validationError{field: "range"}
	}
	if toDay.Sub(fromDay) > maxDateRangeHours*time.Hour {
		return audit.Filters{}, validationError{field: "range"}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.Filters{}, validationError{field: "page_size"}
		}
		pageSize = min(parsed, maxPageSize)
	}

	return audit.Filters{
		EventType:    audit.EventType(strings.TrimSpace(q.Get("event_type"))),
		UserID:       strings.TrimSpace(q.Get("user_id")),
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
		ResourceID:   strings.TrimSpace(q.Get("resource_id")),
		DateFrom:     fromDay,
		// The upper bound covers the whole "to" day.
		DateTo:   toDay.Add(24*time.Hour - time.Nanosecond),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, shared.ErrForbidden) || errors.Is(err, shared.ErrNoActor) {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) handleFilterError(w http.ResponseWriter, err error) {
	var v validationError
	if errors.As(err, &v) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", v.Error())
		return
	}
	h.respondError(w, "validate filters", err)
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return "invalid " + v.field
}
