package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

// RepositoryPort defines data access methods for bench data.
type RepositoryPort interface {
	ListResources(ctx context.Context) ([]Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	SaveResource(ctx context.Context, res Resource) error
	DeleteResource(ctx context.Context, id string) error
	ListHotlists(ctx context.Context) ([]Hotlist, error)
	GetHotlist(ctx context.Context, id string) (Hotlist, error)
	SaveHotlist(ctx context.Context, h Hotlist) error
	DeleteHotlist(ctx context.Context, id string) error
}

// EventLogger receives audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, event audit.Event)
}

// Service applies permission checks around bench persistence.
type Service struct {
	repo      RepositoryPort
	events    EventLogger
	validator *validator.Validate
	now       func() time.Time
}

// NewService builds Service instance. events may be nil.
func NewService(repo RepositoryPort, events EventLogger) *Service {
	return &Service{repo: repo, events: events, validator: validator.New(), now: time.Now}
}

// ListResources returns the resources the actor may view.
func (s *Service) ListResources(ctx context.Context, guard *rbac.Guard) ([]Resource, error) {
	if err := guard.Err(); err != nil {
		return nil, err
	}
	if !guard.CanViewBenchResources() {
		return nil, shared.ErrForbidden
	}
	items, err := s.repo.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("bench: list resources: %w", err)
	}
	return rbac.Filter(guard, shared.PermBenchView, items), nil
}

// GetResource returns one resource if the actor may view it.
func (s *Service) GetResource(ctx context.Context, guard *rbac.Guard, id string) (Resource, error) {
	if err := guard.Err(); err != nil {
		return Resource{}, err
	}
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	pctx := res.PermissionContext()
	if !guard.CanViewBenchResource(&pctx) {
		return Resource{}, shared.ErrForbidden
	}
	return res, nil
}

// CreateResource benches a consultant.
func (s *Service) CreateResource(ctx context.Context, guard *rbac.Guard, in ResourceInput) (Resource, error) {
	if err := guard.Err(); err != nil {
		return Resource{}, err
	}
	if !guard.CanCreateBenchResource() {
		return Resource{}, shared.ErrForbidden
	}
	if err := s.validate(in); err != nil {
		return Resource{}, err
	}
	now := s.now().UTC()
	res := Resource{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Skill:      strings.TrimSpace(in.Skill),
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		AccountID:  strings.TrimSpace(in.AccountID),
		Status:     in.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if res.EmployeeID == "" {
		res.EmployeeID = guard.Actor().ID
	}
	if res.Status == "" {
		res.Status = StatusAvailable
	}
	if err := s.repo.SaveResource(ctx, res); err != nil {
		return Resource{}, fmt.Errorf("bench: save resource: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceCreated, shared.ActionAdd, res.PermissionContext())
	return res, nil
}

// UpdateResource edits a resource. The actor must be allowed to edit it both
// before and after the change, so records cannot be moved out of reach.
func (s *Service) UpdateResource(ctx context.Context, guard *rbac.Guard, id string, in ResourceInput) (Resource, error) {
	if err := guard.Err(); err != nil {
		return Resource{}, err
	}
	if err := s.validate(in); err != nil {
		return Resource{}, err
	}
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, err
	}
	before := res.PermissionContext()
	if !guard.CanUpdateBenchResource(&before) {
		return Resource{}, shared.ErrForbidden
	}
	res.Name = strings.TrimSpace(in.Name)
	res.Skill = strings.TrimSpace(in.Skill)
	if v := strings.TrimSpace(in.EmployeeID); v != "" {
		res.EmployeeID = v
	}
	res.AccountID = strings.TrimSpace(in.AccountID)
	if in.Status != "" {
		res.Status = in.Status
	}
	after := res.PermissionContext()
	if after != before && !guard.CanUpdateBenchResource(&after) {
		return Resource{}, shared.ErrForbidden
	}
	res.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveResource(ctx, res); err != nil {
		return Resource{}, fmt.Errorf("bench: save resource: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceUpdated, shared.ActionEdit, after)
	return res, nil
}

// DeleteResource removes a resource.
func (s *Service) DeleteResource(ctx context.Context, guard *rbac.Guard, id string) error {
	if err := guard.Err(); err != nil {
		return err
	}
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return err
	}
	pctx := res.PermissionContext()
	if !guard.CanDeleteBenchResource(&pctx) {
		return shared.ErrForbidden
	}
	if err := s.repo.DeleteResource(ctx, id); err != nil {
		return fmt.Errorf("bench: delete resource: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceDeleted, shared.ActionDelete, pctx)
	return nil
}

// ListHotlists returns the hotlists the actor may view.
func (s *Service) ListHotlists(ctx context.Context, guard *rbac.Guard) ([]Hotlist, error) {
	if err := guard.Err(); err != nil {
		return nil, err
	}
	if !guard.CanViewHotlists() {
		return nil, shared.ErrForbidden
	}
	items, err := s.repo.ListHotlists(ctx)
	if err != nil {
		return nil, fmt.Errorf("bench: list hotlists: %w", err)
	}
	return rbac.Filter(guard, shared.PermHotlistView, items), nil
}

// CreateHotlist creates a hotlist owned by the actor.
func (s *Service) CreateHotlist(ctx context.Context, guard *rbac.Guard, in HotlistInput) (Hotlist, error) {
	if err := guard.Err(); err != nil {
		return Hotlist{}, err
	}
	if !guard.CanCreateHotlist() {
		return Hotlist{}, shared.ErrForbidden
	}
	if err := s.validate(in); err != nil {
		return Hotlist{}, err
	}
	if err := s.checkResources(ctx, in.ResourceIDs); err != nil {
		return Hotlist{}, err
	}
	now := s.now().UTC()
	h := Hotlist{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		CreatedBy:   guard.Actor().ID,
		AccountID:   strings.TrimSpace(in.AccountID),
		ResourceIDs: in.ResourceIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.SaveHotlist(ctx, h); err != nil {
		return Hotlist{}, fmt.Errorf("bench: save hotlist: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceCreated, shared.ActionAdd, h.PermissionContext())
	return h, nil
}

// UpdateHotlist edits a hotlist.
func (s *Service) UpdateHotlist(ctx context.Context, guard *rbac.Guard, id string, in HotlistInput) (Hotlist, error) {
	if err := guard.Err(); err != nil {
		return Hotlist{}, err
	}
	if err := s.validate(in); err != nil {
		return Hotlist{}, err
	}
	h, err := s.repo.GetHotlist(ctx, id)
	if err != nil {
		return Hotlist{}, err
	}
	before := h.PermissionContext()
	if !guard.CanUpdateHotlist(&before) {
		return Hotlist{}, shared.ErrForbidden
	}
	if err := s.checkResources(ctx, in.ResourceIDs); err != nil {
		return Hotlist{}, err
	}
	h.Name = strings.TrimSpace(in.Name)
	h.AccountID = strings.TrimSpace(in.AccountID)
	h.ResourceIDs = in.ResourceIDs
	after := h.PermissionContext()
	if after != before && !guard.CanUpdateHotlist(&after) {
		return Hotlist{}, shared.ErrForbidden
	}
	h.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveHotlist(ctx, h); err != nil {
		return Hotlist{}, fmt.Errorf("bench: save hotlist: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceUpdated, shared.ActionEdit, after)
	return h, nil
}

// DeleteHotlist removes a hotlist.
func (s *Service) DeleteHotlist(ctx context.Context, guard *rbac.Guard, id string) error {
	if err := guard.Err(); err != nil {
		return err
	}
	h, err := s.repo.GetHotlist(ctx, id)
	if err != nil {
		return err
	}
	pctx := h.PermissionContext()
	if !guard.CanDeleteHotlist(&pctx) {
		return shared.ErrForbidden
	}
	if err := s.repo.DeleteHotlist(ctx, id); err != nil {
		return fmt.Errorf("bench: delete hotlist: %w", err)
	}
	s.emit(ctx, guard, audit.EventResourceDeleted, shared.ActionDelete, pctx)
	return nil
}

func (s *Service) validate(in any) error {
	if err := s.validator.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (s *Service) checkResources(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.repo.GetResource(ctx, id); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return fmt.Errorf("%w: unknown resource %s", httpx.ErrValidation, id)
			}
			return err
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, guard *rbac.Guard, eventType audit.EventType, action string, pctx rbac.PermissionContext) {
	if s.events == nil {
		return
	}
	actor := guard.Actor()
	details := map[string]any{}
	if pctx.AccountID != "" {
		details["account_id"] = pctx.AccountID
	}
	s.events.LogEvent(context.WithoutCancel(ctx), audit.Event{
		EventType:     eventType,
		ActorID:       actor.ID,
		ActorRoles:    []shared.Role{actor.Role},
		ResourceType:  string(pctx.ResourceType),
		ResourceID:    pctx.ResourceID,
		Action:        action,
		Details:       details,
		Success:       true,
		SecurityLevel: audit.LevelLow,
	})
}
