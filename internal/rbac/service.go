package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// ErrReadOnlyMatrix is returned by role writes when the matrix comes from a
// file rather than the database.
var ErrReadOnlyMatrix = errors.New("rbac: matrix source is read-only")

// RoleWriter applies an edit to one stored role. Implementations validate the
// edited matrix against the stored state, not a cached copy, and must
// serialize concurrent edits.
type RoleWriter interface {
	UpdateRole(ctx context.Context, role shared.Role, change func(*RoleDefinition)) (RoleDefinition, error)
}

// Publisher announces matrix versions to other instances.
type Publisher interface {
	Publish(ctx context.Context, version int64) error
}

// Service manages roles at runtime.
type Service struct {
	store     *MatrixStore
	writer    RoleWriter
	publisher Publisher
	events    EventLogger
	logger    *slog.Logger
}

// ServiceParams groups Service dependencies. Writer, Publisher and Events are
// optional; without a Writer the service is read-only.
type ServiceParams struct {
	Store     *MatrixStore
	Writer    RoleWriter
	Publisher Publisher
	Events    EventLogger
	Logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(p ServiceParams) *Service {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Service{store: p.Store, writer: p.Writer, publisher: p.Publisher, events: p.Events, logger: p.Logger}
}

// ListRoles returns every role with its resolved permissions.
func (s *Service) ListRoles(ctx context.Context, guard *Guard) ([]RoleSummary, error) {
	if err := requireRoleManagement(guard); err != nil {
		return nil, err
	}
	return s.store.Current().Summaries(), nil
}

// SetRolePermissions replaces the direct permission entries of role.
func (s *Service) SetRolePermissions(ctx context.Context, guard *Guard, role shared.Role, perms []string) (RoleSummary, error) {
	normalized := make([]string, 0, len(perms))
	for _, raw := range perms {
		p := strings.ToLower(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		if !validEntry(p) {
			return RoleSummary{}, fmt.Errorf("%w: unknown permission %q", httpx.ErrValidation, raw)
		}
		normalized = append(normalized, p)
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	return s.update(ctx, guard, role, "permissions", func(def *RoleDefinition) {
		def.Permissions = normalized
	})
}

// SetRoleInherits replaces the parents of role.
func (s *Service) SetRoleInherits(ctx context.Context, guard *Guard, role shared.Role, parents []shared.Role) (RoleSummary, error) {
	for _, p := range parents {
		if !p.Valid() {
			return RoleSummary{}, fmt.Errorf("%w: %v", httpx.ErrValidation, &shared.UnknownRoleError{Role: string(p)})
		}
	}
	return s.update(ctx, guard, role, "inherits", func(def *RoleDefinition) {
		def.Inherits = slices.Clone(parents)
	})
}

// Reload rebuilds the matrix from its source and notifies other instances.
func (s *Service) Reload(ctx context.Context, guard *Guard) (int64, error) {
	if err := requireRoleManagement(guard); err != nil {
		return 0, err
	}
	s.store.Invalidate()
	if err := s.store.Reload(ctx); err != nil {
		return 0, err
	}
	version := s.store.Version()
	s.publish(ctx, version)
	s.emit(ctx, guard.Actor(), audit.EventMatrixReloaded, "", map[string]any{"version": version})
	return version, nil
}

func (s *Service) update(ctx context.Context, guard *Guard, role shared.Role, field string, apply func(*RoleDefinition)) (RoleSummary, error) {
	if err := requireRoleManagement(guard); err != nil {
		return RoleSummary{}, err
	}
	if !role.Valid() {
		return RoleSummary{}, fmt.Errorf("%w: %v", httpx.ErrNotFound, &shared.UnknownRoleError{Role: string(role)})
	}
	if s.writer == nil {
		return RoleSummary{}, ErrReadOnlyMatrix
	}
	updated, err := s.writer.UpdateRole(ctx, role, apply)
	if err != nil {
		return RoleSummary{}, err
	}
	s.store.Invalidate()
	if err := s.store.Reload(ctx); err != nil {
		return RoleSummary{}, err
	}
	s.publish(ctx, s.store.Version())
	s.emit(ctx, guard.Actor(), audit.EventRoleChanged, string(role), map[string]any{
		"field":       field,
		"permissions": updated.Permissions,
		"inherits":    updated.Inherits,
	})
	for _, summary := range s.store.Current().Summaries() {
		if summary.Role == role {
			return summary, nil
		}
	}
	return RoleSummary{}, httpx.ErrNotFound
}

func (s *Service) publish(ctx context.Context, version int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, version); err != nil {
		s.logger.Warn("rbac publish reload", slog.Int64("version", version), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, actor *shared.Actor, eventType audit.EventType, roleID string, details map[string]any) {
	if s.events == nil {
		return
	}
	s.events.LogEvent(context.WithoutCancel(ctx), audit.Event{
		EventType:     eventType,
		ActorID:       actor.ID,
		ActorRoles:    []shared.Role{actor.Role},
		ResourceType:  "role",
		ResourceID:    roleID,
		Action:        "edit",
		Details:       details,
		Success:       true,
		SecurityLevel: audit.LevelHigh,
	})
}

func requireRoleManagement(guard *Guard) error {
	if err := guard.Err(); err != nil {
		return err
	}
	if !guard.CanManageRoles() {
		return shared.ErrForbidden
	}
	return nil
}

// ApplyRoleChange edits role within defs and checks the result still builds.
// It returns the full edited set and the edited definition. Build failures
// wrap httpx.ErrValidation.
func ApplyRoleChange(defs []RoleDefinition, role shared.Role, change func(*RoleDefinition)) ([]RoleDefinition, RoleDefinition, error) {
	out := make([]RoleDefinition, 0, len(defs)+1)
	found := false
	var updated RoleDefinition
	for _, def := range defs {
		if def.Role == role {
			change(&def)
			updated, found = def, true
		}
		out = append(out, def)
	}
	if !found {
		updated = RoleDefinition{Role: role}
		change(&updated)
		out = append(out, updated)
	}
	if _, err := BuildMatrix(out); err != nil {
		return nil, RoleDefinition{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return out, updated, nil
}

func validEntry(entry string) bool {
	return len(expandPermission(entry)) > 0
}
