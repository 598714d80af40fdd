package users

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user User) error
	SetRole(ctx context.Context, id string, role shared.Role) error
	SetAccounts(ctx context.Context, id string, accountIDs []string) error
}

// Gate answers the user management checks for the current actor.
type Gate interface {
	Err() error
	Actor() *shared.Actor
	CanManageUsers() bool
	CanGrantRole(role shared.Role) bool
}

// EventLogger receives audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, event audit.Event)
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	events    EventLogger
	validator *validator.Validate
}

// NewService builds Service instance. events may be nil.
func NewService(repo RepositoryPort, events EventLogger) *Service {
	return &Service{repo: repo, events: events, validator: validator.New()}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context, gate Gate) ([]User, error) {
	if err := authorize(gate); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// Create registers a new user with a hashed password.
func (s *Service) Create(ctx context.Context, gate Gate, in CreateInput) (*User, error) {
	if err := authorize(gate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	role, err := shared.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if !gate.CanGrantRole(role) {
		return nil, shared.ErrForbidden
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Name:         strings.TrimSpace(in.Name),
		Role:         role,
		AccountIDs:   normalizeAccounts(in.AccountIDs),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.emit(ctx, gate.Actor(), audit.EventResourceCreated, user.ID, map[string]any{"role": string(role)})
	return &user, nil
}

// AssignRole replaces the role of a user.
func (s *Service) AssignRole(ctx context.Context, gate Gate, userID string, rawRole string) (*User, error) {
	if err := authorize(gate); err != nil {
		return nil, err
	}
	role, err := shared.ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	before, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Both sides count: demoting a stronger user is as much an escalation as
	// promoting one.
	if !gate.CanGrantRole(before.Role) || !gate.CanGrantRole(role) {
		return nil, shared.ErrForbidden
	}
	if err := s.repo.SetRole(ctx, userID, role); err != nil {
		return nil, err
	}
	s.emit(ctx, gate.Actor(), audit.EventRoleChanged, userID, map[string]any{
		"from": string(before.Role),
		"to":   string(role),
	})
	return s.repo.FindByID(ctx, userID)
}

// AssignAccounts replaces the account assignments of a user.
func (s *Service) AssignAccounts(ctx context.Context, gate Gate, userID string, accountIDs []string) (*User, error) {
	if err := authorize(gate); err != nil {
		return nil, err
	}
	accounts := normalizeAccounts(accountIDs)
	if err := s.repo.SetAccounts(ctx, userID, accounts); err != nil {
		return nil, err
	}
	s.emit(ctx, gate.Actor(), audit.EventResourceUpdated, userID, map[string]any{"account_ids": accounts})
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) emit(ctx context.Context, actor *shared.Actor, eventType audit.EventType, userID string, details map[string]any) {
	if s.events == nil || actor == nil {
		return
	}
	s.events.LogEvent(context.WithoutCancel(ctx), audit.Event{
		EventType:     eventType,
		ActorID:       actor.ID,
		ActorRoles:    []shared.Role{actor.Role},
		ResourceType:  "user",
		ResourceID:    userID,
		Action:        "edit",
		Details:       details,
		Success:       true,
		SecurityLevel: audit.LevelHigh,
	})
}

func authorize(gate Gate) error {
	if gate == nil {
		return shared.ErrNoActor
	}
	if err := gate.Err(); err != nil {
		return err
	}
	if !gate.CanManageUsers() {
		return shared.ErrForbidden
	}
	return nil
}

func normalizeAccounts(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
