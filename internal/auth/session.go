package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/staffhub/staffhub/internal/shared"
	"github.com/staffhub/staffhub/internal/users"
)

// UserLookup loads users for session and login flows.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}

// SessionResolver expands the user id held in the cookie session into an
// actor. The session must already be loaded into the request context.
type SessionResolver struct {
	users UserLookup
}

// NewSessionResolver builds a SessionResolver.
func NewSessionResolver(lookup UserLookup) *SessionResolver {
	return &SessionResolver{users: lookup}
}

// Resolve implements Resolver.
func (s *SessionResolver) Resolve(ctx context.Context, r *http.Request) (*shared.Actor, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		return nil, shared.ErrNoActor
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return nil, shared.ErrNoActor
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNoActor
		}
		return nil, fmt.Errorf("auth: load session user: %w", err)
	}
	if !user.IsActive {
		return nil, shared.ErrNoActor
	}
	if !user.Role.Valid() {
		return nil, &shared.UnknownRoleError{Role: string(user.Role)}
	}
	return user.Actor(), nil
}
