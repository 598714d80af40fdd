package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/staffhub/staffhub/internal/shared"
	"github.com/staffhub/staffhub/internal/users"
)

// ErrInvalidCredentials indicates a failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service wraps authentication business rules.
type Service struct {
	users UserLookup
}

// NewService constructs a new Service.
func NewService(lookup UserLookup) *Service {
	return &Service{users: lookup}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !user.Role.Valid() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
