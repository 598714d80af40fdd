package users

import (
	"time"

	"github.com/staffhub/staffhub/internal/shared"
)

// User is a platform account with its single role and account assignments.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         shared.Role `json:"role"`
	AccountIDs   []string    `json:"account_ids"`
	PasswordHash string      `json:"-"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Actor converts the user into the subject of permission checks.
func (u *User) Actor() *shared.Actor {
	return shared.NewActor(u.ID, u.Role, u.AccountIDs...)
}

// CreateInput carries the fields needed to create a user.
type CreateInput struct {
	Email      string   `json:"email" validate:"required,email"`
	Name       string   `json:"name" validate:"required,max=120"`
	Password   string   `json:"password" validate:"required,min=8"`
	Role       string   `json:"role" validate:"required"`
	AccountIDs []string `json:"account_ids" validate:"dive,required"`
}
