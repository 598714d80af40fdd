package bench

import (
	"time"

	"github.com/staffhub/staffhub/internal/rbac"
)

// Status tracks where a benched consultant is in the placement cycle.
type Status string

// Bench statuses.
const (
	StatusAvailable    Status = "available"
	StatusInterviewing Status = "interviewing"
	StatusPlaced       Status = "placed"
)

// Resource is a consultant on the bench, owned by the employee who benched
// them and shared with one client account.
type Resource struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Skill      string    `json:"skill"`
	EmployeeID string    `json:"employee_id"`
	AccountID  string    `json:"account_id,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PermissionContext implements rbac.Owned.
func (r Resource) PermissionContext() rbac.PermissionContext {
	return rbac.PermissionContext{
		ResourceType: rbac.ResourceBench,
		ResourceID:   r.ID,
		AccountID:    r.AccountID,
		EmployeeID:   r.EmployeeID,
	}
}

// Hotlist is a curated list of bench resources sent to clients.
type Hotlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedBy   string    `json:"created_by"`
	AccountID   string    `json:"account_id,omitempty"`
	ResourceIDs []string  `json:"resource_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionContext implements rbac.Owned.
func (h Hotlist) PermissionContext() rbac.PermissionContext {
	return rbac.PermissionContext{
		ResourceType: rbac.ResourceHotlist,
		ResourceID:   h.ID,
		AccountID:    h.AccountID,
		CreatedBy:    h.CreatedBy,
	}
}

// ResourceInput carries writable resource fields. EmployeeID defaults to the
// acting user on create.
type ResourceInput struct {
	Name       string `json:"name" validate:"required,max=120"`
	Skill      string `json:"skill" validate:"required,max=80"`
	EmployeeID string `json:"employee_id" validate:"omitempty,max=64"`
	AccountID  string `json:"account_id" validate:"omitempty,max=64"`
	Status     Status `json:"status" validate:"omitempty,oneof=available interviewing placed"`
}

// HotlistInput carries writable hotlist fields.
type HotlistInput struct {
	Name        string   `json:"name" validate:"required,max=120"`
	AccountID   string   `json:"account_id" validate:"omitempty,max=64"`
	ResourceIDs []string `json:"resource_ids" validate:"unique,dive,required"`
}
