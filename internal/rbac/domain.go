package rbac

import (
	"github.com/staffhub/staffhub/internal/shared"
)

// RoleDefinition is the unresolved form of a role as stored in a matrix source.
// Permissions may hold exact permissions, "resource:*" or "*".
type RoleDefinition struct {
	Role        shared.Role   `yaml:"role" json:"role"`
	DisplayName string        `yaml:"display_name" json:"display_name"`
	Inherits    []shared.Role `yaml:"inherits" json:"inherits,omitempty"`
	Permissions []string      `yaml:"permissions" json:"permissions"`
}

// ResourceType classifies the resource a permission check is scoped to.
type ResourceType string

// Resource types that carry ownership or account data.
const (
	ResourceBench     ResourceType = "bench_resource"
	ResourceHotlist   ResourceType = "hotlist"
	ResourceAnalytics ResourceType = "analytics"
	ResourceVendor    ResourceType = "vendor"
	ResourceCandidate ResourceType = "candidate"
	ResourcePOC       ResourceType = "poc"
)

// PermissionContext narrows an otherwise granted permission to one resource.
// It never grants anything the role lacks.
type PermissionContext struct {
	ResourceType ResourceType `json:"resource_type"`
	ResourceID   string       `json:"resource_id,omitempty"`
	AccountID    string       `json:"account_id,omitempty"`
	VendorType   string       `json:"vendor_type,omitempty"`
	CreatedBy    string       `json:"created_by,omitempty"`
	EmployeeID   string       `json:"employee_id,omitempty"`
}

// Owned is implemented by records that can be filtered by ownership.
type Owned interface {
	PermissionContext() PermissionContext
}

// RoleSummary describes a resolved role for listings.
type RoleSummary struct {
	Role        shared.Role         `json:"role"`
	DisplayName string              `json:"display_name"`
	Inherits    []shared.Role       `json:"inherits,omitempty"`
	Permissions []shared.Permission `json:"permissions"`
}
