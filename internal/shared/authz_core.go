package shared

import (
	"fmt"
	"strings"
)

// Permission is an atomic resource:action capability.
type Permission string

// Platform administration permissions.
const (
	PermAdminUserManagement Permission = "admin:user_management"
	PermAdminRoleManagement Permission = "admin:role_management"
	PermAdminSettings       Permission = "admin:settings"
)

// CoreScopes lists all permissions related to platform administration.
func CoreScopes() []Permission {
	return []Permission{
		PermAdminUserManagement,
		PermAdminRoleManagement,
		PermAdminSettings,
	}
}

var permissionIndex = func() map[Permission]struct{} {
	all := AllPermissions()
	idx := make(map[Permission]struct{}, len(all))
	for _, p := range all {
		idx[p] = struct{}{}
	}
	return idx
}()

// AllPermissions returns the closed permission vocabulary.
func AllPermissions() []Permission {
	var all []Permission
	all = append(all, BenchScopes()...)
	all = append(all, RecruitingScopes()...)
	all = append(all, VendorScopes()...)
	all = append(all, AuditScopes()...)
	all = append(all, CoreScopes()...)
	return all
}

// ParsePermission maps a raw string to a known permission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return p, nil
}

// PermissionFor joins resource and action and validates the result.
func PermissionFor(resource, action string) (Permission, error) {
	return ParsePermission(strings.TrimSpace(resource) + ":" + strings.TrimSpace(action))
}

// Known reports whether p belongs to the vocabulary.
func (p Permission) Known() bool {
	_, ok := permissionIndex[p]
	return ok
}

// Resource returns the part before the colon.
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

// Action returns the part after the colon.
func (p Permission) Action() string {
	_, action, _ := strings.Cut(string(p), ":")
	return action
}

// Sensitive marks permissions whose checks are always audited.
func (p Permission) Sensitive() bool {
	if p.Action() == ActionDelete || p.Resource() == "admin" {
		return true
	}
	switch p {
	case PermConsentRevoke, PermAuditExport, PermComplianceManage, PermVendorApprove:
		return true
	}
	return false
}

func (p Permission) String() string {
	return string(p)
}

// Common actions.
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)
