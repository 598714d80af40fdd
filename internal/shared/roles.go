package shared

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Role names a bundle of permissions assigned to an actor.
type Role string

// Roles known to the platform. The set is closed.
const (
	RoleAdmin             Role = "admin"
	RoleBenchSales        Role = "bench_sales"
	RoleAccountManager    Role = "account_manager"
	RoleCIOCTO            Role = "cio_cto"
	RoleRecruiter         Role = "recruiter"
	RoleVendorAdmin       Role = "vendor_admin"
	RoleVendorManager     Role = "vendor_manager"
	RoleVendorCoordinator Role = "vendor_coordinator"
	RolePOCManager        Role = "poc_manager"
	RoleComplianceOfficer Role = "compliance_officer"
	RoleHRManager         Role = "hr_manager"
	RoleViewer            Role = "viewer"
)

// AllRoles returns every role in a fixed order.
func AllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleBenchSales,
		RoleAccountManager,
		RoleCIOCTO,
		RoleRecruiter,
		RoleVendorAdmin,
		RoleVendorManager,
		RoleVendorCoordinator,
		RolePOCManager,
		RoleComplianceOfficer,
		RoleHRManager,
		RoleViewer,
	}
}

// ParseRole maps a raw identifier onto the closed role set.
func ParseRole(raw string) (Role, error) {
	folded := Role(cases.Fold().String(strings.TrimSpace(raw)))
	if !folded.Valid() {
		return "", &UnknownRoleError{Role: raw}
	}
	return folded, nil
}

// Valid reports whether r belongs to the closed set.
func (r Role) Valid() bool {
	for _, known := range AllRoles() {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// UnknownRoleError reports a role outside the closed enumeration.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q", e.Role)
}
