package rbac

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/staffhub/staffhub/internal/shared"
)

var (
	// ErrMatrixIncomplete indicates a role of the enumeration has no definition.
	ErrMatrixIncomplete = errors.New("rbac: matrix incomplete")
	// ErrDuplicateRole indicates a role defined more than once.
	ErrDuplicateRole = errors.New("rbac: duplicate role definition")
	// ErrInheritanceCycle indicates roles inheriting from each other.
	ErrInheritanceCycle = errors.New("rbac: inheritance cycle")
)

// PermissionSet is a set of permissions.
type PermissionSet map[shared.Permission]struct{}

// Has reports membership.
func (s PermissionSet) Has(p shared.Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []shared.Permission {
	out := slices.Collect(maps.Keys(s))
	slices.Sort(out)
	return out
}

// Matrix is an immutable, fully resolved role to permission mapping.
type Matrix struct {
	defs    map[shared.Role]RoleDefinition
	perms   map[shared.Role]PermissionSet
	ignored []string
}

// BuildMatrix resolves inheritance and wildcards. Every role of the closed
// enumeration must be defined exactly once.
func BuildMatrix(defs []RoleDefinition) (*Matrix, error) {
	byRole := make(map[shared.Role]RoleDefinition, len(defs))
	for _, def := range defs {
		if !def.Role.Valid() {
			return nil, &shared.UnknownRoleError{Role: string(def.Role)}
		}
		if _, dup := byRole[def.Role]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, def.Role)
		}
		for _, parent := range def.Inherits {
			if !parent.Valid() {
				return nil, &shared.UnknownRoleError{Role: string(parent)}
			}
		}
		byRole[def.Role] = def
	}
	var missing []string
	for _, role := range shared.AllRoles() {
		if _, ok := byRole[role]; !ok {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMatrixIncomplete, strings.Join(missing, ", "))
	}

	m := &Matrix{
		defs:  byRole,
		perms: make(map[shared.Role]PermissionSet, len(byRole)),
	}
	own := make(map[shared.Role]PermissionSet, len(byRole))
	ignored := make(map[string]struct{})
	for role, def := range byRole {
		set := make(PermissionSet)
		for _, raw := range def.Permissions {
			expanded := expandPermission(raw)
			if len(expanded) == 0 {
				ignored[string(role)+"="+raw] = struct{}{}
				continue
			}
			for _, p := range expanded {
				set[p] = struct{}{}
			}
		}
		own[role] = set
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[shared.Role]int, len(byRole))
	var resolve func(role shared.Role, path []shared.Role) error
	resolve = func(role shared.Role, path []shared.Role) error {
		switch state[role] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrInheritanceCycle, joinRoles(append(path, role)))
		}
		state[role] = visiting
		set := maps.Clone(own[role])
		for _, parent := range byRole[role].Inherits {
			if err := resolve(parent, append(path, role)); err != nil {
				return err
			}
			maps.Copy(set, m.perms[parent])
		}
		m.perms[role] = set
		state[role] = done
		return nil
	}
	for _, role := range shared.AllRoles() {
		if err := resolve(role, nil); err != nil {
			return nil, err
		}
	}
	m.ignored = slices.Sorted(maps.Keys(ignored))
	return m, nil
}

// expandPermission turns a matrix entry into concrete permissions. Entries
// outside the vocabulary expand to nothing.
func expandPermission(raw string) []shared.Permission {
	entry := strings.ToLower(strings.TrimSpace(raw))
	if entry == "*" {
		return shared.AllPermissions()
	}
	if resource, ok := strings.CutSuffix(entry, ":*"); ok {
		var out []shared.Permission
		for _, p := range shared.AllPermissions() {
			if p.Resource() == resource {
				out = append(out, p)
			}
		}
		return out
	}
	p, err := shared.ParsePermission(entry)
	if err != nil {
		return nil
	}
	return []shared.Permission{p}
}

// PermissionsForRole returns a copy of the resolved permission set.
func (m *Matrix) PermissionsForRole(role shared.Role) (PermissionSet, error) {
	set, ok := m.perms[role]
	if !ok {
		return nil, &shared.UnknownRoleError{Role: string(role)}
	}
	return maps.Clone(set), nil
}

// Grants reports whether role holds p. It panics on a role outside the
// enumeration.
func (m *Matrix) Grants(role shared.Role, p shared.Permission) bool {
	set, ok := m.perms[role]
	if !ok {
		panic(&shared.UnknownRoleError{Role: string(role)})
	}
	return set.Has(p)
}

// RoleDisplayName returns the registered label or the raw identifier.
func (m *Matrix) RoleDisplayName(role shared.Role) string {
	if def, ok := m.defs[role]; ok && strings.TrimSpace(def.DisplayName) != "" {
		return def.DisplayName
	}
	return string(role)
}

// Summaries lists every role in enumeration order.
func (m *Matrix) Summaries() []RoleSummary {
	out := make([]RoleSummary, 0, len(m.defs))
	for _, role := range shared.AllRoles() {
		out = append(out, RoleSummary{
			Role:        role,
			DisplayName: m.RoleDisplayName(role),
			Inherits:    slices.Clone(m.defs[role].Inherits),
			Permissions: m.perms[role].Sorted(),
		})
	}
	return out
}

// Definition returns the unresolved definition of role.
func (m *Matrix) Definition(role shared.Role) (RoleDefinition, bool) {
	def, ok := m.defs[role]
	return def, ok
}

// Ignored lists "role=entry" pairs dropped because they named no known permission.
func (m *Matrix) Ignored() []string {
	return slices.Clone(m.ignored)
}

func joinRoles(roles []shared.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " -> ")
}
