package rbac

import (
	"github.com/staffhub/staffhub/internal/shared"
)

// Predicate decides whether an actor may act on the resource described by pctx.
// Predicates must fail closed when the data they depend on is missing.
type Predicate func(actor *shared.Actor, pctx PermissionContext) bool

// NarrowingRule restricts a role's grant for some actions on one resource type.
type NarrowingRule struct {
	Role         shared.Role
	ResourceType ResourceType
	Actions      []string
	Predicate    Predicate
}

type narrowingKey struct {
	role     shared.Role
	resource ResourceType
	action   string
}

// Narrowing is an immutable registry of narrowing rules.
type Narrowing struct {
	rules map[narrowingKey]Predicate
}

// NewNarrowing indexes rules by role, resource type and action. A later rule
// for the same key replaces an earlier one.
func NewNarrowing(rules ...NarrowingRule) *Narrowing {
	n := &Narrowing{rules: make(map[narrowingKey]Predicate)}
	for _, rule := range rules {
		if rule.Predicate == nil {
			continue
		}
		for _, action := range rule.Actions {
			n.rules[narrowingKey{rule.Role, rule.ResourceType, action}] = rule.Predicate
		}
	}
	return n
}

func (n *Narrowing) lookup(role shared.Role, rt ResourceType, action string) (Predicate, bool) {
	if n == nil {
		return nil, false
	}
	p, ok := n.rules[narrowingKey{role, rt, action}]
	return p, ok
}

// DefaultNarrowing returns the platform's narrowing rules.
func DefaultNarrowing() *Narrowing {
	return NewNarrowing(
		NarrowingRule{
			Role:         shared.RoleBenchSales,
			ResourceType: ResourceBench,
			Actions:      []string{shared.ActionView, shared.ActionEdit, shared.ActionDelete},
			Predicate:    OwnerOrAccount,
		},
		NarrowingRule{
			Role:         shared.RoleBenchSales,
			ResourceType: ResourceHotlist,
			Actions:      []string{shared.ActionEdit, shared.ActionDelete},
			Predicate:    OwnerOrAccount,
		},
		NarrowingRule{
			Role:         shared.RoleAccountManager,
			ResourceType: ResourceAnalytics,
			Actions:      []string{shared.ActionView},
			Predicate:    AccountMember,
		},
		NarrowingRule{
			Role:         shared.RoleVendorCoordinator,
			ResourceType: ResourceVendor,
			Actions:      []string{shared.ActionEdit},
			Predicate:    OwnerOnly,
		},
		NarrowingRule{
			Role:         shared.RoleRecruiter,
			ResourceType: ResourceCandidate,
			Actions:      []string{shared.ActionEdit},
			Predicate:    OwnerOrAccount,
		},
	)
}

// ownerFields selects the ownership field per resource type. Bench resources
// belong to the employee who benched them; the rest to their creator.
var ownerFields = map[ResourceType]func(PermissionContext) string{
	ResourceBench:     func(c PermissionContext) string { return c.EmployeeID },
	ResourceHotlist:   func(c PermissionContext) string { return c.CreatedBy },
	ResourceVendor:    func(c PermissionContext) string { return c.CreatedBy },
	ResourceCandidate: func(c PermissionContext) string { return c.CreatedBy },
	ResourcePOC:       func(c PermissionContext) string { return c.CreatedBy },
}

// OwnerOf returns the owning user id of the resource, or "" when the resource
// type has no ownership field.
func OwnerOf(pctx PermissionContext) string {
	field, ok := ownerFields[pctx.ResourceType]
	if !ok {
		return ""
	}
	return field(pctx)
}

// OwnerOnly allows actors that own the resource.
func OwnerOnly(actor *shared.Actor, pctx PermissionContext) bool {
	return actor.Is(OwnerOf(pctx))
}

// AccountMember allows actors associated with the resource's account.
func AccountMember(actor *shared.Actor, pctx PermissionContext) bool {
	return actor.InAccount(pctx.AccountID)
}

// OwnerOrAccount allows owners and members of the resource's account.
func OwnerOrAccount(actor *shared.Actor, pctx PermissionContext) bool {
	return OwnerOnly(actor, pctx) || AccountMember(actor, pctx)
}

// resourceTypes maps permission resources to the resource type of their
// context.
var resourceTypes = map[string]ResourceType{
	"bench_resources": ResourceBench,
	"hotlists":        ResourceHotlist,
	"analytics":       ResourceAnalytics,
	"vendor":          ResourceVendor,
	"candidates":      ResourceCandidate,
	"poc":             ResourcePOC,
}

// ResourceTypeOf returns the resource type a permission applies to.
func ResourceTypeOf(p shared.Permission) (ResourceType, bool) {
	rt, ok := resourceTypes[p.Resource()]
	return rt, ok
}
