package rbac

import (
	"github.com/staffhub/staffhub/internal/shared"
)

// MatrixReader exposes the matrix in effect.
type MatrixReader interface {
	Current() *Matrix
}

// Evaluator combines the role gate with resource narrowing. It holds no
// per-request state and is safe for concurrent use.
type Evaluator struct {
	matrix    MatrixReader
	narrowing *Narrowing
}

// NewEvaluator constructs an Evaluator. A nil narrowing registry applies no
// narrowing.
func NewEvaluator(matrix MatrixReader, narrowing *Narrowing) *Evaluator {
	return &Evaluator{matrix: matrix, narrowing: narrowing}
}

// Evaluate decides whether actor may use perm on the resource described by
// pctx. A nil actor or a role outside the enumeration is a programming error
// and panics.
func (e *Evaluator) Evaluate(actor *shared.Actor, perm shared.Permission, pctx *PermissionContext) bool {
	if actor == nil {
		panic("rbac: evaluate called without actor")
	}
	if !e.matrix.Current().Grants(actor.Role, perm) {
		return false
	}
	if pctx == nil {
		return true
	}
	return e.narrow(actor, perm, *pctx)
}

func (e *Evaluator) narrow(actor *shared.Actor, perm shared.Permission, pctx PermissionContext) bool {
	rt, scoped := ResourceTypeOf(perm)
	if !scoped {
		return true
	}
	if pctx.ResourceType == "" {
		pctx.ResourceType = rt
	} else if pctx.ResourceType != rt {
		// Context describes a different kind of resource than the permission.
		return false
	}
	predicate, ok := e.narrowing.lookup(actor.Role, pctx.ResourceType, perm.Action())
	if !ok {
		return true
	}
	return predicate(actor, pctx)
}

// FilterByOwnership keeps the items actor may use perm on. Roles without a
// narrowing rule for perm get items back unchanged; roles lacking perm get
// nothing.
func FilterByOwnership[T Owned](e *Evaluator, actor *shared.Actor, perm shared.Permission, items []T) []T {
	if actor == nil {
		panic("rbac: filter called without actor")
	}
	if !e.matrix.Current().Grants(actor.Role, perm) {
		return []T{}
	}
	rt, scoped := ResourceTypeOf(perm)
	if !scoped {
		return items
	}
	if _, ok := e.narrowing.lookup(actor.Role, rt, perm.Action()); !ok {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		pctx := item.PermissionContext()
		if e.narrow(actor, perm, pctx) {
			out = append(out, item)
		}
	}
	return out
}
