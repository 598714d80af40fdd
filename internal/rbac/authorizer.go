package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/shared"
)

// EventLogger receives audit events. Implementations must not block.
type EventLogger interface {
	LogEvent(ctx context.Context, event audit.Event)
}

// DecisionObserver counts permission decisions.
type DecisionObserver interface {
	ObserveDecision(perm shared.Permission, allowed bool)
}

// Authorizer is the entry point for permission checks. It is shared across
// requests; per-request state lives in the Guard returned by For.
type Authorizer struct {
	evaluator *Evaluator
	matrix    MatrixReader
	events    EventLogger
	decisions DecisionObserver
	logger    *slog.Logger
}

// AuthorizerParams groups the Authorizer dependencies. Events and Decisions
// are optional.
type AuthorizerParams struct {
	Matrix    MatrixReader
	Narrowing *Narrowing
	Events    EventLogger
	Decisions DecisionObserver
	Logger    *slog.Logger
}

// NewAuthorizer wires an Authorizer.
func NewAuthorizer(p AuthorizerParams) *Authorizer {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Authorizer{
		evaluator: NewEvaluator(p.Matrix, p.Narrowing),
		matrix:    p.Matrix,
		events:    p.Events,
		decisions: p.Decisions,
		logger:    p.Logger,
	}
}

// Evaluator exposes the underlying evaluator for list filtering.
func (a *Authorizer) Evaluator() *Evaluator {
	return a.evaluator
}

// For returns the permission facade for actor. A nil actor yields a guard
// that denies everything.
func (a *Authorizer) For(ctx context.Context, actor *shared.Actor) *Guard {
	return &Guard{ctx: ctx, actor: actor, auth: a}
}

// FromContext returns the guard for the actor stored in ctx.
func (a *Authorizer) FromContext(ctx context.Context) *Guard {
	return a.For(ctx, shared.ActorFromContext(ctx))
}

func (a *Authorizer) decide(ctx context.Context, actor *shared.Actor, perm shared.Permission, pctx *PermissionContext, audited bool) bool {
	allowed := a.evaluator.Evaluate(actor, perm, pctx)
	if a.decisions != nil {
		a.decisions.ObserveDecision(perm, allowed)
	}
	if audited && perm.Sensitive() {
		a.emitDecision(ctx, actor, perm, pctx, allowed)
	}
	return allowed
}

func (a *Authorizer) emitDecision(ctx context.Context, actor *shared.Actor, perm shared.Permission, pctx *PermissionContext, allowed bool) {
	if a.events == nil {
		return
	}
	event := audit.Event{
		EventType:     audit.EventPermissionGranted,
		ActorID:       actor.ID,
		ActorRoles:    []shared.Role{actor.Role},
		Action:        perm.Action(),
		Details:       map[string]any{"permission": string(perm)},
		Success:       allowed,
		SecurityLevel: audit.LevelMedium,
	}
	if !allowed {
		event.EventType = audit.EventUnauthorizedAccess
		event.SecurityLevel = audit.LevelHigh
	}
	if perm.Resource() == "admin" {
		event.SecurityLevel = audit.LevelCritical
	}
	if pctx != nil {
		event.ResourceType = string(pctx.ResourceType)
		event.ResourceID = pctx.ResourceID
		if pctx.AccountID != "" {
			event.Details["account_id"] = pctx.AccountID
		}
	}
	if event.ResourceType == "" {
		event.ResourceType = perm.Resource()
	}
	a.events.LogEvent(context.WithoutCancel(ctx), event)
}

// Guard is the request-scoped permission facade for one actor. Every check is
// a pure function of the actor, the permission and the context, apart from
// audit emission for sensitive permissions.
type Guard struct {
	ctx   context.Context
	actor *shared.Actor
	auth  *Authorizer
}

// Actor returns the actor the guard checks for, or nil.
func (g *Guard) Actor() *shared.Actor {
	if g == nil {
		return nil
	}
	return g.actor
}

// Err returns shared.ErrNoActor when no actor was resolved.
func (g *Guard) Err() error {
	if g == nil || g.actor == nil {
		return shared.ErrNoActor
	}
	return nil
}

// Can checks perm with optional resource context.
func (g *Guard) Can(perm shared.Permission, pctx *PermissionContext) bool {
	if g.Err() != nil {
		return false
	}
	return g.auth.decide(g.ctx, g.actor, perm, pctx, true)
}

// HasPermission checks a resource:action pair. Pairs outside the vocabulary
// are never granted.
func (g *Guard) HasPermission(resource, action string, pctx *PermissionContext) bool {
	perm, err := shared.PermissionFor(resource, action)
	if err != nil {
		return false
	}
	return g.Can(perm, pctx)
}

// CanAny reports whether any of perms is granted without resource context.
// It does not emit audit events: it backs menu visibility, which is advisory,
// and the action behind every entry runs its own audited check.
func (g *Guard) CanAny(perms ...shared.Permission) bool {
	if g.Err() != nil {
		return false
	}
	for _, p := range perms {
		if g.auth.decide(g.ctx, g.actor, p, nil, false) {
			return true
		}
	}
	return false
}

// Denial explains, without internal identifiers, why perm is refused.
// It returns "" when perm is granted.
func (g *Guard) Denial(perm shared.Permission, pctx *PermissionContext) string {
	if g.Err() != nil {
		return "You need to sign in to continue."
	}
	if !perm.Known() {
		return "This action is not available."
	}
	m := g.auth.matrix.Current()
	if !m.Grants(g.actor.Role, perm) {
		return fmt.Sprintf("The %s role does not include %s access to %s.",
			m.RoleDisplayName(g.actor.Role), perm.Action(), perm.Resource())
	}
	if pctx != nil && !g.auth.evaluator.Evaluate(g.actor, perm, pctx) {
		return "You can only act on records you own or that belong to your accounts."
	}
	return ""
}

// Filter keeps the items the guard's actor may use perm on. Without an actor
// it returns nothing.
func Filter[T Owned](g *Guard, perm shared.Permission, items []T) []T {
	if g.Err() != nil {
		return []T{}
	}
	return FilterByOwnership(g.auth.evaluator, g.actor, perm, items)
}
