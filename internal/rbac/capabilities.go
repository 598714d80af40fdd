package rbac

import (
	"context"

	"github.com/staffhub/staffhub/internal/audit"
	"github.com/staffhub/staffhub/internal/shared"
)

// CanViewBenchResources reports whether the actor may list bench resources.
func (g *Guard) CanViewBenchResources() bool { return g.Can(shared.PermBenchView, nil) }

// CanViewBenchResource checks view access to one bench resource.
func (g *Guard) CanViewBenchResource(pctx *PermissionContext) bool {
	return g.Can(shared.PermBenchView, pctx)
}

// CanCreateBenchResource reports whether the actor may bench a resource.
func (g *Guard) CanCreateBenchResource() bool { return g.Can(shared.PermBenchAdd, nil) }

// CanUpdateBenchResource checks edit access to one bench resource.
func (g *Guard) CanUpdateBenchResource(pctx *PermissionContext) bool {
	return g.Can(shared.PermBenchEdit, pctx)
}

// CanDeleteBenchResource checks delete access to one bench resource.
func (g *Guard) CanDeleteBenchResource(pctx *PermissionContext) bool {
	return g.Can(shared.PermBenchDelete, pctx)
}

// CanViewHotlists reports whether the actor may list hotlists.
func (g *Guard) CanViewHotlists() bool { return g.Can(shared.PermHotlistView, nil) }

// CanCreateHotlist reports whether the actor may create hotlists.
func (g *Guard) CanCreateHotlist() bool { return g.Can(shared.PermHotlistAdd, nil) }

// CanUpdateHotlist checks edit access to one hotlist.
func (g *Guard) CanUpdateHotlist(pctx *PermissionContext) bool {
	return g.Can(shared.PermHotlistEdit, pctx)
}

// CanDeleteHotlist checks delete access to one hotlist.
func (g *Guard) CanDeleteHotlist(pctx *PermissionContext) bool {
	return g.Can(shared.PermHotlistDelete, pctx)
}

// CanViewAnalytics checks analytics access, optionally for one account.
func (g *Guard) CanViewAnalytics(pctx *PermissionContext) bool {
	return g.Can(shared.PermAnalyticsView, pctx)
}

// CanScreenCandidates reports whether the actor may screen candidates.
func (g *Guard) CanScreenCandidates() bool { return g.Can(shared.PermCandidatesScreen, nil) }

// CanEditCandidate checks edit access to one candidate.
func (g *Guard) CanEditCandidate(pctx *PermissionContext) bool {
	return g.Can(shared.PermCandidatesEdit, pctx)
}

// CanCalculateMargin reports whether the actor may run margin calculations.
func (g *Guard) CanCalculateMargin() bool { return g.Can(shared.PermMarginCalculate, nil) }

// CanManageTemplates reports whether the actor may edit document templates.
func (g *Guard) CanManageTemplates() bool { return g.Can(shared.PermTemplatesEdit, nil) }

// CanEditVendor checks edit access to one vendor.
func (g *Guard) CanEditVendor(pctx *PermissionContext) bool {
	return g.Can(shared.PermVendorEdit, pctx)
}

// CanDeleteVendor checks delete access to one vendor.
func (g *Guard) CanDeleteVendor(pctx *PermissionContext) bool {
	return g.Can(shared.PermVendorDelete, pctx)
}

// CanApproveVendor reports whether the actor may approve vendors.
func (g *Guard) CanApproveVendor() bool { return g.Can(shared.PermVendorApprove, nil) }

// CanValidatePOC reports whether the actor may validate points of contact.
func (g *Guard) CanValidatePOC() bool { return g.Can(shared.PermPOCValidate, nil) }

// CanRevokeConsent reports whether the actor may revoke candidate consent.
func (g *Guard) CanRevokeConsent() bool { return g.Can(shared.PermConsentRevoke, nil) }

// CanViewAudit reports whether the actor may read the audit trail.
func (g *Guard) CanViewAudit() bool { return g.Can(shared.PermAuditView, nil) }

// CanExportAudit reports whether the actor may export the audit trail.
func (g *Guard) CanExportAudit() bool { return g.Can(shared.PermAuditExport, nil) }

// CanManageUsers reports whether the actor may administer user accounts.
func (g *Guard) CanManageUsers() bool { return g.Can(shared.PermAdminUserManagement, nil) }

// CanManageRoles reports whether the actor may edit the role matrix.
func (g *Guard) CanManageRoles() bool { return g.Can(shared.PermAdminRoleManagement, nil) }

// CanManageSettings reports whether the actor may change platform settings.
func (g *Guard) CanManageSettings() bool { return g.Can(shared.PermAdminSettings, nil) }

// CanGrantRole reports whether the actor may give role to a user, or take it
// from one. Every permission of role must also be held by the actor's own
// role, so nobody hands out more than they have. Refusals are audited.
func (g *Guard) CanGrantRole(role shared.Role) bool {
	if g.Err() != nil || !role.Valid() {
		return false
	}
	m := g.auth.matrix.Current()
	target, err := m.PermissionsForRole(role)
	if err != nil {
		return false
	}
	for _, p := range target.Sorted() {
		if !m.Grants(g.actor.Role, p) {
			g.auth.emitGrantRefusal(g.ctx, g.actor, role, p)
			return false
		}
	}
	return true
}

func (a *Authorizer) emitGrantRefusal(ctx context.Context, actor *shared.Actor, role shared.Role, missing shared.Permission) {
	if a.events == nil {
		return
	}
	a.events.LogEvent(context.WithoutCancel(ctx), audit.Event{
		EventType:    audit.EventUnauthorizedAccess,
		ActorID:      actor.ID,
		ActorRoles:   []shared.Role{actor.Role},
		ResourceType: "role",
		ResourceID:   string(role),
		Action:       shared.ActionEdit,
		Details: map[string]any{
			"target_role": string(role),
			"missing":     string(missing),
		},
		Success:       false,
		SecurityLevel: audit.LevelCritical,
	})
}
