package rbac

import (
	"slices"

	"github.com/staffhub/staffhub/internal/shared"
)

// MenuItem is a navigation entry shown when the actor holds any of AnyOf.
// Menu visibility is advisory; the protected action re-checks permissions.
type MenuItem struct {
	ID    string              `json:"id"`
	Label string              `json:"label"`
	Route string              `json:"route"`
	AnyOf []shared.Permission `json:"-"`
}

var menuItems = []MenuItem{
	{ID: "dashboard", Label: "Dashboard", Route: "/dashboard", AnyOf: []shared.Permission{shared.PermDashboardView}},
	{ID: "candidates", Label: "Candidates", Route: "/candidates", AnyOf: []shared.Permission{shared.PermCandidatesView}},
	{ID: "screening", Label: "Screening", Route: "/candidates/screening", AnyOf: []shared.Permission{shared.PermCandidatesScreen}},
	{ID: "margin_calculator", Label: "Margin Calculator", Route: "/margin", AnyOf: []shared.Permission{shared.PermMarginView, shared.PermMarginCalculate}},
	{ID: "templates", Label: "Document Templates", Route: "/templates", AnyOf: []shared.Permission{shared.PermTemplatesView}},
	{ID: "bench", Label: "Bench Resources", Route: "/bench", AnyOf: []shared.Permission{shared.PermBenchView}},
	{ID: "hotlists", Label: "Hotlists", Route: "/bench/hotlists", AnyOf: []shared.Permission{shared.PermHotlistView}},
	{ID: "vendors", Label: "Vendors", Route: "/vendors", AnyOf: []shared.Permission{shared.PermVendorView}},
	{ID: "pocs", Label: "Points of Contact", Route: "/vendors/pocs", AnyOf: []shared.Permission{shared.PermPOCView}},
	{ID: "compliance", Label: "Compliance", Route: "/compliance", AnyOf: []shared.Permission{shared.PermComplianceView, shared.PermComplianceManage}},
	{ID: "consent", Label: "Consent", Route: "/compliance/consent", AnyOf: []shared.Permission{shared.PermConsentView}},
	{ID: "analytics", Label: "Analytics", Route: "/analytics", AnyOf: []shared.Permission{shared.PermAnalyticsView}},
	{ID: "audit", Label: "Audit Log", Route: "/audit", AnyOf: []shared.Permission{shared.PermAuditView}},
	{ID: "users", Label: "Users", Route: "/admin/users", AnyOf: []shared.Permission{shared.PermAdminUserManagement}},
	{ID: "roles", Label: "Roles", Route: "/admin/roles", AnyOf: []shared.Permission{shared.PermAdminRoleManagement}},
	{ID: "settings", Label: "Settings", Route: "/admin/settings", AnyOf: []shared.Permission{shared.PermAdminSettings}},
}

// MenuItems returns the static menu table.
func MenuItems() []MenuItem {
	return slices.Clone(menuItems)
}

func lookupMenuItem(id string) (MenuItem, bool) {
	for _, item := range menuItems {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

// CanAccessMenuItem reports whether the menu entry id should be shown.
// Unknown ids are hidden.
func (g *Guard) CanAccessMenuItem(id string) bool {
	item, ok := lookupMenuItem(id)
	if !ok {
		return false
	}
	return g.CanAny(item.AnyOf...)
}

// Menu returns the entries visible to the actor, in table order. It is empty
// without an actor.
func (g *Guard) Menu() []MenuItem {
	visible := []MenuItem{}
	if g.Err() != nil {
		return visible
	}
	for _, item := range menuItems {
		if g.CanAny(item.AnyOf...) {
			visible = append(visible, item)
		}
	}
	return visible
}
