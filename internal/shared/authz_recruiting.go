package shared

// Recruiting, margin and document template permissions.
const (
	PermCandidatesView   Permission = "candidates:view"
	PermCandidatesAdd    Permission = "candidates:add"
	PermCandidatesEdit   Permission = "candidates:edit"
	PermCandidatesDelete Permission = "candidates:delete"
	PermCandidatesScreen Permission = "candidates:screen"

	PermMarginView      Permission = "margin:view"
	PermMarginCalculate Permission = "margin:calculate"

	PermTemplatesView   Permission = "templates:view"
	PermTemplatesAdd    Permission = "templates:add"
	PermTemplatesEdit   Permission = "templates:edit"
	PermTemplatesDelete Permission = "templates:delete"

	PermAnalyticsView Permission = "analytics:view"
	PermDashboardView Permission = "dashboard:view"
)

// RecruitingScopes lists all recruiting related permissions.
func RecruitingScopes() []Permission {
	return []Permission{
		PermCandidatesView,
		PermCandidatesAdd,
		PermCandidatesEdit,
		PermCandidatesDelete,
		PermCandidatesScreen,
		PermMarginView,
		PermMarginCalculate,
		PermTemplatesView,
		PermTemplatesAdd,
		PermTemplatesEdit,
		PermTemplatesDelete,
		PermAnalyticsView,
		PermDashboardView,
	}
}
