package shared

// Audit log permissions.
const (
	PermAuditView   Permission = "audit:view"
	PermAuditExport Permission = "audit:export"
)

// AuditScopes lists audit permissions.
func AuditScopes() []Permission {
	return []Permission{
		PermAuditView,
		PermAuditExport,
	}
}
