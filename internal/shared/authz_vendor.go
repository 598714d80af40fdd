package shared

// Vendor hub permissions.
const (
	PermVendorView    Permission = "vendor:view"
	PermVendorAdd     Permission = "vendor:add"
	PermVendorEdit    Permission = "vendor:edit"
	PermVendorDelete  Permission = "vendor:delete"
	PermVendorApprove Permission = "vendor:approve"

	PermPOCView     Permission = "poc:view"
	PermPOCAdd      Permission = "poc:add"
	PermPOCEdit     Permission = "poc:edit"
	PermPOCValidate Permission = "poc:validate"

	PermComplianceView   Permission = "compliance:view"
	PermComplianceManage Permission = "compliance:manage"

	PermConsentView   Permission = "consent:view"
	PermConsentGrant  Permission = "consent:grant"
	PermConsentRevoke Permission = "consent:revoke"
)

// VendorScopes lists all permissions related to the vendor hub.
func VendorScopes() []Permission {
	return []Permission{
		PermVendorView,
		PermVendorAdd,
		PermVendorEdit,
		PermVendorDelete,
		PermVendorApprove,
		PermPOCView,
		PermPOCAdd,
		PermPOCEdit,
		PermPOCValidate,
		PermComplianceView,
		PermComplianceManage,
		PermConsentView,
		PermConsentGrant,
		PermConsentRevoke,
	}
}
