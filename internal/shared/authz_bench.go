package shared

// Bench sales permissions.
const (
	PermBenchView   Permission = "bench_resources:view"
	PermBenchAdd    Permission = "bench_resources:add"
	PermBenchEdit   Permission = "bench_resources:edit"
	PermBenchDelete Permission = "bench_resources:delete"

	PermHotlistView   Permission = "hotlists:view"
	PermHotlistAdd    Permission = "hotlists:add"
	PermHotlistEdit   Permission = "hotlists:edit"
	PermHotlistDelete Permission = "hotlists:delete"
)

// BenchScopes lists permissions for bench resources and hotlists.
func BenchScopes() []Permission {
	return []Permission{
		PermBenchView,
		PermBenchAdd,
		PermBenchEdit,
		PermBenchDelete,
		PermHotlistView,
		PermHotlistAdd,
		PermHotlistEdit,
		PermHotlistDelete,
	}
}
