// Package cli implements the staffhubctl operator commands.
package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// BuildVersion is set at link time.
var BuildVersion = "dev"

// NewRootCommand assembles the staffhubctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "staffhubctl",
		Short:         "StaffHub operator CLI",
		Long:          "Inspect and seed the role matrix, run schema migrations and trigger background jobs.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the staffhubctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
	root.AddCommand(newMatrixCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newJobsCommand())
	return root
}

func lookupEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
