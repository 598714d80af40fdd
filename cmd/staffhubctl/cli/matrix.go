package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/staffhub/staffhub/internal/platform/db"
	"github.com/staffhub/staffhub/internal/rbac"
	"github.com/staffhub/staffhub/internal/shared"
)

type matrixOptions struct {
	File        string
	DatabaseURL string
	Role        string
}

func newMatrixCommand() *cobra.Command {
	var opts matrixOptions
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Inspect, validate and seed the role matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.File, "file", "", "Matrix YAML file. Defaults to the bundled matrix.")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print resolved permissions per role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildMatrix(cmd.Context(), opts.File)
			if err != nil {
				return err
			}
			return printMatrix(cmd.OutOrStdout(), m, opts.Role)
		},
	}
	show.Flags().StringVar(&opts.Role, "role", "", "Only print this role.")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate a matrix file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildMatrix(cmd.Context(), opts.File)
			if err != nil {
				return err
			}
			for _, entry := range m.Ignored() {
				cmd.PrintErrf("warning: unknown permission %q ignored\n", entry)
			}
			cmd.Printf("Matrix OK: %d roles\n", len(shared.AllRoles()))
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Write a matrix file into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := loadDefinitions(cmd.Context(), opts.File)
			if err != nil {
				return err
			}
			if _, err := rbac.BuildMatrix(defs); err != nil {
				return fmt.Errorf("refusing to seed invalid matrix: %w", err)
			}
			dsn, err := resolveDatabaseURL(opts.DatabaseURL)
			if err != nil {
				return err
			}
			pool, err := db.New(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := rbac.NewRepository(pool).ReplaceAll(cmd.Context(), defs); err != nil {
				return fmt.Errorf("seed matrix: %w", err)
			}
			cmd.Printf("Seeded %d roles\n", len(defs))
			return nil
		},
	}
	seed.Flags().StringVar(&opts.DatabaseURL, "database-url", "", "Database connection URL. Defaults to PG_DSN.")

	cmd.AddCommand(show, check, seed)
	return cmd
}

func loadDefinitions(ctx context.Context, file string) ([]rbac.RoleDefinition, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return rbac.YAMLSource{Path: file}.Load(ctx)
}

func buildMatrix(ctx context.Context, file string) (*rbac.Matrix, error) {
	defs, err := loadDefinitions(ctx, file)
	if err != nil {
		return nil, err
	}
	return rbac.BuildMatrix(defs)
}

func printMatrix(w io.Writer, m *rbac.Matrix, only string) error {
	roles := shared.AllRoles()
	if only != "" {
		role, err := shared.ParseRole(only)
		if err != nil {
			return err
		}
		roles = []shared.Role{role}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tNAME\tPERMISSIONS")
	for _, role := range roles {
		set, err := m.PermissionsForRole(role)
		if err != nil {
			return err
		}
		perms := make([]string, 0, len(set))
		for _, p := range set.Sorted() {
			perms = append(perms, p.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", role, m.RoleDisplayName(role), strings.Join(perms, ","))
	}
	return tw.Flush()
}

func resolveDatabaseURL(flagValue string) (string, error) {
	dsn := strings.TrimSpace(flagValue)
	if dsn == "" {
		dsn = lookupEnv("PG_DSN")
	}
	if dsn == "" {
		return "", errors.New("missing database URL: set --database-url or PG_DSN")
	}
	return dsn, nil
}
