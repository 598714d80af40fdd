package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"github.com/staffhub/staffhub/migrations"
)

func newMigrateCommand() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "Database connection URL. Defaults to PG_DSN.")

	cmd.AddCommand(&cobra.Command{
		Use:   "up [steps]",
		Short: "Run schema migrations up",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, hasSteps, err := parseStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(databaseURL)
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			if hasSteps {
				err = runner.Steps(steps)
			} else {
				err = runner.Up()
			}
			if isNoChange(err) {
				cmd.Println("No schema changes to apply.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			cmd.Println("Migrations applied.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down <steps>",
		Short: "Roll back schema migrations by step count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _, err := parseStepsArg(args)
			if err != nil {
				return err
			}
			runner, err := newMigrationRunner(databaseURL)
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			if err := runner.Steps(-steps); err != nil {
				if isNoChange(err) {
					cmd.Println("No schema changes to roll back.")
					return nil
				}
				return fmt.Errorf("roll back migrations: %w", err)
			}
			cmd.Printf("Rolled back %d migration step(s)\n", steps)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := newMigrationRunner(databaseURL)
			if err != nil {
				return err
			}
			defer closeRunner(cmd, runner)

			version, dirty, err := runner.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("No migrations applied.")
				return nil
			}
			if err != nil {
				return err
			}
			cmd.Printf("Version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	})
	return cmd
}

func newMigrationRunner(flagValue string) (*migrate.Migrate, error) {
	dsn, err := resolveDatabaseURL(flagValue)
	if err != nil {
		return nil, err
	}
	target, err := migrateURL(dsn)
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	runner, err := migrate.NewWithSourceInstance("iofs", source, target)
	if err != nil {
		return nil, fmt.Errorf("create migrate runner: %w", err)
	}
	return runner, nil
}

// migrateURL rewrites a postgres DSN to the scheme of the pgx/v5 driver.
func migrateURL(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse database URL: %w", err)
	}
	switch parsed.Scheme {
	case "postgres", "postgresql", "pgx5":
		parsed.Scheme = "pgx5"
	default:
		return "", fmt.Errorf("unsupported database URL scheme %q", parsed.Scheme)
	}
	return parsed.String(), nil
}

func parseStepsArg(args []string) (int, bool, error) {
	if len(args) == 0 {
		return 0, false, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || steps <= 0 {
		return 0, false, fmt.Errorf("invalid migration steps %q: expected a positive integer", args[0])
	}
	return steps, true, nil
}

func isNoChange(err error) bool {
	if err == nil {
		return false
	}
	// Steps past the first or last migration surface as os.ErrNotExist.
	return errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist)
}

func closeRunner(cmd *cobra.Command, runner *migrate.Migrate) {
	sourceErr, databaseErr := runner.Close()
	if err := errors.Join(sourceErr, databaseErr); err != nil {
		cmd.PrintErrf("warning: failed to close migration runner cleanly: %v\n", err)
	}
}
