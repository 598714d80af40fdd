package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/staffhub/internal/rbac"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestMatrixShowSingleRole(t *testing.T) {
	out, _, err := run(t, "matrix", "show", "--role", "viewer")
	require.NoError(t, err)
	assert.Contains(t, out, "viewer")
	assert.Contains(t, out, "Viewer")
	assert.Contains(t, out, "bench_resources:view")
	assert.NotContains(t, out, "bench_sales")
}

func TestMatrixShowUnknownRole(t *testing.T) {
	_, _, err := run(t, "matrix", "show", "--role", "intern")
	assert.Error(t, err)
}

func TestMatrixCheckBundled(t *testing.T) {
	out, _, err := run(t, "matrix", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Matrix OK: 12 roles")
}

func TestMatrixCheckRejectsIncompleteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matrix.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  - role: admin\n    permissions: [\"*\"]\n"), 0o600))

	_, _, err := run(t, "matrix", "check", "--file", path)
	assert.ErrorIs(t, err, rbac.ErrMatrixIncomplete)
	assert.True(t, strings.Contains(err.Error(), "viewer"), err.Error())
}

func TestMigrateURL(t *testing.T) {
	got, err := migrateURL("postgres://u:p@db:5432/staffhub?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "pgx5://u:p@db:5432/staffhub?sslmode=disable", got)

	_, err = migrateURL("mysql://u:p@db/staffhub")
	assert.Error(t, err)
}

func TestParseStepsArg(t *testing.T) {
	steps, ok, err := parseStepsArg(nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, steps)

	steps, ok, err = parseStepsArg([]string{"2"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, steps)

	_, _, err = parseStepsArg([]string{"-1"})
	assert.Error(t, err)
}

func TestResolveDatabaseURL(t *testing.T) {
	t.Setenv("PG_DSN", "")
	_, err := resolveDatabaseURL("")
	assert.Error(t, err)

	t.Setenv("PG_DSN", "postgres://env")
	got, err := resolveDatabaseURL("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", got)
}
