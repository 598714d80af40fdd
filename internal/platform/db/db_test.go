package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig("postgres://u:p@localhost:5432/staffhub?sslmode=disable")
	require.NoError(t, err)
	assert.Equal(t, "staffhub", cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 30*time.Second, cfg.HealthCheckPeriod)
}

func TestParseConfigKeepsDSNValues(t *testing.T) {
	cfg, err := ParseConfig("postgres://u:p@localhost:5432/staffhub?sslmode=disable&application_name=ops&pool_health_check_period=2m")
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 2*time.Minute, cfg.HealthCheckPeriod)
}

func TestParseConfigRejectsGarbage(t *testing.T) {
	_, err := ParseConfig("postgres://%zz")
	assert.ErrorContains(t, err, "platform/db: parse config")
}

func TestIsSerializationFailure(t *testing.T) {
	wrapped := fmt.Errorf("rbac: replace role: %w", &pgconn.PgError{Code: "40001"})
	assert.True(t, IsSerializationFailure(wrapped))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSerializationFailure(errors.New("boom")))
	assert.False(t, IsSerializationFailure(nil))
}
