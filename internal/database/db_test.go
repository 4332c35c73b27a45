package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationsDir() string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
}

// With a single pooled connection, every migration call must hand its
// connection back or the next call blocks.
func TestMigrationsReleaseConnection(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	sqlDB.SetMaxOpenConns(1)

	db := Wrap(sqlDB, zerolog.Nop())
	require.NoError(t, db.RunMigrations(migrationsDir()))
	require.NoError(t, db.RunMigrations(migrationsDir()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, db.HealthCheck(ctx))
	assert.Equal(t, 0, db.Stats().InUse)
}
