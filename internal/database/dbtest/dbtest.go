// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tahcohcat/xpboard/internal/database"
)

// New returns a migrated database in the test's temp dir, closed on cleanup.
func New(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDB(context.Background(), database.DriverSQLite, path)
	require.NoError(t, err, "open test db")

	t.Cleanup(func() { _ = db.Close() })
	return db
}
