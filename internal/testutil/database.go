package testutil

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/chorechart/internal/database"
)

// NewTestDB opens a migrated in-memory SQLite database that is closed when
// the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
