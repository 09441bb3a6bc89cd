// Package dbtest wires go-sqlmock into a *database.Conn for gateway unit
// tests.
package dbtest

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/metrica/internal/database"
)

// New returns a Conn speaking dialect d over a sqlmock pool.  Unmet
// expectations fail the test at cleanup.
func New(t *testing.T, d database.Dialect, prefix string) (*database.Conn, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet SQL expectations: %v", err)
		}
		db.Close()
	})

	return database.New(sqlx.NewDb(db, "sqlmock"), d, database.Prefix(prefix)), mock
}
