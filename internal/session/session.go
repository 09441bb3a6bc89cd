// internal/session/session.go
//
// Session-table gateway.
//
// Context
//   The `session` table holds serialized web-UI sessions (id, modified,
//   lifetime, data).  Session handling itself lives elsewhere; this package
//   only owns the table so it can be created by the installer and listed by
//   `database.TablesWithData` with the other gateways.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"context"

	"github.com/yanizio/metrica/internal/database"
)

// Store is the session gateway.  It adds no queries beyond the shared
// table operations.
type Store struct {
	database.Table
}

// New binds a Store to conn.
func New(conn *database.Conn) *Store {
	return &Store{Table: database.NewTable(conn, "session")}
}

// CreateTable issues the dialect's DDL for the session table.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.Conn().Exec(ctx, createTableSQL(s.Conn().Dialect(), s.Name()))
	return err
}

func createTableSQL(d database.Dialect, table string) string {
	if d == database.Postgres {
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
			id       VARCHAR(191) NOT NULL,
			modified INTEGER,
			lifetime INTEGER,
			data     TEXT,
			PRIMARY KEY (id)
		)`
	}
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		id       VARCHAR(191) NOT NULL,
		modified INTEGER,
		lifetime INTEGER,
		data     MEDIUMTEXT,
		PRIMARY KEY (id)
	) DEFAULT CHARSET=utf8mb4`
}
