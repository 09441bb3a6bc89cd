// internal/access/store.go
//
// Small query helpers for per-site access grants.
//
// Context
// -------
// The access model is one table keyed by login and site:
//
//	access (login, idsite, access)   access ∈ {view, admin}
//
// Gateways need two kinds of answer:
//  1. A SQL fragment listing the sites a login may see, spliced into their
//     own WHERE clauses.                                      → `SitesSQL()`
//  2. Direct lookups for tooling.             → `Sites()`, `Allowed()`
//
// Grants are written with `Grant()` and removed per site when the site is
// deleted.  No caching; callers may wrap results in a per-request cache.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
// • Max line length 100 columns.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/yanizio/metrica/internal/database"
)

// ErrBadLevel is returned for access levels other than view and admin.
var ErrBadLevel = errors.New("invalid access level")

// Level is the access a login holds on one site.
type Level string

const (
	View  Level = "view"
	Admin Level = "admin"
)

// ParseLevel validates s.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case View, Admin:
		return Level(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrBadLevel, s)
}

// Predicate yields a subquery listing the sites a login may access.  The
// subquery carries one `?` placeholder bound to the login.
type Predicate interface {
	SitesSQL(column string) string
}

var _ Predicate = (*Store)(nil)

// Store reads and writes the access table.
type Store struct {
	database.Table
}

// New binds a Store to conn.
func New(conn *database.Conn) *Store {
	return &Store{Table: database.NewTable(conn, "access")}
}

// SitesSQL returns a subquery selecting column for every existing site the
// login bound to its single `?` placeholder may access.
func (s *Store) SitesSQL(column string) string {
	return "SELECT " + column + " FROM " + s.Name() + " AS t1" +
		" JOIN " + s.Conn().Table("site") + " AS t2 USING (idsite)" +
		" WHERE t1.login = ?"
}

// Grant gives login the level on idSite, replacing any previous grant.  The
// delete and insert are not atomic.
func (s *Store) Grant(ctx context.Context, login string, idSite int64, level Level) error {
	if _, err := ParseLevel(string(level)); err != nil {
		return err
	}
	if _, err := s.Conn().Exec(ctx,
		"DELETE FROM "+s.Name()+" WHERE idsite = ? AND login = ?", idSite, login); err != nil {
		return err
	}
	_, err := s.Conn().Insert(ctx, s.Name(), map[string]any{
		"login":  login,
		"idsite": idSite,
		"access": string(level),
	})
	return err
}

// Sites returns the ids login holds any grant on.
func (s *Store) Sites(ctx context.Context, login string) ([]int64, error) {
	ids := make([]int64, 0, 4)
	err := s.Conn().Select(ctx, &ids,
		"SELECT idsite FROM "+s.Name()+" WHERE login = ? ORDER BY idsite ASC", login)
	return ids, err
}

// Allowed reports whether login holds any grant on idSite.
func (s *Store) Allowed(ctx context.Context, login string, idSite int64) (bool, error) {
	var dummy int
	return s.Conn().Get(ctx, &dummy,
		"SELECT 1 FROM "+s.Name()+" WHERE login = ? AND idsite = ? LIMIT 1", login, idSite)
}

// DeleteBySite removes every grant on idSite.
func (s *Store) DeleteBySite(ctx context.Context, idSite int64) error {
	_, err := s.Conn().Exec(ctx, "DELETE FROM "+s.Name()+" WHERE idsite = ?", idSite)
	return err
}
