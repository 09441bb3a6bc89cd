// internal/report/store.go
//
// Report-table gateway.
//
// Context
// -------
// Scheduled reports are soft-deleted: the `deleted` flag is set and the row
// stays for history.  The flag is TINYINT on MySQL and BOOLEAN on
// PostgreSQL, so every write and every predicate on it goes through
// `Dialect.Bool`.  Listing queries inner-join the site table so reports of
// deleted sites never surface.
//
// Report ids often arrive as request strings.  `UpdateByID` strips every
// non-digit before parsing and then binds the id like any other value.
package report

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yanizio/metrica/internal/database"
)

// ErrInvalidID is returned when a report id holds no digits.
var ErrInvalidID = errors.New("invalid report id")

var nonDigit = regexp.MustCompile(`[^0-9]`)

// Store is the report gateway.  Dialect differences are resolved from the
// connection at call time.
type Store struct {
	database.Table
}

// New binds a Store to conn.
func New(conn *database.Conn) *Store {
	return &Store{Table: database.NewTable(conn, "report")}
}

func (s *Store) dialect() database.Dialect { return s.Conn().Dialect() }

func (s *Store) selectList(alias string) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// Filter selects active reports.  Zero-valued selectors are ignored.
type Filter struct {
	IDSite    int64
	Period    string
	IDReport  int64
	IDSegment int64
	// Login, when set, restricts the result to reports owned by that login.
	Login string
}

// OwnerLogin returns the Filter.Login value for a caller: everyone but a
// super user sees only their own reports, and a super user may ask for
// the same restriction with superUserOnly.
func OwnerLogin(login string, isSuperUser, superUserOnly bool) string {
	if !isSuperUser || superUserOnly {
		return login
	}
	return ""
}

func (f Filter) where() ([]string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.IDSite != 0 {
		conds = append(conds, "site.idsite = ?")
		args = append(args, f.IDSite)
	}
	if f.Period != "" {
		conds = append(conds, "report.period = ?")
		args = append(args, f.Period)
	}
	if f.IDReport != 0 {
		conds = append(conds, "report.idreport = ?")
		args = append(args, f.IDReport)
	}
	if f.IDSegment != 0 {
		conds = append(conds, "report.idsegment = ?")
		args = append(args, f.IDSegment)
	}
	if f.Login != "" {
		conds = append(conds, "report.login = ?")
		args = append(args, f.Login)
	}
	return conds, args
}

// Insert adds r.  r.Deleted is stored in the dialect's flag form.
func (s *Store) Insert(ctx context.Context, r Record) error {
	_, err := s.Conn().Insert(ctx, s.Name(), r.fields(s.dialect()))
	return err
}

// UpdateByID writes values to the report whose id is the digits of
// idReport, so "12x3" addresses report 123.  A bool `deleted` value is
// converted to the dialect's flag form.  nil is accepted only for nullable
// columns.
func (s *Store) UpdateByID(ctx context.Context, values map[string]any, idReport string) error {
	digits := nonDigit.ReplaceAllString(idReport, "")
	if digits == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, idReport)
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, idReport)
	}

	vals := make(map[string]any, len(values))
	for k, v := range values {
		if !knownColumn(k) || k == "idreport" {
			return fmt.Errorf("%w: %q is not an updatable report column", database.ErrBadColumn, k)
		}
		if v == nil && !nullableColumns[k] {
			return fmt.Errorf("%w: report.%s", database.ErrNullValue, k)
		}
		if b, ok := v.(bool); ok && k == "deleted" {
			v = s.dialect().Bool(b)
		}
		vals[k] = v
	}

	_, err = s.Conn().Update(ctx, s.Name(), vals, "idreport = ?", id)
	return err
}

// AllActive returns the reports that are not deleted, belong to an existing
// site, and match every non-empty selector of f.
func (s *Store) AllActive(ctx context.Context, f Filter) ([]Record, error) {
	conds, args := f.where()
	q := "SELECT " + s.selectList("report") +
		" FROM " + s.Name() + " AS report" +
		" INNER JOIN " + s.Conn().Table("site") + " AS site USING (idsite)" +
		" WHERE report.deleted = ?"
	for _, c := range conds {
		q += " AND " + c
	}
	args = append([]any{s.dialect().Bool(false)}, args...)

	rows := []Record{}
	err := s.Conn().Select(ctx, &rows, q, args...)
	return rows, err
}

// ByID returns the report idReport whether deleted or not, or nil when it
// does not exist.
func (s *Store) ByID(ctx context.Context, idReport int64) (*Record, error) {
	var rec Record
	ok, err := s.Conn().Get(ctx, &rec,
		"SELECT "+s.selectList("report")+" FROM "+s.Name()+" AS report WHERE report.idreport = ?",
		idReport)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// MarkSent records the time the report was last delivered.
func (s *Store) MarkSent(ctx context.Context, idReport int64, at time.Time) error {
	return s.UpdateByID(ctx, map[string]any{"ts_last_sent": at}, strconv.FormatInt(idReport, 10))
}

// SoftDelete flags the report as deleted.  The row is kept.
func (s *Store) SoftDelete(ctx context.Context, idReport int64) error {
	return s.UpdateByID(ctx, map[string]any{"deleted": true}, strconv.FormatInt(idReport, 10))
}

// CreateTable issues the dialect's DDL for the report table.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.Conn().Exec(ctx, createTableSQL(s.dialect(), s.Name()))
	return err
}

func createTableSQL(d database.Dialect, table string) string {
	if d == database.Postgres {
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
			idreport     SERIAL4      NOT NULL,
			idsite       INTEGER      NOT NULL,
			login        VARCHAR(100) NOT NULL,
			description  VARCHAR(255) NOT NULL,
			idsegment    INTEGER,
			period       VARCHAR(10)  NOT NULL,
			hour         SMALLINT     NOT NULL DEFAULT 0,
			type         VARCHAR(10)  NOT NULL,
			format       VARCHAR(10)  NOT NULL,
			reports      TEXT         NOT NULL,
			parameters   TEXT         NULL,
			ts_created   TIMESTAMP    NULL,
			ts_last_sent TIMESTAMP    NULL,
			deleted      BOOLEAN      NOT NULL DEFAULT '0',
			PRIMARY KEY (idreport)
		)`
	}
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		idreport     INT(11)      NOT NULL AUTO_INCREMENT,
		idsite       INTEGER(11)  NOT NULL,
		login        VARCHAR(100) NOT NULL,
		description  VARCHAR(255) NOT NULL,
		idsegment    INT(11),
		period       VARCHAR(10)  NOT NULL,
		hour         TINYINT      NOT NULL DEFAULT 0,
		type         VARCHAR(10)  NOT NULL,
		format       VARCHAR(10)  NOT NULL,
		reports      TEXT         NOT NULL,
		parameters   TEXT         NULL,
		ts_created   TIMESTAMP    NULL,
		ts_last_sent TIMESTAMP    NULL,
		deleted      TINYINT(4)   NOT NULL DEFAULT 0,
		PRIMARY KEY (idreport)
	) DEFAULT CHARSET=utf8mb4`
}
