// internal/database/conn.go
//
// Statement helpers shared by every gateway.
//
// Context
// -------
// Gateways hand `Conn` SQL written with `?` placeholders.  Each helper
// rebinds the placeholders for the active dialect, runs exactly one
// statement, records Prometheus counters, and returns the driver error
// verbatim.  Nothing here retries, wraps, or reinterprets errors; callers
// decide what an error means.
//
// Insert and Update build their column lists from a map.  Keys are sorted
// so the generated SQL is stable, and validated so a key can never smuggle
// SQL into the statement.
//
// Notes
// -----
//   - `Get` turns sql.ErrNoRows into (false, nil); an empty result is how
//     "not found" is signalled.
//   - Oxford commas, two spaces after periods.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/metrica/internal/metrics"
)

// ErrBadColumn is returned when a field map key is not a plain identifier.
var ErrBadColumn = errors.New("invalid column name")

// ErrNullValue is returned when a gateway is asked to store NULL in a
// column declared NOT NULL.
var ErrNullValue = errors.New("column does not accept NULL")

var columnRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidColumn reports whether name may be used as an unquoted column key.
func ValidColumn(name string) bool { return columnRe.MatchString(name) }

func (c *Conn) rebind(q string) string { return sqlx.Rebind(c.dialect.BindType(), q) }

func (c *Conn) observe(op string, start time.Time, err error) {
	metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.QueriesTotal.WithLabelValues(op).Inc()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		metrics.QueryErrorsTotal.WithLabelValues(op).Inc()
		zap.L().Debug("sql statement failed", zap.String("op", op), zap.Error(err))
	}
}

// sortedColumns validates and orders the keys of fields.
func sortedColumns(fields map[string]any) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if !ValidColumn(k) {
			return nil, fmt.Errorf("%w: %q", ErrBadColumn, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func (c *Conn) insertSQL(table string, fields map[string]any) (string, []any, error) {
	cols, err := sortedColumns(fields)
	if err != nil {
		return "", nil, err
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%w: empty field set", ErrBadColumn)
	}
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = c.QuoteIdentifier(col)
		marks[i] = "?"
		args[i] = fields[col]
	}
	q := "INSERT INTO " + table +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
	return q, args, nil
}

// Insert adds one row to table.  table is the physical name.
func (c *Conn) Insert(ctx context.Context, table string, fields map[string]any) (sql.Result, error) {
	q, args, err := c.insertSQL(table, fields)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := c.db.ExecContext(ctx, c.rebind(q), args...)
	c.observe("insert", start, err)
	return res, err
}

// InsertID adds one row and returns the generated key held in idColumn.
// MySQL reports it through LastInsertId; PostgreSQL needs RETURNING.
func (c *Conn) InsertID(ctx context.Context, table, idColumn string, fields map[string]any) (int64, error) {
	if c.dialect != Postgres {
		res, err := c.Insert(ctx, table, fields)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	if !ValidColumn(idColumn) {
		return 0, fmt.Errorf("%w: %q", ErrBadColumn, idColumn)
	}
	q, args, err := c.insertSQL(table, fields)
	if err != nil {
		return 0, err
	}
	q += " RETURNING " + idColumn

	var id int64
	start := time.Now()
	err = c.db.QueryRowxContext(ctx, c.rebind(q), args...).Scan(&id)
	c.observe("insert", start, err)
	return id, err
}

// Update sets fields on every row of table matching where.  where uses `?`
// placeholders bound from whereArgs.  It returns the number of rows
// affected; zero is not an error.
func (c *Conn) Update(ctx context.Context, table string, fields map[string]any, where string, whereArgs ...any) (int64, error) {
	cols, err := sortedColumns(fields)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(whereArgs))
	for i, col := range cols {
		sets[i] = c.QuoteIdentifier(col) + " = ?"
		args = append(args, fields[col])
	}
	args = append(args, whereArgs...)

	q := "UPDATE " + table + " SET " + strings.Join(sets, ", ")
	if where != "" {
		q += " WHERE " + where
	}

	start := time.Now()
	res, err := c.db.ExecContext(ctx, c.rebind(q), args...)
	c.observe("update", start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Exec runs a statement that returns no rows (DELETE, UPDATE, DDL).
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := c.db.ExecContext(ctx, c.rebind(query), args...)
	c.observe("exec", start, err)
	return res, err
}

// Select scans every row into dest, a pointer to a slice.
func (c *Conn) Select(ctx context.Context, dest any, query string, args ...any) error {
	start := time.Now()
	err := c.db.SelectContext(ctx, dest, c.rebind(query), args...)
	c.observe("select", start, err)
	return err
}

// Get scans the first row into dest.  ok is false when no row matched.
func (c *Conn) Get(ctx context.Context, dest any, query string, args ...any) (ok bool, err error) {
	start := time.Now()
	err = c.db.GetContext(ctx, dest, c.rebind(query), args...)
	c.observe("get", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SelectMaps returns every row as a column→value map.  Byte slices, which
// both drivers use for text columns in some configurations, are converted
// to strings.
func (c *Conn) SelectMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := c.db.QueryxContext(ctx, c.rebind(query), args...)
	c.observe("select", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]any, 0, 8)
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		for k, v := range m {
			if b, ok := v.([]byte); ok {
				m[k] = string(b)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// In expands slice arguments into IN (?, ?, …) lists.  The returned query
// still uses `?`; the other helpers rebind it.
func (c *Conn) In(query string, args ...any) (string, []any, error) {
	return sqlx.In(query, args...)
}
