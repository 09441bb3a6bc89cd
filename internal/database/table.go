package database

import "context"

// Namer is the table naming service: it maps a logical table name such as
// "site" to the physical name used in SQL.
type Namer interface {
	Table(raw string) string
}

// Prefix is a Namer that prepends a fixed string, e.g. Prefix("matomo_").
type Prefix string

func (p Prefix) Table(raw string) string { return string(p) + raw }

// Named is anything that addresses one physical table and can tell whether
// it holds data.  Every gateway satisfies it through an embedded Table.
type Named interface {
	Name() string
	HasRows(ctx context.Context) (bool, error)
}

// Table is the embeddable base of a gateway: a connection plus the logical
// name of the table it is scoped to.
type Table struct {
	conn *Conn
	raw  string
}

// NewTable binds raw to conn.
func NewTable(conn *Conn, raw string) Table { return Table{conn: conn, raw: raw} }

// Name returns the physical table name.
func (t Table) Name() string { return t.conn.Table(t.raw) }

// Conn returns the connection the table is bound to.
func (t Table) Conn() *Conn { return t.conn }

// HasRows reports whether at least one row exists.
func (t Table) HasRows(ctx context.Context) (bool, error) {
	var one int
	return t.conn.Get(ctx, &one, "SELECT 1 FROM "+t.Name()+" LIMIT 1")
}

// TablesWithData returns the physical names of the tables that hold at
// least one row, in argument order.  Test fixtures use it to decide which
// tables to dump and restore.
func TablesWithData(ctx context.Context, tables ...Named) ([]string, error) {
	var out []string
	for _, t := range tables {
		ok, err := t.HasRows(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t.Name())
		}
	}
	return out, nil
}
