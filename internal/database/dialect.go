// internal/database/dialect.go
//
// SQL dialect variants.
//
// Context
// -------
// Gateways write every statement once, with `?` placeholders and unquoted
// identifiers wherever that is portable.  The few places where MySQL and
// PostgreSQL disagree are funnelled through `Dialect`:
//
//   - placeholder style (`?` versus `$n`), via sqlx bind types,
//   - identifier quoting (backtick versus double quote),
//   - boolean representation for TINYINT and BOOLEAN flag columns,
//   - case-insensitive LIKE.
//
// DDL differences live next to each gateway's CreateTable.
package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrUnknownDialect is returned by ParseDialect for unsupported names.
var ErrUnknownDialect = errors.New("unknown sql dialect")

// Dialect identifies the SQL flavour spoken by the server.
type Dialect int

const (
	MySQL Dialect = iota + 1
	Postgres
)

// ParseDialect maps a config or driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pgsql":
		return Postgres, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	}
	return fmt.Sprintf("Dialect(%d)", int(d))
}

// DriverName is the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "mysql"
}

// BindType is the sqlx placeholder style for d.
func (d Dialect) BindType() int {
	if d == Postgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}

// QuoteIdentifier wraps name in the dialect's identifier quotes, doubling
// any embedded quote character.
func (d Dialect) QuoteIdentifier(name string) string {
	q := "`"
	if d == Postgres {
		q = `"`
	}
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// Bool converts b to the value stored in flag columns.  MySQL keeps flags
// in TINYINT columns; PostgreSQL BOOLEAN columns accept the text literals
// '1' and '0'.
func (d Dialect) Bool(b bool) any {
	if d == Postgres {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return 1
	}
	return 0
}

// ILike is the case-insensitive LIKE operator.  MySQL's default collations
// already compare case-insensitively.
func (d Dialect) ILike() string {
	if d == Postgres {
		return "ILIKE"
	}
	return "LIKE"
}
