// internal/schema/schema.go
//
// Schema installer.
//
// Context
// -------
// `Install` creates every table the gateways read or write, in dependency
// order, with `CREATE TABLE IF NOT EXISTS` so a second run is a no-op:
//
//	site → site_url → access → log_visit → session → report
//
// The report and session gateways own their DDL; the remaining statements
// live here.  `log_visit` carries only the columns the site gateway reads.
//
// Notes
// -----
// • Each statement runs on its own; a failure leaves earlier tables in
//   place and returns the driver error.
// • Oxford commas, two spaces after periods.
package schema

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/metrica/internal/access"
	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/report"
	"github.com/yanizio/metrica/internal/session"
	"github.com/yanizio/metrica/internal/site"
)

type ddl struct {
	table    string
	mysql    string
	postgres string
}

// Tables are created in slice order.  %s is replaced with the physical
// table name.
var statements = []ddl{
	{
		table: "site",
		mysql: `CREATE TABLE IF NOT EXISTS %s (
			idsite              INTEGER(10) UNSIGNED NOT NULL AUTO_INCREMENT,
			name                VARCHAR(90)  NOT NULL,
			main_url            VARCHAR(255) NOT NULL,
			ts_created          TIMESTAMP    NULL,
			ecommerce           TINYINT      NOT NULL DEFAULT 0,
			sitesearch          TINYINT      NOT NULL DEFAULT 1,
			timezone            VARCHAR(50)  NOT NULL,
			currency            CHAR(3)      NOT NULL,
			excluded_ips        TEXT         NOT NULL,
			excluded_parameters TEXT         NOT NULL,
			` + "`group`" + `             VARCHAR(250) NOT NULL,
			type                VARCHAR(255) NOT NULL,
			PRIMARY KEY (idsite)
		) DEFAULT CHARSET=utf8mb4`,
		postgres: `CREATE TABLE IF NOT EXISTS %s (
			idsite              SERIAL4      NOT NULL,
			name                VARCHAR(90)  NOT NULL,
			main_url            VARCHAR(255) NOT NULL,
			ts_created          TIMESTAMP    NULL,
			ecommerce           BOOLEAN      NOT NULL DEFAULT '0',
			sitesearch          BOOLEAN      NOT NULL DEFAULT '1',
			timezone            VARCHAR(50)  NOT NULL,
			currency            CHAR(3)      NOT NULL,
			excluded_ips        TEXT         NOT NULL,
			excluded_parameters TEXT         NOT NULL,
			"group"             VARCHAR(250) NOT NULL,
			type                VARCHAR(255) NOT NULL,
			PRIMARY KEY (idsite)
		)`,
	},
	{
		table: "site_url",
		mysql: `CREATE TABLE IF NOT EXISTS %s (
			idsite INTEGER(10) UNSIGNED NOT NULL,
			url    VARCHAR(190) NOT NULL,
			PRIMARY KEY (idsite, url)
		) DEFAULT CHARSET=utf8mb4`,
		postgres: `CREATE TABLE IF NOT EXISTS %s (
			idsite INTEGER      NOT NULL,
			url    VARCHAR(190) NOT NULL,
			PRIMARY KEY (idsite, url)
		)`,
	},
	{
		table: "access",
		mysql: `CREATE TABLE IF NOT EXISTS %s (
			login  VARCHAR(100) NOT NULL,
			idsite INTEGER UNSIGNED NOT NULL,
			access VARCHAR(10) NULL,
			PRIMARY KEY (login, idsite)
		) DEFAULT CHARSET=utf8mb4`,
		postgres: `CREATE TABLE IF NOT EXISTS %s (
			login  VARCHAR(100) NOT NULL,
			idsite INTEGER      NOT NULL,
			access VARCHAR(10)  NULL,
			PRIMARY KEY (login, idsite)
		)`,
	},
	{
		table: "log_visit",
		mysql: `CREATE TABLE IF NOT EXISTS %s (
			idvisit                BIGINT(10) UNSIGNED NOT NULL AUTO_INCREMENT,
			idsite                 INTEGER(10) UNSIGNED NOT NULL,
			visit_last_action_time DATETIME NOT NULL,
			PRIMARY KEY (idvisit),
			INDEX index_idsite_datetime (idsite, visit_last_action_time)
		) DEFAULT CHARSET=utf8mb4`,
		postgres: `CREATE TABLE IF NOT EXISTS %s (
			idvisit                BIGSERIAL NOT NULL,
			idsite                 INTEGER   NOT NULL,
			visit_last_action_time TIMESTAMP NOT NULL,
			PRIMARY KEY (idvisit)
		)`,
	},
}

func render(d database.Dialect, s ddl, table string) string {
	q := s.mysql
	if d == database.Postgres {
		q = s.postgres
	}
	return fmt.Sprintf(q, table)
}

// Install creates every table.  Existing tables are left untouched.
func Install(ctx context.Context, conn *database.Conn) error {
	d := conn.Dialect()
	for _, s := range statements {
		name := conn.Table(s.table)
		if _, err := conn.Exec(ctx, render(d, s, name)); err != nil {
			return err
		}
		zap.L().Debug("table ready", zap.String("table", name), zap.Stringer("dialect", d))
	}
	if err := session.New(conn).CreateTable(ctx); err != nil {
		return err
	}
	if err := report.New(conn).CreateTable(ctx); err != nil {
		return err
	}
	zap.L().Info("schema installed", zap.Stringer("dialect", d))
	return nil
}

// Tables returns one handle per installed table, in install order, for use
// with database.TablesWithData.
func Tables(conn *database.Conn) []database.Named {
	return []database.Named{
		site.New(conn, nil),
		site.NewURLGateway(conn),
		access.New(conn),
		database.NewTable(conn, "log_visit"),
		session.New(conn),
		report.New(conn),
	}
}
