// internal/site/model.go
//
// `site` table row model.
//
// Schema reference
//
//	CREATE TABLE site (
//	    idsite              INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    name                VARCHAR(90)  NOT NULL,
//	    main_url            VARCHAR(255) NOT NULL,
//	    ts_created          TIMESTAMP    NULL,
//	    ecommerce           TINYINT      NOT NULL DEFAULT 0,
//	    sitesearch          TINYINT      NOT NULL DEFAULT 1,
//	    timezone            VARCHAR(50)  NOT NULL,
//	    currency            CHAR(3)      NOT NULL,
//	    excluded_ips        TEXT         NOT NULL,
//	    excluded_parameters TEXT         NOT NULL,
//	    `group`             VARCHAR(250) NOT NULL,
//	    type                VARCHAR(255) NOT NULL
//	);
//
// Notes
// -----
//   - MySQL DSNs must carry parseTime=true so ts_created scans into
//     time.Time.
//   - ts_created is the only nullable column.  Older installs leave it
//     NULL, so it scans into a pointer.
//   - Flag columns are TINYINT on MySQL and BOOLEAN on PostgreSQL; both
//     scan into a Go bool.
package site

import (
	"strings"
	"time"

	"github.com/yanizio/metrica/internal/database"
)

// Record mirrors one row in the `site` table.
type Record struct {
	IDSite             int64      `db:"idsite"              json:"idsite"`
	Name               string     `db:"name"                json:"name"`
	MainURL            string     `db:"main_url"            json:"main_url"`
	TSCreated          *time.Time `db:"ts_created"          json:"ts_created,omitempty"`
	Ecommerce          bool       `db:"ecommerce"           json:"ecommerce"`
	SiteSearch         bool       `db:"sitesearch"          json:"sitesearch"`
	Timezone           string     `db:"timezone"            json:"timezone"`
	Currency           string     `db:"currency"            json:"currency"`
	ExcludedIPs        string     `db:"excluded_ips"        json:"excluded_ips"`
	ExcludedParameters string     `db:"excluded_parameters" json:"excluded_parameters"`
	Group              string     `db:"group"               json:"group"`
	Type               string     `db:"type"                json:"type"`
}

// columns lists the site table in schema order.
var columns = []string{
	"idsite", "name", "main_url", "ts_created", "ecommerce", "sitesearch",
	"timezone", "currency", "excluded_ips", "excluded_parameters", "group", "type",
}

var flagColumns = map[string]bool{"ecommerce": true, "sitesearch": true}

const nullableColumn = "ts_created"

func knownColumn(name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// selectList renders the column list for SELECT statements.  `group` is a
// reserved word in both dialects and must be quoted.
func selectList(d database.Dialect) string {
	out := make([]string, len(columns))
	for i, c := range columns {
		if c == "group" {
			c = d.QuoteIdentifier(c)
		}
		out[i] = c
	}
	return strings.Join(out, ", ")
}

// fields converts r into an insert field map.  idsite is omitted when zero
// so the database assigns it.
func (r Record) fields(d database.Dialect) map[string]any {
	m := map[string]any{
		"name":                r.Name,
		"main_url":            r.MainURL,
		"ts_created":          r.TSCreated,
		"ecommerce":           d.Bool(r.Ecommerce),
		"sitesearch":          d.Bool(r.SiteSearch),
		"timezone":            r.Timezone,
		"currency":            r.Currency,
		"excluded_ips":        r.ExcludedIPs,
		"excluded_parameters": r.ExcludedParameters,
		"group":               r.Group,
		"type":                r.Type,
	}
	if r.IDSite != 0 {
		m["idsite"] = r.IDSite
	}
	return m
}
