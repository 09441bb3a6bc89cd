package report

import (
	"time"

	"github.com/yanizio/metrica/internal/database"
)

// Record mirrors one row in the `report` table: a scheduled e-mail report
// owned by a login.  Nullable columns are pointers.
type Record struct {
	IDReport    int64      `db:"idreport"     json:"idreport"`
	IDSite      int64      `db:"idsite"       json:"idsite"`
	Login       string     `db:"login"        json:"login"`
	Description string     `db:"description"  json:"description"`
	IDSegment   *int64     `db:"idsegment"    json:"idsegment,omitempty"`
	Period      string     `db:"period"       json:"period"`
	Hour        int        `db:"hour"         json:"hour"`
	Type        string     `db:"type"         json:"type"`
	Format      string     `db:"format"       json:"format"`
	Reports     string     `db:"reports"      json:"reports"`
	Parameters  *string    `db:"parameters"   json:"parameters,omitempty"`
	TSCreated   *time.Time `db:"ts_created"   json:"ts_created,omitempty"`
	TSLastSent  *time.Time `db:"ts_last_sent" json:"ts_last_sent,omitempty"`
	Deleted     bool       `db:"deleted"      json:"deleted"`
}

var columns = []string{
	"idreport", "idsite", "login", "description", "idsegment", "period", "hour",
	"type", "format", "reports", "parameters", "ts_created", "ts_last_sent", "deleted",
}

var nullableColumns = map[string]bool{
	"idsegment": true, "parameters": true, "ts_created": true, "ts_last_sent": true,
}

func knownColumn(name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// fields converts r into an insert field map with deleted coerced for d.
// idreport is omitted when zero so the database assigns it.
func (r Record) fields(d database.Dialect) map[string]any {
	m := map[string]any{
		"idsite":       r.IDSite,
		"login":        r.Login,
		"description":  r.Description,
		"idsegment":    r.IDSegment,
		"period":       r.Period,
		"hour":         r.Hour,
		"type":         r.Type,
		"format":       r.Format,
		"reports":      r.Reports,
		"parameters":   r.Parameters,
		"ts_created":   r.TSCreated,
		"ts_last_sent": r.TSLastSent,
		"deleted":      d.Bool(r.Deleted),
	}
	if r.IDReport != 0 {
		m["idreport"] = r.IDReport
	}
	return m
}
