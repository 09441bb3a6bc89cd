// internal/site/gateway.go
//
// Site-table gateway.
//
// Context
// -------
// `Gateway` is the only code that reads or writes the **site** table.
// Every method issues one parameterised statement (Delete issues three),
// scans the result with sqlx, and returns driver errors verbatim.  Nothing
// is cached; callers own the pool and any transaction they need.
//
// Conventions
// -----------
//   - A missing row is an empty result (nil record, empty slice), never an
//     error.
//   - Methods that take an id list return an empty result without touching
//     the database when the list is empty.
//   - Limits are integers and are rendered into the SQL text; every other
//     value is bound.
//   - Oxford commas, two spaces after periods.
package site

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/metrics"
)

// AccessPredicate supplies the subquery listing the sites a login may
// access.  The fragment must select column and carry exactly one `?`
// placeholder, bound to the login.
type AccessPredicate interface {
	SitesSQL(column string) string
}

// ErrNoAccessPredicate is returned by IDsByURLsWithAccess when the gateway
// was built without an access predicate.
var ErrNoAccessPredicate = errors.New("site: no access predicate configured")

// Gateway exposes CRUD operations on the site table.
type Gateway struct {
	database.Table
	Aliases *URLGateway

	access AccessPredicate
	cols   string
}

// New binds a Gateway to conn.  acc may be nil when access-filtered lookups
// are not needed.
func New(conn *database.Conn, acc AccessPredicate) *Gateway {
	return &Gateway{
		Table:   database.NewTable(conn, "site"),
		Aliases: NewURLGateway(conn),
		access:  acc,
		cols:    selectList(conn.Dialect()),
	}
}

func (g *Gateway) db() *database.Conn { return g.Conn() }

func (g *Gateway) quotedGroup() string { return g.db().QuoteIdentifier("group") }

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

/*──────────────────────────── writes ───────────────────────────────────────*/

// Create inserts r and returns the new idsite.  A nil or zero TSCreated is
// set to the current time, truncated to whole seconds.
func (g *Gateway) Create(ctx context.Context, r Record) (int64, error) {
	if r.TSCreated == nil || r.TSCreated.IsZero() {
		now := time.Now().UTC().Truncate(time.Second)
		r.TSCreated = &now
	}
	return g.db().InsertID(ctx, g.Name(), "idsite", r.fields(g.db().Dialect()))
}

// Update writes fields to the site idSite.  Keys must be site columns; bool
// values for flag columns are converted to the dialect's representation.
// Only ts_created may be set to nil.  An unknown idSite updates nothing and
// is not an error.
func (g *Gateway) Update(ctx context.Context, idSite int64, fields map[string]any) error {
	vals := make(map[string]any, len(fields))
	for k, v := range fields {
		if !knownColumn(k) || k == "idsite" {
			return fmt.Errorf("%w: %q is not an updatable site column", database.ErrBadColumn, k)
		}
		if v == nil && k != nullableColumn {
			return fmt.Errorf("%w: site.%s", database.ErrNullValue, k)
		}
		if b, ok := v.(bool); ok && flagColumns[k] {
			v = g.db().Dialect().Bool(b)
		}
		vals[k] = v
	}
	_, err := g.db().Update(ctx, g.Name(), vals, "idsite = ?", idSite)
	return err
}

// Delete removes the site row, then its alias URLs, then its access
// grants.  The three statements are not atomic.
func (g *Gateway) Delete(ctx context.Context, idSite int64) error {
	db := g.db()
	res, err := db.Exec(ctx, "DELETE FROM "+g.Name()+" WHERE idsite = ?", idSite)
	if err != nil {
		return err
	}
	if err := g.Aliases.DeleteBySite(ctx, idSite); err != nil {
		return err
	}
	if _, err := db.Exec(ctx, "DELETE FROM "+db.Table("access")+" WHERE idsite = ?", idSite); err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		metrics.SitesDeletedTotal.Inc()
	}
	return nil
}

// SetCreatedTimeIfOlder moves ts_created back to t for the listed sites
// whose creation time is later than t.  Sites already created at or before
// t are untouched.
func (g *Gateway) SetCreatedTimeIfOlder(ctx context.Context, ids []int64, t time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := g.db().In(
		"UPDATE "+g.Name()+" SET ts_created = ? WHERE idsite IN (?) AND ts_created > ?",
		t, ids, t)
	if err != nil {
		return err
	}
	_, err = g.db().Exec(ctx, q, args...)
	return err
}

/*──────────────────────────── record reads ─────────────────────────────────*/

// ByID returns the site idSite, or nil when it does not exist.
func (g *Gateway) ByID(ctx context.Context, idSite int64) (*Record, error) {
	var rec Record
	ok, err := g.db().Get(ctx, &rec,
		"SELECT "+g.cols+" FROM "+g.Name()+" WHERE idsite = ?", idSite)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// All returns every site ordered by idsite.
func (g *Gateway) All(ctx context.Context) ([]Record, error) {
	rows := []Record{}
	err := g.db().Select(ctx, &rows,
		"SELECT "+g.cols+" FROM "+g.Name()+" ORDER BY idsite ASC")
	return rows, err
}

// ByIDs returns the listed sites ordered by idsite.  limit <= 0 means no
// limit.
func (g *Gateway) ByIDs(ctx context.Context, ids []int64, limit int) ([]Record, error) {
	rows := []Record{}
	if len(ids) == 0 {
		return rows, nil
	}
	q, args, err := g.db().In(
		"SELECT "+g.cols+" FROM "+g.Name()+" WHERE idsite IN (?) ORDER BY idsite ASC"+limitClause(limit),
		ids)
	if err != nil {
		return nil, err
	}
	err = g.db().Select(ctx, &rows, q, args...)
	return rows, err
}

// ByGroup returns the sites belonging to group.
func (g *Gateway) ByGroup(ctx context.Context, group string) ([]Record, error) {
	rows := []Record{}
	err := g.db().Select(ctx, &rows,
		"SELECT "+g.cols+" FROM "+g.Name()+" WHERE "+g.quotedGroup()+" = ?", group)
	return rows, err
}

// Search matches pattern case-insensitively against name, main_url, and
// group, and against idsite when pattern is an integer.  Only sites in ids
// are considered.
func (g *Gateway) Search(ctx context.Context, ids []int64, pattern string, limit int) ([]Record, error) {
	rows := []Record{}
	if len(ids) == 0 {
		return rows, nil
	}

	like := g.db().Dialect().ILike()
	args := []any{"%" + pattern + "%", "http%" + pattern + "%", "%" + pattern + "%"}
	orID := ""
	// Only a plain integer matches idsite; " 42" and "42.0" do not.
	if n, err := strconv.ParseInt(pattern, 10, 64); err == nil {
		orID = " OR s.idsite = ?"
		args = append(args, n)
	}
	args = append(args, ids)

	q, args, err := g.db().In(
		"SELECT "+g.cols+" FROM "+g.Name()+" s"+
			" WHERE (s.name "+like+" ? OR s.main_url "+like+" ? OR s."+g.quotedGroup()+" "+like+" ?"+orID+")"+
			" AND s.idsite IN (?)"+limitClause(limit),
		args...)
	if err != nil {
		return nil, err
	}
	err = g.db().Select(ctx, &rows, q, args...)
	return rows, err
}

/*──────────────────────────── id and value lists ───────────────────────────*/

// IDs returns every idsite.
func (g *Gateway) IDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	err := g.db().Select(ctx, &ids, "SELECT idsite FROM "+g.Name()+" ORDER BY idsite ASC")
	return ids, err
}

// IDsByURLs returns the sites whose main URL or an alias URL is in urls.
func (g *Gateway) IDsByURLs(ctx context.Context, urls []string) ([]int64, error) {
	ids := []int64{}
	if len(urls) == 0 {
		return ids, nil
	}
	q, args, err := g.db().In(
		"SELECT idsite FROM "+g.Name()+" WHERE main_url IN (?)"+
			" UNION SELECT idsite FROM "+g.Aliases.Name()+" WHERE url IN (?)",
		urls, urls)
	if err != nil {
		return nil, err
	}
	err = g.db().Select(ctx, &ids, q, args...)
	return ids, err
}

// IDsByURLsWithAccess is IDsByURLs restricted to sites login may access.
func (g *Gateway) IDsByURLsWithAccess(ctx context.Context, login string, urls []string) ([]int64, error) {
	ids := []int64{}
	if len(urls) == 0 {
		return ids, nil
	}
	if g.access == nil {
		return nil, ErrNoAccessPredicate
	}
	pred := g.access.SitesSQL("idsite")
	q, args, err := g.db().In(
		"SELECT idsite FROM "+g.Name()+" WHERE main_url IN (?) AND idsite IN ("+pred+")"+
			" UNION SELECT idsite FROM "+g.Aliases.Name()+" WHERE url IN (?) AND idsite IN ("+pred+")",
		urls, login, urls, login)
	if err != nil {
		return nil, err
	}
	err = g.db().Select(ctx, &ids, q, args...)
	return ids, err
}

// IDsByTimezones returns the sites using any of timezones, ordered by
// idsite.
func (g *Gateway) IDsByTimezones(ctx context.Context, timezones []string) ([]int64, error) {
	ids := []int64{}
	if len(timezones) == 0 {
		return ids, nil
	}
	q, args, err := g.db().In(
		"SELECT idsite FROM "+g.Name()+" WHERE timezone IN (?) ORDER BY idsite ASC",
		timezones)
	if err != nil {
		return nil, err
	}
	err = g.db().Select(ctx, &ids, q, args...)
	return ids, err
}

// IDsWithVisits returns the sites with at least one visit whose last action
// falls in (from, to].
func (g *Gateway) IDsWithVisits(ctx context.Context, from, to time.Time) ([]int64, error) {
	ids := []int64{}
	err := g.db().Select(ctx, &ids,
		"SELECT idsite FROM "+g.Name()+" s WHERE EXISTS ("+
			"SELECT 1 FROM "+g.db().Table("log_visit")+" v"+
			" WHERE v.idsite = s.idsite"+
			" AND visit_last_action_time > ?"+
			" AND visit_last_action_time <= ?"+
			" LIMIT 1)",
		from, to)
	return ids, err
}

// Groups returns the distinct site groups, including the empty group.
func (g *Gateway) Groups(ctx context.Context) ([]string, error) {
	out := []string{}
	err := g.db().Select(ctx, &out, "SELECT DISTINCT "+g.quotedGroup()+" FROM "+g.Name())
	return out, err
}

// Timezones returns the distinct timezones in use.
func (g *Gateway) Timezones(ctx context.Context) ([]string, error) {
	out := []string{}
	err := g.db().Select(ctx, &out, "SELECT DISTINCT timezone FROM "+g.Name())
	return out, err
}

// TypeIDs returns the distinct site types in use.
func (g *Gateway) TypeIDs(ctx context.Context) ([]string, error) {
	out := []string{}
	err := g.db().Select(ctx, &out, "SELECT DISTINCT type FROM "+g.Name())
	return out, err
}

// URLs returns the main URL of idSite followed by its alias URLs.  When the
// site row is missing only the aliases are returned.
func (g *Gateway) URLs(ctx context.Context, idSite int64) ([]string, error) {
	aliases, err := g.Aliases.BySite(ctx, idSite)
	if err != nil {
		return nil, err
	}
	rec, err := g.ByID(ctx, idSite)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return aliases, nil
	}
	return append([]string{rec.MainURL}, aliases...), nil
}
