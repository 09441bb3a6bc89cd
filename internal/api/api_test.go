// internal/api/api_test.go
//
// Handler tests: chi router + sqlmock, driven through httptest.
//
// Run: go test ./internal/api -v

package api

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goccy/go-json"

	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/database/dbtest"
	"github.com/yanizio/metrica/internal/middleware"
)

const siteCols = "idsite, name, main_url, ts_created, ecommerce, sitesearch, " +
	"timezone, currency, excluded_ips, excluded_parameters, `group`, type"

var siteRowCols = []string{
	"idsite", "name", "main_url", "ts_created", "ecommerce", "sitesearch",
	"timezone", "currency", "excluded_ips", "excluded_parameters", "group", "type",
}

func siteRow(rows *sqlmock.Rows, id int64, name, url string) *sqlmock.Rows {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, name, url, ts, int64(0), int64(1), "UTC", "USD", "", "", "", "website")
}

func do(t *testing.T, h http.Handler, path, login string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if login != "" {
		req.Header.Set(middleware.LoginHeader, login)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListSites_FilteredByLogin(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT idsite FROM access WHERE login = ? ORDER BY idsite ASC")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"idsite"}).AddRow(int64(1)).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT " + siteCols + " FROM site WHERE idsite IN (?, ?) ORDER BY idsite ASC LIMIT 5",
	)).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(siteRow(siteRow(sqlmock.NewRows(siteRowCols),
			1, "Blog", "https://blog.example"), 3, "Shop", "https://shop.example"))

	rec := do(t, h, "/sites?limit=5", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got []struct {
		IDSite int64 `json:"idsite"`
		Name   string
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].IDSite != 3 {
		t.Fatalf("sites = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("security headers missing")
	}
}

func TestListSites_NoGrantsIsEmpty(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT idsite FROM access WHERE login = ? ORDER BY idsite ASC")).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"idsite"}))

	rec := do(t, h, "/sites", "nobody")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("got %d %q, want 200 []", rec.Code, rec.Body)
	}
}

func TestListSites_BadLimit(t *testing.T) {
	conn, _ := dbtest.New(t, database.MySQL, "")
	rec := do(t, New(conn).Routes(), "/sites?limit=-2", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetSite_MainURLFirst(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	mock.MatchExpectationsInOrder(false)
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + siteCols + " FROM site WHERE idsite = ?")).
		WithArgs(int64(3)).
		WillReturnRows(siteRow(sqlmock.NewRows(siteRowCols), 3, "Shop", "https://shop.example"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT url FROM site_url WHERE idsite = ?")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://www.shop.example"))

	rec := do(t, h, "/sites/3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got struct {
		URLs []string `json:"urls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.URLs) != 2 || got.URLs[0] != "https://shop.example" {
		t.Fatalf("urls = %v", got.URLs)
	}
}

func TestGetSite_NotGrantedIs404(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM access WHERE login = ? AND idsite = ? LIMIT 1")).
		WithArgs("bob", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	if rec := do(t, h, "/sites/9", "bob"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetSite_BadID(t *testing.T) {
	conn, _ := dbtest.New(t, database.MySQL, "")
	if rec := do(t, New(conn).Routes(), "/sites/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSiteReports_OwnerOnly(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM access WHERE login = ? AND idsite = ? LIMIT 1")).
		WithArgs("alice", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(
		"INNER JOIN site AS site USING (idsite) WHERE report.deleted = ? AND site.idsite = ? AND report.login = ?",
	)).
		WithArgs(0, int64(1), "alice").
		WillReturnRows(sqlmock.NewRows([]string{"idreport"}))

	rec := do(t, h, "/sites/1/reports", "alice")
	if rec.Code != http.StatusOK || rec.Body.String() != "[]\n" {
		t.Fatalf("got %d %q, want 200 []", rec.Code, rec.Body)
	}
}

func TestQueryErrorIs500(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	h := New(conn).Routes()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT idsite FROM site ORDER BY idsite ASC")).
		WillReturnError(sqlmock.ErrCancelled)

	if rec := do(t, h, "/sites", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	conn, _ := dbtest.New(t, database.MySQL, "")
	rec := do(t, New(conn).Routes(), "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
