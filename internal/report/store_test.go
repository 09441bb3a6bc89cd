// internal/report/store_test.go
//
// Unit-tests for the report gateway using sqlmock.  Each dialect variant is
// exercised where its SQL differs.
//
// Run: go test ./internal/report -v

package report

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/database/dbtest"
)

const reportCols = "report.idreport, report.idsite, report.login, report.description, " +
	"report.idsegment, report.period, report.hour, report.type, report.format, " +
	"report.reports, report.parameters, report.ts_created, report.ts_last_sent, report.deleted"

var reportRowCols = []string{
	"idreport", "idsite", "login", "description", "idsegment", "period", "hour",
	"type", "format", "reports", "parameters", "ts_created", "ts_last_sent", "deleted",
}

func TestUpdateByID_SanitisesID(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE report SET `description` = ? WHERE idreport = ?",
	)).
		WithArgs("Weekly", int64(123)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := New(conn).UpdateByID(context.Background(),
		map[string]any{"description": "Weekly"}, "12x3")
	if err != nil {
		t.Fatalf("UpdateByID error: %v", err)
	}
}

func TestUpdateByID_NoDigits(t *testing.T) {
	conn, _ := dbtest.New(t, database.MySQL, "")

	for _, id := range []string{"", "abc", "' OR ''='"} {
		err := New(conn).UpdateByID(context.Background(),
			map[string]any{"description": "x"}, id)
		if !errors.Is(err, ErrInvalidID) {
			t.Fatalf("UpdateByID(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestUpdateByID_InjectionBindsDigitsOnly(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE report SET `description` = ? WHERE idreport = ?",
	)).
		WithArgs("x", int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := New(conn).UpdateByID(context.Background(),
		map[string]any{"description": "x"}, "1 OR 1=1")
	if err != nil {
		t.Fatalf("UpdateByID error: %v", err)
	}
}

func TestUpdateByID_Postgres_CoercesDeleted(t *testing.T) {
	conn, mock := dbtest.New(t, database.Postgres, "")

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE report SET "deleted" = $1 WHERE idreport = $2`,
	)).
		WithArgs("1", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(conn).SoftDelete(context.Background(), 9); err != nil {
		t.Fatalf("SoftDelete error: %v", err)
	}
}

func TestUpdateByID_RejectsUnknownColumn(t *testing.T) {
	conn, _ := dbtest.New(t, database.MySQL, "")

	err := New(conn).UpdateByID(context.Background(), map[string]any{"owner": "x"}, "1")
	if !errors.Is(err, database.ErrBadColumn) {
		t.Fatalf("err = %v, want ErrBadColumn", err)
	}
}

func TestInsert_Postgres_DeletedAsLiteral(t *testing.T) {
	conn, mock := dbtest.New(t, database.Postgres, "")

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO report ("deleted", "description", "format", "hour", "idsegment", "idsite", ` +
			`"login", "parameters", "period", "reports", "ts_created", "ts_last_sent", "type") ` +
			`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	)).
		WithArgs("0", "Daily KPIs", "pdf", 6, sqlmock.AnyArg(), int64(1), "alice",
			sqlmock.AnyArg(), "day", "[]", sqlmock.AnyArg(), sqlmock.AnyArg(), "email").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := New(conn).Insert(context.Background(), Record{
		IDSite:      1,
		Login:       "alice",
		Description: "Daily KPIs",
		Period:      "day",
		Hour:        6,
		Type:        "email",
		Format:      "pdf",
		Reports:     "[]",
	})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
}

func TestAllActive_NoFilters(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT " + reportCols + " FROM report AS report" +
			" INNER JOIN site AS site USING (idsite) WHERE report.deleted = ?",
	)).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows(reportRowCols).
			AddRow(int64(1), int64(1), "alice", "Daily", nil, "day", int64(6), "email", "pdf",
				"[]", nil, nil, nil, int64(0)).
			AddRow(int64(2), int64(3), "bob", "Weekly", int64(4), "week", int64(0), "email", "html",
				"[]", "{}", time.Now(), nil, int64(0)))

	rows, err := New(conn).AllActive(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("AllActive error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].IDSegment != nil || rows[1].IDSegment == nil || *rows[1].IDSegment != 4 {
		t.Fatalf("idsegment scan: %+v", rows)
	}
}

func TestAllActive_Postgres_AllFilters(t *testing.T) {
	conn, mock := dbtest.New(t, database.Postgres, "matomo_")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT " + reportCols + " FROM matomo_report AS report" +
			" INNER JOIN matomo_site AS site USING (idsite) WHERE report.deleted = $1" +
			" AND site.idsite = $2 AND report.period = $3 AND report.idreport = $4" +
			" AND report.idsegment = $5 AND report.login = $6",
	)).
		WithArgs("0", int64(1), "week", int64(7), int64(2), "alice").
		WillReturnRows(sqlmock.NewRows(reportRowCols))

	f := Filter{
		IDSite:    1,
		Period:    "week",
		IDReport:  7,
		IDSegment: 2,
		Login:     OwnerLogin("alice", false, false),
	}
	rows, err := New(conn).AllActive(context.Background(), f)
	if err != nil {
		t.Fatalf("AllActive error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %+v, want empty", rows)
	}
}

func TestOwnerLogin(t *testing.T) {
	cases := []struct {
		super, only bool
		want        string
	}{
		{false, false, "alice"},
		{false, true, "alice"},
		{true, true, "alice"},
		{true, false, ""},
	}
	for _, c := range cases {
		if got := OwnerLogin("alice", c.super, c.only); got != c.want {
			t.Errorf("OwnerLogin(super=%v, only=%v) = %q, want %q", c.super, c.only, got, c.want)
		}
	}
}

func TestByID_NotFound(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT " + reportCols + " FROM report AS report WHERE report.idreport = ?",
	)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(reportRowCols))

	rec, err := New(conn).ByID(context.Background(), 5)
	if err != nil || rec != nil {
		t.Fatalf("ByID = %+v, %v; want nil, nil", rec, err)
	}
}

func TestCreateTable_PerDialect(t *testing.T) {
	pg, pgMock := dbtest.New(t, database.Postgres, "")
	pgMock.ExpectExec(regexp.QuoteMeta(
		"CREATE TABLE IF NOT EXISTS report ( idreport SERIAL4 NOT NULL,",
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(pg).CreateTable(context.Background()); err != nil {
		t.Fatalf("postgres CreateTable error: %v", err)
	}

	my, myMock := dbtest.New(t, database.MySQL, "")
	myMock.ExpectExec(regexp.QuoteMeta(
		"CREATE TABLE IF NOT EXISTS report ( idreport INT(11) NOT NULL AUTO_INCREMENT,",
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(my).CreateTable(context.Background()); err != nil {
		t.Fatalf("mysql CreateTable error: %v", err)
	}
}

func TestMarkSent(t *testing.T) {
	conn, mock := dbtest.New(t, database.MySQL, "")
	at := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE report SET `ts_last_sent` = ? WHERE idreport = ?",
	)).
		WithArgs(at, int64(17)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := New(conn).MarkSent(context.Background(), 17, at); err != nil {
		t.Fatalf("MarkSent error: %v", err)
	}
}

func TestUpdateByID_NullOnlyForNullableColumns(t *testing.T) {
	conn, mock := dbtest.New(t, database.Postgres, "")
	s := New(conn)

	for _, col := range []string{"deleted", "description", "period"} {
		err := s.UpdateByID(context.Background(), map[string]any{col: nil}, "4")
		if !errors.Is(err, database.ErrNullValue) {
			t.Errorf("UpdateByID(%s: nil) err = %v, want ErrNullValue", col, err)
		}
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE report SET "ts_last_sent" = $1 WHERE idreport = $2`)).
		WithArgs(nil, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpdateByID(context.Background(), map[string]any{"ts_last_sent": nil}, "4"); err != nil {
		t.Fatalf("UpdateByID(ts_last_sent: nil) error: %v", err)
	}
}
