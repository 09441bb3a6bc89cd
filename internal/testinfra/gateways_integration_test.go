//go:build integration

package testinfra

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/yanizio/metrica/internal/access"
	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/report"
	"github.com/yanizio/metrica/internal/schema"
	"github.com/yanizio/metrica/internal/site"
)

func forEachDialect(t *testing.T, fn func(t *testing.T, conn *database.Conn)) {
	for _, d := range []database.Dialect{database.MySQL, database.Postgres} {
		t.Run(d.String(), func(t *testing.T) {
			conn := Open(t, d, "matomo_")
			if err := schema.Install(context.Background(), conn); err != nil {
				t.Fatalf("install: %v", err)
			}
			fn(t, conn)
		})
	}
}

func TestGateways_Integration(t *testing.T) {
	forEachDialect(t, func(t *testing.T, conn *database.Conn) {
		ctx := context.Background()
		acc := access.New(conn)
		sites := site.New(conn, acc)
		reports := report.New(conn)

		// A second install must be a no-op.
		if err := schema.Install(ctx, conn); err != nil {
			t.Fatalf("reinstall: %v", err)
		}

		ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		blog, err := sites.Create(ctx, site.Record{
			Name: "Blog", MainURL: "https://blog.example", TSCreated: &ts,
			Ecommerce: true, Timezone: "UTC", Currency: "EUR", Type: "website",
		})
		if err != nil {
			t.Fatalf("create blog: %v", err)
		}
		shop, err := sites.Create(ctx, site.Record{
			Name: "Web Shop", MainURL: "https://shop.example", TSCreated: &ts,
			Timezone: "Europe/Berlin", Currency: "EUR", Group: "retail", Type: "website",
		})
		if err != nil {
			t.Fatalf("create shop: %v", err)
		}
		if err := sites.Aliases.Insert(ctx, shop, "https://www.shop.example"); err != nil {
			t.Fatalf("alias: %v", err)
		}

		t.Run("round trip", func(t *testing.T) {
			rec, err := sites.ByID(ctx, blog)
			if err != nil || rec == nil {
				t.Fatalf("ByID = %v, %v", rec, err)
			}
			if !rec.Ecommerce || rec.SiteSearch || rec.TSCreated == nil || !rec.TSCreated.Equal(ts) {
				t.Fatalf("flags or time lost: %+v", rec)
			}
			if missing, err := sites.ByID(ctx, 9999); err != nil || missing != nil {
				t.Fatalf("missing ByID = %v, %v", missing, err)
			}
		})

		t.Run("created time only moves backwards", func(t *testing.T) {
			early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			news, err := sites.Create(ctx, site.Record{
				Name: "News", MainURL: "https://news.example", TSCreated: &early,
				Timezone: "UTC", Currency: "EUR", Type: "website",
			})
			if err != nil {
				t.Fatalf("create news: %v", err)
			}

			floor := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			if err := sites.SetCreatedTimeIfOlder(ctx, []int64{blog, news}, floor); err != nil {
				t.Fatalf("SetCreatedTimeIfOlder: %v", err)
			}
			// A second call at the same instant leaves the equal row alone.
			if err := sites.SetCreatedTimeIfOlder(ctx, []int64{blog}, floor); err != nil {
				t.Fatalf("SetCreatedTimeIfOlder again: %v", err)
			}

			for id, want := range map[int64]time.Time{blog: floor, news: early, shop: ts} {
				rec, err := sites.ByID(ctx, id)
				if err != nil || rec == nil || rec.TSCreated == nil {
					t.Fatalf("ByID(%d) = %+v, %v", id, rec, err)
				}
				if !rec.TSCreated.Equal(want) {
					t.Errorf("site %d ts_created = %v, want %v", id, rec.TSCreated, want)
				}
			}

			if err := sites.Delete(ctx, news); err != nil {
				t.Fatalf("delete news: %v", err)
			}
		})

		t.Run("visits window excludes from and includes to", func(t *testing.T) {
			first := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
			second := first.Add(24 * time.Hour)
			insert := "INSERT INTO " + conn.Table("log_visit") + " (idsite, visit_last_action_time) VALUES (?, ?)"
			for id, at := range map[int64]time.Time{blog: first, shop: second} {
				if _, err := conn.Exec(ctx, insert, id, at); err != nil {
					t.Fatalf("insert visit: %v", err)
				}
			}

			ids, err := sites.IDsWithVisits(ctx, first, second)
			if err != nil || len(ids) != 1 || ids[0] != shop {
				t.Fatalf("IDsWithVisits(first, second] = %v, %v; want [%d]", ids, err, shop)
			}
			ids, err = sites.IDsWithVisits(ctx, first.Add(-time.Second), first)
			if err != nil || len(ids) != 1 || ids[0] != blog {
				t.Fatalf("IDsWithVisits(first-1s, first] = %v, %v; want [%d]", ids, err, blog)
			}
			ids, err = sites.IDsWithVisits(ctx, second, second.Add(time.Hour))
			if err != nil || len(ids) != 0 {
				t.Fatalf("IDsWithVisits(second, second+1h] = %v, %v; want []", ids, err)
			}
		})

		t.Run("search is case-insensitive", func(t *testing.T) {
			got, err := sites.Search(ctx, []int64{blog, shop}, "SHOP", 0)
			if err != nil || len(got) != 1 || got[0].IDSite != shop {
				t.Fatalf("Search = %+v, %v", got, err)
			}
		})

		t.Run("urls", func(t *testing.T) {
			urls, err := sites.URLs(ctx, shop)
			if err != nil || len(urls) != 2 || urls[0] != "https://shop.example" {
				t.Fatalf("URLs = %v, %v", urls, err)
			}
			ids, err := sites.IDsByURLs(ctx, []string{"https://www.shop.example", "https://blog.example"})
			if err != nil || len(ids) != 2 {
				t.Fatalf("IDsByURLs = %v, %v", ids, err)
			}
		})

		t.Run("access filtered lookup", func(t *testing.T) {
			if err := acc.Grant(ctx, "alice", blog, access.View); err != nil {
				t.Fatalf("grant: %v", err)
			}
			ids, err := sites.IDsByURLsWithAccess(ctx, "alice",
				[]string{"https://blog.example", "https://shop.example"})
			if err != nil || len(ids) != 1 || ids[0] != blog {
				t.Fatalf("IDsByURLsWithAccess = %v, %v", ids, err)
			}
		})

		t.Run("reports skip deleted sites and rows", func(t *testing.T) {
			for _, id := range []int64{blog, shop} {
				if err := reports.Insert(ctx, report.Record{
					IDSite: id, Login: "alice", Description: "daily", Period: "day",
					Type: "email", Format: "pdf", Reports: "[]",
				}); err != nil {
					t.Fatalf("insert report: %v", err)
				}
			}

			if err := acc.Grant(ctx, "bob", shop, access.Admin); err != nil {
				t.Fatalf("grant bob: %v", err)
			}
			if err := sites.Delete(ctx, shop); err != nil {
				t.Fatalf("delete shop: %v", err)
			}
			if urls, _ := sites.Aliases.BySite(ctx, shop); len(urls) != 0 {
				t.Fatalf("aliases survived delete: %v", urls)
			}
			if ok, err := acc.Allowed(ctx, "bob", shop); err != nil || ok {
				t.Fatalf("grant survived delete: %v, %v", ok, err)
			}
			if ids, err := acc.Sites(ctx, "bob"); err != nil || len(ids) != 0 {
				t.Fatalf("bob still has sites %v, %v", ids, err)
			}

			active, err := reports.AllActive(ctx, report.Filter{})
			if err != nil || len(active) != 1 || active[0].IDSite != blog {
				t.Fatalf("AllActive = %+v, %v", active, err)
			}

			// Non-digits are stripped from the id before it is bound.
			id := active[0].IDReport
			if err := reports.UpdateByID(ctx, map[string]any{"description": "weekly"},
				"#"+strconv.FormatInt(id, 10)+"x"); err != nil {
				t.Fatalf("UpdateByID: %v", err)
			}
			if err := reports.UpdateByID(ctx, map[string]any{"description": "x"}, "none"); !errors.Is(err, report.ErrInvalidID) {
				t.Fatalf("err = %v, want ErrInvalidID", err)
			}

			if err := reports.SoftDelete(ctx, id); err != nil {
				t.Fatalf("SoftDelete: %v", err)
			}
			if active, _ := reports.AllActive(ctx, report.Filter{}); len(active) != 0 {
				t.Fatalf("soft-deleted report still active: %+v", active)
			}
			rec, err := reports.ByID(ctx, id)
			if err != nil || rec == nil || !rec.Deleted || rec.Description != "weekly" {
				t.Fatalf("ByID after soft delete = %+v, %v", rec, err)
			}
		})

		t.Run("tables with data", func(t *testing.T) {
			names, err := database.TablesWithData(ctx, schema.Tables(conn)...)
			if err != nil {
				t.Fatalf("TablesWithData: %v", err)
			}
			want := map[string]bool{
				"matomo_site": true, "matomo_access": true,
				"matomo_log_visit": true, "matomo_report": true,
			}
			for _, n := range names {
				if !want[n] {
					t.Errorf("unexpected table with data: %s", n)
				}
				delete(want, n)
			}
			if len(want) != 0 {
				t.Errorf("tables reported empty: %v", want)
			}
		})
	})
}
