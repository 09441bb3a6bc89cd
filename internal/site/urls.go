package site

import (
	"context"

	"github.com/yanizio/metrica/internal/database"
)

// URLGateway manages alias URLs in the `site_url` table.  Each row pairs an
// idsite with one alias; the main URL lives on the site row itself.
type URLGateway struct {
	database.Table
}

// NewURLGateway binds a URLGateway to conn.
func NewURLGateway(conn *database.Conn) *URLGateway {
	return &URLGateway{Table: database.NewTable(conn, "site_url")}
}

// Insert adds url as an alias of idSite.  The caller must ensure the pair
// does not exist yet.
func (u *URLGateway) Insert(ctx context.Context, idSite int64, url string) error {
	_, err := u.Conn().Insert(ctx, u.Name(), map[string]any{
		"idsite": idSite,
		"url":    url,
	})
	return err
}

// BySite lists the alias URLs of idSite.
func (u *URLGateway) BySite(ctx context.Context, idSite int64) ([]string, error) {
	urls := []string{}
	err := u.Conn().Select(ctx, &urls, "SELECT url FROM "+u.Name()+" WHERE idsite = ?", idSite)
	return urls, err
}

// DeleteBySite removes every alias URL of idSite.
func (u *URLGateway) DeleteBySite(ctx context.Context, idSite int64) error {
	_, err := u.Conn().Exec(ctx, "DELETE FROM "+u.Name()+" WHERE idsite = ?", idSite)
	return err
}
