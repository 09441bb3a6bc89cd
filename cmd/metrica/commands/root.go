// Package commands implements the metrica CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/metrica/internal/config"
	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/logger"
	"github.com/yanizio/metrica/internal/vault"
)

// App carries state shared by every command: flags, and the connection
// opened on first use.
type App struct {
	Debug bool
	JSON  bool

	cfg  *config.Config
	conn *database.Conn
}

// Execute builds the command tree and runs it under ctx.
func Execute(ctx context.Context, version string) error {
	app := &App{}
	return app.execute(ctx, newRootCommand(app, version))
}

// execute runs root and then releases the pool and flushes the logger.
// cobra skips post-run hooks when RunE fails, so cleanup lives here.
func (a *App) execute(ctx context.Context, root *cobra.Command) error {
	defer a.Close()
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the full command tree.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&App{}, version)
}

func newRootCommand(app *App, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "metrica",
		Short:         "Manage the metrica analytics database",
		Long:          "metrica installs the schema and manages sites, alias URLs, access grants, and scheduled reports.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Console(app.Debug)
		},
	}

	cmd.PersistentFlags().BoolVar(&app.Debug, "debug", false, "Log at debug level, including failed statements")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print results as JSON")

	cmd.AddCommand(NewInstallCommand(app))
	cmd.AddCommand(NewTablesCommand(app))
	cmd.AddCommand(NewSiteCommand(app))
	cmd.AddCommand(NewReportCommand(app))
	cmd.AddCommand(NewServeCommand(app))
	return cmd
}

// Conn loads the configuration, starts the file logger, and opens the
// pool.  Later calls return the same connection.
func (a *App) Conn(ctx context.Context) (*database.Conn, error) {
	if a.conn != nil {
		return a.conn, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := logger.New(cfg.Log.Dir, cfg.Log.Tee, a.Debug); err != nil {
		return nil, fmt.Errorf("start logger: %w", err)
	}

	var secrets config.SecretGetter
	if config.IsVaultRef(cfg.Database.Password) {
		cli, err := vault.New(ctx)
		if err != nil {
			return nil, err
		}
		secrets = cli
	}
	dsn, err := cfg.Database.DataSource(ctx, secrets)
	if err != nil {
		return nil, err
	}

	d, err := database.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := database.Open(ctx, d, dsn, cfg.Database.Options(), database.Prefix(cfg.Database.TablePrefix))
	if err != nil {
		return nil, err
	}

	a.cfg, a.conn = cfg, conn
	return conn, nil
}

// Close releases the pool if one was opened.
func (a *App) Close() {
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	_ = zap.L().Sync()
}

// print writes v as JSON when --json is set, otherwise through text.
func (a *App) print(w io.Writer, v any, text func(io.Writer) error) error {
	if a.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
