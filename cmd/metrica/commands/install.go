package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanizio/metrica/internal/database"
	"github.com/yanizio/metrica/internal/schema"
)

// NewInstallCommand creates the install command.
func NewInstallCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create every table that does not exist yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Conn(cmd.Context())
			if err != nil {
				return err
			}
			if err := schema.Install(cmd.Context(), conn); err != nil {
				return fmt.Errorf("install schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema installed (%s)\n", conn.Dialect())
			return nil
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables that hold at least one row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Conn(cmd.Context())
			if err != nil {
				return err
			}
			names, err := database.TablesWithData(cmd.Context(), schema.Tables(conn)...)
			if err != nil {
				return err
			}
			return app.print(cmd.OutOrStdout(), names, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, n := range names {
					fmt.Fprintln(tw, n)
				}
				return tw.Flush()
			})
		},
	}
}
