package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanizio/metrica/internal/report"
)

// NewReportCommand creates the parent report command.
func NewReportCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect and retire scheduled reports",
	}
	cmd.AddCommand(newReportListCommand(app))
	cmd.AddCommand(newReportDeleteCommand(app))
	return cmd
}

func newReportListCommand(app *App) *cobra.Command {
	var (
		f                  report.Filter
		login              string
		superUser, ownOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active reports of existing sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Conn(cmd.Context())
			if err != nil {
				return err
			}
			f.Login = report.OwnerLogin(login, superUser, ownOnly)

			recs, err := report.New(conn).AllActive(cmd.Context(), f)
			if err != nil {
				return err
			}
			return app.print(cmd.OutOrStdout(), recs, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSITE\tLOGIN\tPERIOD\tHOUR\tFORMAT\tDESCRIPTION")
				for _, r := range recs {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\t%s\n",
						r.IDReport, r.IDSite, r.Login, r.Period, r.Hour, r.Format, r.Description)
				}
				return tw.Flush()
			})
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&f.IDSite, "site", 0, "Only reports of this site")
	fl.StringVar(&f.Period, "period", "", "Only reports with this period (day, week, month, ...)")
	fl.Int64Var(&f.IDReport, "id", 0, "Only this report")
	fl.Int64Var(&f.IDSegment, "segment", 0, "Only reports using this segment")
	fl.StringVar(&login, "login", "", "Caller login; reports are limited to those it owns")
	fl.BoolVar(&superUser, "super-user", false, "The caller is a super user and sees every owner's reports")
	fl.BoolVar(&ownOnly, "own", false, "With --super-user: still only the caller's own reports")
	return cmd
}

func newReportDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <idreport>",
		Short: "Soft-delete a report; the row is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Conn(cmd.Context())
			if err != nil {
				return err
			}
			// The id is sanitised by the gateway, so "12x3" addresses 123.
			return report.New(conn).UpdateByID(cmd.Context(),
				map[string]any{"deleted": true}, args[0])
		},
	}
}
