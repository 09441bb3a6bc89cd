package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/metrica/internal/access"
	"github.com/yanizio/metrica/internal/site"
)

// NewSiteCommand creates the parent site command.
func NewSiteCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage tracked sites, alias URLs, and access grants",
	}
	cmd.AddCommand(newSiteAddCommand(app))
	cmd.AddCommand(newSiteListCommand(app))
	cmd.AddCommand(newSiteShowCommand(app))
	cmd.AddCommand(newSiteDeleteCommand(app))
	cmd.AddCommand(newSiteSearchCommand(app))
	cmd.AddCommand(newSiteAliasCommand(app))
	cmd.AddCommand(newSiteGrantCommand(app))
	cmd.AddCommand(newSiteBackdateCommand(app))
	return cmd
}

func gateways(app *App, cmd *cobra.Command) (*site.Gateway, *access.Store, error) {
	conn, err := app.Conn(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	acc := access.New(conn)
	return site.New(conn, acc), acc, nil
}

func printSites(app *App, w io.Writer, recs []site.Record) error {
	return app.print(w, recs, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tMAIN URL\tGROUP\tTIMEZONE\tCREATED")
		for _, r := range recs {
			created := "-"
			if r.TSCreated != nil {
				created = r.TSCreated.Format(time.DateTime)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.IDSite, r.Name, r.MainURL, r.Group, r.Timezone, created)
		}
		return tw.Flush()
	})
}

func newSiteAddCommand(app *App) *cobra.Command {
	var (
		rec     site.Record
		aliases []string
	)
	cmd := &cobra.Command{
		Use:   "add <name> <main-url>",
		Short: "Create a site and its alias URLs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			rec.Name, rec.MainURL = args[0], args[1]
			id, err := g.Create(cmd.Context(), rec)
			if err != nil {
				return fmt.Errorf("create site: %w", err)
			}
			for _, u := range aliases {
				if err := g.Aliases.Insert(cmd.Context(), id, u); err != nil {
					return fmt.Errorf("add alias %s: %w", u, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rec.Timezone, "timezone", "UTC", "Reporting timezone")
	f.StringVar(&rec.Currency, "currency", "USD", "ISO 4217 currency code")
	f.StringVar(&rec.Group, "group", "", "Site group")
	f.StringVar(&rec.Type, "type", "website", "Site type")
	f.BoolVar(&rec.Ecommerce, "ecommerce", false, "Enable ecommerce tracking")
	f.BoolVar(&rec.SiteSearch, "sitesearch", true, "Enable site search tracking")
	f.StringVar(&rec.ExcludedIPs, "excluded-ips", "", "Comma-separated IPs to ignore")
	f.StringVar(&rec.ExcludedParameters, "excluded-parameters", "", "Comma-separated query parameters to strip")
	f.StringSliceVar(&aliases, "alias", nil, "Alias URL (repeatable)")
	return cmd
}

func newSiteListCommand(app *App) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sites, optionally one group only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			var recs []site.Record
			if cmd.Flags().Changed("group") {
				recs, err = g.ByGroup(cmd.Context(), group)
			} else {
				recs, err = g.All(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printSites(app, cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "Only sites in this group (may be empty)")
	return cmd
}

func newSiteShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <idsite>",
		Short: "Show one site and all its URLs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			rec, err := g.ByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("site %d not found", id)
			}
			urls, err := g.URLs(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := struct {
				*site.Record
				URLs []string `json:"urls"`
			}{rec, urls}
			return app.print(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if err := printSites(app, w, []site.Record{*rec}); err != nil {
					return err
				}
				for _, u := range urls {
					fmt.Fprintf(w, "  %s\n", u)
				}
				return nil
			})
		},
	}
}

func newSiteDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <idsite>",
		Short: "Delete a site with its alias URLs and access grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			return g.Delete(cmd.Context(), id)
		},
	}
}

func newSiteSearchCommand(app *App) *cobra.Command {
	var (
		login string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search sites by name, URL, group, or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, acc, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			var ids []int64
			if login != "" {
				ids, err = acc.Sites(cmd.Context(), login)
			} else {
				ids, err = g.IDs(cmd.Context())
			}
			if err != nil {
				return err
			}
			recs, err := g.Search(cmd.Context(), ids, args[0], limit)
			if err != nil {
				return err
			}
			return printSites(app, cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().StringVar(&login, "login", "", "Only sites this login holds a grant on")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 = all)")
	return cmd
}

func newSiteAliasCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "alias <idsite> <url>...",
		Short: "Add alias URLs to a site",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			for _, u := range args[1:] {
				if err := g.Aliases.Insert(cmd.Context(), id, u); err != nil {
					return fmt.Errorf("add alias %s: %w", u, err)
				}
			}
			return nil
		},
	}
}

func newSiteGrantCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "grant <login> <idsite> <view|admin>",
		Short: "Grant a login access to a site",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			level, err := access.ParseLevel(args[2])
			if err != nil {
				return err
			}
			_, acc, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			return acc.Grant(cmd.Context(), args[0], id, level)
		},
	}
}

func newSiteBackdateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "backdate <YYYY-MM-DD> <idsite>...",
		Short: "Move the creation date of sites back to the given day",
		Long: `Move ts_created back to the given day (UTC) for every listed site created
after it.  Sites created on or before that day are left unchanged.  Use this
after importing historical visits.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.ParseInLocation(time.DateOnly, args[0], time.UTC)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			ids := make([]int64, 0, len(args)-1)
			for _, a := range args[1:] {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			g, _, err := gateways(app, cmd)
			if err != nil {
				return err
			}
			return g.SetCreatedTimeIfOlder(cmd.Context(), ids, day)
		},
	}
}
