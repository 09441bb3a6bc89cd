package commands

import (
	"github.com/spf13/cobra"

	"github.com/yanizio/metrica/internal/api"
	"github.com/yanizio/metrica/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(app *App) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Conn(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.cfg.HTTP.ListenAddr
			}
			srv := server.New(addr, api.New(conn).Routes())
			return server.Serve(cmd.Context(), srv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from http.listen_addr)")
	return cmd
}
