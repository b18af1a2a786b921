package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

// newServeCmd creates the 'serve' command
func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregated IOCs over HTTP",
		Long: `Start the read-only query service over the materialized IOC data.

Endpoints: GET /search?q=&limit=, GET /stats, GET /health and GET /metrics.
Send SIGHUP to reload the data file after an aggregation run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if port != 0 {
				app.Config.API.Port = port
			}

			app.StartAPIServer()

			if !quiet && !outputJSON {
				successColor.Fprintf(out, "✓ Query service listening on %s\n", app.Config.ListenAddr())
				printField("Data file", app.DataStore.Path())
				printField("IOCs loaded", strconv.Itoa(len(app.DataStore.Snapshot().IOCs)))
			}

			app.WaitForShutdown()
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from api.port)")

	return cmd
}
