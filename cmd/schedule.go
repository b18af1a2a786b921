package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// newScheduleCmd creates the 'schedule' command
func newScheduleCmd() *cobra.Command {
	var (
		cronSpec    string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the aggregation periodically",
		Long: `Run the aggregation on a cron schedule until interrupted.

The schedule accepts a cron expression with a seconds field or a descriptor
such as @hourly or @every 30m. A run that is still in progress when the next
one is due causes that tick to be skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if err := app.InitPipeline(context.Background()); err != nil {
				return err
			}

			if metricsAddr == "" {
				metricsAddr = app.Config.Metrics.Addr
			}
			app.StartMetricsServer(metricsAddr)

			if err := app.StartScheduler(cronSpec); err != nil {
				return err
			}

			if !quiet && !outputJSON {
				successColor.Fprintln(out, "✓ Scheduler started")
				printField("Next run", formatTime(app.Scheduler.Next()))
				printField("Metrics", metricsAddr)
			}

			app.WaitForShutdown()
			return nil
		},
	}

	cmd.Flags().StringVar(&cronSpec, "cron", "", "Cron schedule (default from schedule.spec)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (default from metrics.addr)")

	return cmd
}
