package cmd

import (
	"context"
	"fmt"
	"time"

	"threatintel/core"
	"threatintel/threat/feeds"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// runSummary is the JSON form of an aggregation run
type runSummary struct {
	Stats   core.RunStats `json:"stats"`
	Outputs []string      `json:"outputs"`
}

// newAggregateCmd creates the 'aggregate' command
func newAggregateCmd() *cobra.Command {
	var (
		noCache      bool
		showProgress bool
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Fetch all feeds once and write the aggregated IOCs",
		Long: `Fetch every configured feed, merge the indicators and write the result
to the front-end and query service data files.

Feeds fetched within the last hour are served from the cache unless --no-cache is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if err := app.InitPipeline(ctx); err != nil {
				return err
			}

			var s *spinner.Spinner
			if showProgress && !outputJSON && !quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				s.Suffix = " Aggregating feeds..."
				s.Start()
			}

			var progress feeds.ProgressCallback
			if s != nil {
				progress = func(event, message string, pct int) {
					s.Lock()
					s.Suffix = fmt.Sprintf(" [%3d%%] %s", pct, message)
					s.Unlock()
				}
			}

			result, err := app.RunPipeline(ctx, !noCache, progress)

			if s != nil {
				s.Stop()
			}

			if err != nil {
				return fmt.Errorf("aggregation failed: %w", err)
			}

			if outputJSON {
				return outputAsJSON(runSummary{Stats: result.Stats, Outputs: app.Materializer.Paths()})
			}

			if !quiet {
				renderRunSummary(result, app.Config.Feeds, app.Materializer.Paths())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the feed cache and fetch everything")
	cmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress indicator")

	return cmd
}
