package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the 'cache' command
func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the feed cache",
	}

	cacheCmd.AddCommand(newCacheStatsCmd())
	cacheCmd.AddCommand(newCacheClearCmd())

	return cacheCmd
}

// newCacheStatsCmd creates the 'cache stats' subcommand
func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show feed cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if err := app.InitCache(ctx); err != nil {
				return err
			}

			stats, err := app.Cache.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read cache stats: %w", err)
			}

			if outputJSON {
				return outputAsJSON(stats)
			}

			renderCacheStats(stats)
			return nil
		},
	}
}

// newCacheClearCmd creates the 'cache clear' subcommand
func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached feed snapshots",
		Long:  "Remove all cached feed snapshots so the next run fetches every feed from the network.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()

			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Shutdown()

			if err := app.InitCache(ctx); err != nil {
				return err
			}

			if err := app.Cache.Clear(ctx); err != nil {
				errorColor.Fprintf(out, "✗ Failed to clear cache\n")
				return fmt.Errorf("failed to clear cache: %w", err)
			}

			if outputJSON {
				return outputAsJSON(map[string]interface{}{"cleared": true})
			}
			if !quiet {
				successColor.Fprintln(out, "✓ Feed cache cleared")
			}
			return nil
		},
	}
}
