// Package cmd provides the command-line interface of the threat intel aggregator.
package cmd

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"threatintel/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	outputJSON bool
	configFile string
	noColor    bool
	quiet      bool
)

// out receives command output. Logs go to stderr.
var out io.Writer = os.Stdout

// cacheTimeout bounds the cache maintenance commands. Aggregation runs have
// no overall deadline; each fetch is bounded by fetch.timeout.
var cacheTimeout = 2 * time.Minute

// NewRootCmd creates the threatintel command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "threatintel",
		Short: "Aggregate public IOC blocklists and serve them for lookup",
		Long: `Aggregate plaintext IOC blocklists into one deduplicated indicator set.

Feeds are fetched over HTTP (through a local cache with a one hour expiry),
normalized line by line, merged across feeds and written as JSON for the
static front-end and the query service.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (default ./config.yaml or ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newAggregateCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFeedsCmd())
	rootCmd.AddCommand(newCacheCmd())

	return rootCmd
}

// newApp builds the application from the global flags
func newApp() (*bootstrap.App, error) {
	opts := bootstrap.Options{ConfigPath: configFile}
	if quiet {
		opts.LogLevel = "warn"
	}
	return bootstrap.NewApp(opts)
}

func outputAsJSON(data interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
