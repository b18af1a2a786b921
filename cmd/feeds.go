package cmd

import (
	"fmt"

	"threatintel/bootstrap"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newFeedsCmd creates the 'feeds' command
func newFeedsCmd() *cobra.Command {
	feedsCmd := &cobra.Command{
		Use:   "feeds",
		Short: "Inspect the configured feeds",
	}

	feedsCmd.AddCommand(newFeedsListCmd())

	return feedsCmd
}

// newFeedsListCmd creates the 'feeds list' subcommand
func newFeedsListCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured feeds",
		Long:    "Display the feeds aggregated on every run, in processing order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap.InitConfig(configFile)
			if err != nil {
				return err
			}

			switch {
			case outputJSON:
				return outputAsJSON(cfg.Feeds)
			case asYAML:
				data, err := yaml.Marshal(map[string]interface{}{"feeds": cfg.Feeds})
				if err != nil {
					return fmt.Errorf("failed to encode feeds: %w", err)
				}
				_, err = out.Write(data)
				return err
			}

			renderFeedsTable(cfg.Feeds)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output as a YAML config snippet")

	return cmd
}
