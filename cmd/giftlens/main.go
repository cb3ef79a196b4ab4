// Package main provides the Giftlens CLI entrypoint.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/giftlens/giftlens/internal/config"
	"github.com/giftlens/giftlens/internal/observability"
)

// cli carries state shared by subcommands.
type cli struct {
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	cfg    *config.Config
	logger *observability.Logger
	ui     *UI
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "giftlens",
		Short: "Giftlens CLI for gift recommendations and catalog administration",
		Long: `Giftlens recommends gifts from a product catalog for a free-text prompt.

Use this tool to:
- Ask for recommendations from the terminal
- Build and persist the product embedding index
- Inspect the product catalog`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			c.cfg, err = config.Load(c.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if c.noColor {
				color.NoColor = true
			}

			// Logs go to stderr and stay quiet unless asked for, so that
			// stdout carries only results.
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logFormat := "console"
			if c.outputJSON {
				logFormat = "json"
			}
			c.logger = observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      logFormat,
				Output:      cmd.ErrOrStderr(),
				ServiceName: "giftlens-cli",
			})

			c.ui = NewUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), c.outputJSON, c.noColor)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path (default: env vars and built-in defaults)")
	root.PersistentFlags().BoolVar(&c.outputJSON, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRecommendCmd(c))
	root.AddCommand(newIndexCmd(c))
	root.AddCommand(newCatalogCmd(c))

	return root
}

// printJSON writes v to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
