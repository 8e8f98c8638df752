package main

import (
	"github.com/spf13/cobra"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/logging"
)

// Shared CLI flags (used across command files)
var (
	cfgFile string
	quiet   bool
	cfg     config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "domlens",
		Short: "domlens - DOM interaction detection engine",
		Long: `domlens fuses the CDP DOM, accessibility tree and layout snapshot into
a single indexed tree of interactive elements, and can overlay clickable
hint labels on a live page.

Use 'inspect' for a one-shot flattened view of a page, 'hints' to label
its clickable elements, and 'serve' to expose the tool surface over HTTP.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
			logging.SetQuiet(quiet)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "domlens.yaml", "config file (missing file falls back to defaults)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output, print results only")

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newHintsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	return rootCmd
}
