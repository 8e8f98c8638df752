package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/domlens/domlens/internal/domtree"
	"github.com/domlens/domlens/internal/lanes"
	"github.com/domlens/domlens/internal/target"
)

// newInspectCmd builds the one-shot page inspection command: open the
// page, build the tree once and print the flattened representation.
func newInspectCmd() *cobra.Command {
	var (
		cdpURL    string
		headless  bool
		statsOnly bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Print the flattened interactive-element view of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cdpURL != "" {
				cfg.Browser.CDPURL = cdpURL
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			targets := target.NewManager(cfg.Browser)
			if err := targets.Connect(ctx); err != nil {
				return fmt.Errorf("connect browser: %w", err)
			}
			defer targets.Close()

			tab, err := targets.OpenTab(ctx, args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}

			queue := lanes.NewManager(cfg.Queue.MaxConcurrent, cfg.Queue.CallTimeout())
			defer queue.Shutdown()

			svc := domtree.NewService(tab.ID, tab, queue)
			stats, err := svc.BuildDOMTree(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("tab %s: %d nodes, %d interactive, displayed change %+d\n",
				tab.ID, stats.TotalNodes, stats.InteractiveNodes, stats.SimplifiedNodesCountChange)
			if statsOnly {
				return nil
			}

			flat, err := svc.FlattenDOM(ctx)
			if err != nil {
				return err
			}
			fmt.Println(flat)
			return nil
		},
	}

	cmd.Flags().StringVar(&cdpURL, "cdp-url", "", "attach to a running browser instead of launching one")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the launched browser headless")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "print build stats only")
	return cmd
}
