package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/domlens/domlens/internal/domtree"
	"github.com/domlens/domlens/internal/hints"
	"github.com/domlens/domlens/internal/lanes"
	"github.com/domlens/domlens/internal/mcp"
	"github.com/domlens/domlens/internal/target"
	"github.com/domlens/domlens/internal/tools"
)

// newMCPCmd serves the same tool surface over MCP on stdio. stdout is
// the protocol channel, so all logging stays on stderr.
func newMCPCmd() *cobra.Command {
	var cdpURL string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool surface over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cdpURL != "" {
				cfg.Browser.CDPURL = cdpURL
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			queue := lanes.NewManager(cfg.Queue.MaxConcurrent, cfg.Queue.CallTimeout())
			defer queue.Shutdown()

			targets := target.NewManager(cfg.Browser)
			if err := targets.Connect(ctx); err != nil {
				return fmt.Errorf("connect browser: %w", err)
			}
			defer targets.Close()

			sessions := hints.NewRegistry(cfg)
			defer sessions.Close()

			registry := tools.NewRegistry()
			binder := tools.NewBinder(targets, domtree.NewManager(queue))
			tools.RegisterDefaults(registry, binder, sessions, tools.PlaywrightDialer(cfg.Browser))

			return mcp.ServeStdio(ctx, registry)
		},
	}

	cmd.Flags().StringVar(&cdpURL, "cdp-url", "", "attach to a running browser instead of launching one")
	return cmd
}
