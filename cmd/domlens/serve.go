package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/domlens/domlens/internal/domtree"
	"github.com/domlens/domlens/internal/hints"
	"github.com/domlens/domlens/internal/lanes"
	"github.com/domlens/domlens/internal/server"
	"github.com/domlens/domlens/internal/target"
	"github.com/domlens/domlens/internal/tools"
)

// newServeCmd wires the whole stack and serves the tool surface over
// HTTP until interrupted.
func newServeCmd() *cobra.Command {
	var cdpURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool surface over HTTP with a websocket event feed",
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

			hub := server.NewHub()
			queue.OnEvent(func(e lanes.Event) { hub.Broadcast("lane", e) })

			srv := server.New(cfg.Server, registry, hub)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&cdpURL, "cdp-url", "", "attach to a running browser instead of launching one")
	return cmd
}
