package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/domlens/domlens/internal/hints"
	"github.com/domlens/domlens/internal/tools"
)

// newHintsCmd builds the hint labeling command: attach to a page, detect
// its clickable elements and print them, optionally clicking one.
func newHintsCmd() *cobra.Command {
	var (
		cdpURL   string
		headless bool
		show     bool
		click    int
	)

	cmd := &cobra.Command{
		Use:   "hints <url>",
		Short: "Detect and label clickable elements on a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = headless
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			dial := tools.PlaywrightDialer(cfg.Browser)
			host, err := dial(ctx, args[0], cdpURL)
			if err != nil {
				return fmt.Errorf("attach page: %w", err)
			}

			sessions := hints.NewRegistry(cfg)
			defer sessions.Close()
			id, session := sessions.Attach(ctx, host)
			defer sessions.Detach(id)

			var found []hints.Hint
			if show || click >= 0 {
				found, err = session.ShowHints(ctx)
			} else {
				found, err = session.DetectHints(ctx)
			}
			if err != nil {
				return err
			}

			for i, h := range found {
				label := h.Label
				if label == "" {
					label = "-"
				}
				fmt.Printf("[%d] %-3s %-8s %q", i, label, strings.ToLower(h.TagName), h.LinkText)
				if h.Href != "" {
					fmt.Printf(" -> %s", h.Href)
				}
				if h.Reason != "" {
					fmt.Printf(" (%s)", h.Reason)
				}
				fmt.Println()
			}

			if click >= 0 {
				if err := session.ClickHint(ctx, click); err != nil {
					return err
				}
				fmt.Printf("clicked hint %d\n", click)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cdpURL, "cdp-url", "", "attach to a running browser over CDP instead of launching one")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the launched browser headless")
	cmd.Flags().BoolVar(&show, "show", false, "render hint labels on the page before printing")
	cmd.Flags().IntVar(&click, "click", -1, "click the hint at this index after showing")
	return cmd
}
