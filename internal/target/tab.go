package target

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/domlens/domlens/internal/domtree"
)

// Tab is one attached page target. It implements domtree.Puller, so a
// tree service can be bound straight to it.
type Tab struct {
	ID     string
	ctx    context.Context
	cancel context.CancelFunc
}

// Pull captures the pierced DOM tree, the full accessibility tree and
// the layout snapshot in one round of CDP calls.
func (t *Tab) Pull(ctx context.Context) (*domtree.PageSnapshot, error) {
	runCtx := t.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(t.ctx, deadline)
		defer cancel()
	}

	snap := &domtree.PageSnapshot{TargetID: t.ID}
	var dpr float64
	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			doc, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(ctx)
			if err != nil {
				return fmt.Errorf("dom tree: %w", err)
			}
			if err := accessibility.Enable().Do(ctx); err != nil {
				return fmt.Errorf("enable accessibility: %w", err)
			}
			ax, err := accessibility.GetFullAXTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("ax tree: %w", err)
			}
			docs, strs, err := domsnapshot.CaptureSnapshot(domtree.ComputedStyleKeys).
				WithIncludePaintOrder(true).
				WithIncludeDOMRects(true).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("layout snapshot: %w", err)
			}
			snap.Document = doc
			snap.AXNodes = ax
			snap.Documents = docs
			snap.Strings = strs
			return nil
		}),
		chromedp.Evaluate("window.devicePixelRatio", &dpr),
	)
	if err != nil {
		return nil, err
	}
	snap.DevicePixelRatio = dpr
	return snap, nil
}

// OnDocumentUpdated invokes fn whenever the page signals that its
// document changed. Used to flag cached trees stale.
func (t *Tab) OnDocumentUpdated(fn func()) {
	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch ev.(type) {
		case *dom.EventDocumentUpdated, *page.EventFrameNavigated, *page.EventLoadEventFired:
			fn()
		}
	})
}

// Navigate drives the tab to a new URL and waits for the body.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	runCtx := t.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(t.ctx, deadline)
		defer cancel()
	}
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// URL reports the tab's current location.
func (t *Tab) URL(ctx context.Context) (string, error) {
	var url string
	if err := chromedp.Run(t.ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}
