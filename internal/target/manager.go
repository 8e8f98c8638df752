// Package target owns the CDP side of the house: the browser
// connection, per-tab contexts and the raw captures the fuser consumes.
package target

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/logging"
)

// Manager holds one browser connection and the tabs attached through
// it. Remote (CDP URL) and local (spawned Chrome) modes share the same
// surface.
type Manager struct {
	cfg config.BrowserConfig

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[string]*Tab
}

func NewManager(cfg config.BrowserConfig) *Manager {
	return &Manager{cfg: cfg, tabs: make(map[string]*Tab)}
}

// Connect establishes the browser connection. With a CDP URL it
// attaches to a running Chrome; otherwise it spawns one.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.CDPURL != "" {
		logging.Infof("Target", "connecting to Chrome at %s", m.cfg.CDPURL)
		m.allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(context.Background(), m.cfg.CDPURL)
	} else {
		logging.Infof("Target", "launching Chrome (headless=%v)", m.cfg.Headless)
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", m.cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx)
	if err := chromedp.Run(m.browserCtx); err != nil {
		m.Close()
		return fmt.Errorf("start browser: %w", err)
	}
	return nil
}

// OpenTab creates a fresh tab and navigates it.
func (m *Manager) OpenTab(ctx context.Context, url string) (*Tab, error) {
	if m.browserCtx == nil {
		return nil, fmt.Errorf("browser not connected")
	}
	tabCtx, cancel := chromedp.NewContext(m.browserCtx)
	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		cancel()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}

	id := string(chromedp.FromContext(tabCtx).Target.TargetID)
	t := &Tab{ID: id, ctx: tabCtx, cancel: cancel}
	m.track(t)
	return t, nil
}

// AttachTab binds an existing page target by id.
func (m *Manager) AttachTab(ctx context.Context, targetID string) (*Tab, error) {
	if m.browserCtx == nil {
		return nil, fmt.Errorf("browser not connected")
	}
	m.mu.Lock()
	if t, ok := m.tabs[targetID]; ok {
		m.mu.Unlock()
		return t, nil
	}
	m.mu.Unlock()

	tabCtx, cancel := chromedp.NewContext(m.browserCtx,
		chromedp.WithTargetID(target.ID(targetID)))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("attach %s: %w", targetID, err)
	}

	t := &Tab{ID: targetID, ctx: tabCtx, cancel: cancel}
	m.track(t)
	return t, nil
}

// ListTargets reports the browser's open page targets, attached or not.
func (m *Manager) ListTargets(ctx context.Context) ([]*target.Info, error) {
	if m.browserCtx == nil {
		return nil, fmt.Errorf("browser not connected")
	}
	infos, err := chromedp.Targets(m.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	pages := infos[:0]
	for _, info := range infos {
		if info.Type == "page" {
			pages = append(pages, info)
		}
	}
	return pages, nil
}

// Tab returns an attached tab by id.
func (m *Manager) Tab(id string) (*Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[id]
	return t, ok
}

// Tabs lists attached tab ids, sorted.
func (m *Manager) Tabs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tabs))
	for id := range m.tabs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CloseTab detaches one tab.
func (m *Manager) CloseTab(id string) {
	m.mu.Lock()
	t, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// Close tears down every tab and the browser connection.
func (m *Manager) Close() {
	m.mu.Lock()
	tabs := m.tabs
	m.tabs = make(map[string]*Tab)
	m.mu.Unlock()
	for _, t := range tabs {
		t.cancel()
	}
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
}

func (m *Manager) track(t *Tab) {
	m.mu.Lock()
	m.tabs[t.ID] = t
	m.mu.Unlock()
}
