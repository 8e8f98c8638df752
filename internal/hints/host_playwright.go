package hints

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/domlens/domlens/internal/logging"
	"github.com/domlens/domlens/internal/page"
)

var (
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		if err := playwright.Install(); err != nil {
			pwErr = fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})
	return pwInstance, pwErr
}

// sentinelJS installs the in-page change sentinel: a MutationObserver
// plus scroll/resize listeners that bump per-kind counters the host
// polls. Safe to run repeatedly, navigation wipes it and the next poll
// reinstalls.
const sentinelJS = `(() => {
  if (window.__domlensSentinel) return true;
  window.__domlensSentinel = { mutation: 0, scroll: 0, resize: 0 };
  const s = window.__domlensSentinel;
  const mo = new MutationObserver((records) => {
    for (const r of records) {
      const t = r.target;
      if (t && t.hasAttribute && t.hasAttribute('data-domlens-overlay')) continue;
      s.mutation++;
      return;
    }
  });
  mo.observe(document.documentElement, {
    childList: true, subtree: true,
    attributes: true, attributeFilter: ['style', 'class', 'hidden']
  });
  window.addEventListener('scroll', () => { s.scroll++; }, { passive: true });
  window.addEventListener('resize', () => { s.resize++; });
  return true;
})()`

const drainJS = `(() => {
  const s = window.__domlensSentinel || { mutation: 0, scroll: 0, resize: 0 };
  const out = { mutation: s.mutation, scroll: s.scroll, resize: s.resize };
  s.mutation = 0; s.scroll = 0; s.resize = 0;
  return JSON.stringify(out);
})()`

// PlaywrightHost drives hint detection against a real page over a
// playwright connection.
type PlaywrightHost struct {
	page   playwright.Page
	events chan Event
	stop   chan struct{}
	once   sync.Once

	// ownsBrowser closes the browser on Close; false when attached to a
	// user's browser over CDP.
	ownsBrowser bool
	browser     playwright.Browser
}

// ConnectPage attaches to an already-running browser over CDP and wraps
// its first page. The browser is left open on Close.
func ConnectPage(cdpURL string) (*PlaywrightHost, error) {
	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}
	browser, err := pw.Chromium.ConnectOverCDP(cdpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CDP at %s: %w", cdpURL, err)
	}
	for _, bctx := range browser.Contexts() {
		for _, p := range bctx.Pages() {
			return newPlaywrightHost(p, browser, false), nil
		}
	}
	return nil, fmt.Errorf("no pages open at %s", cdpURL)
}

// LaunchPage starts a managed browser, opens a page at url and wraps it.
// Close shuts the browser down again.
func LaunchPage(url string, headless bool) (*PlaywrightHost, error) {
	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	p, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if _, err := p.Goto(url); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	return newPlaywrightHost(p, browser, true), nil
}

// NewPlaywrightHost wraps an existing page the caller manages.
func NewPlaywrightHost(p playwright.Page) *PlaywrightHost {
	return newPlaywrightHost(p, nil, false)
}

func newPlaywrightHost(p playwright.Page, browser playwright.Browser, owns bool) *PlaywrightHost {
	h := &PlaywrightHost{
		page:        p,
		events:      make(chan Event, 32),
		stop:        make(chan struct{}),
		browser:     browser,
		ownsBrowser: owns,
	}
	p.OnClose(func(playwright.Page) { h.shutdown() })
	go h.poll()
	return h
}

// DumpDocument captures the live page through the collector script.
func (h *PlaywrightHost) DumpDocument(_ context.Context) (*page.Document, error) {
	res, err := h.page.Evaluate(page.CollectorJS())
	if err != nil {
		return nil, fmt.Errorf("collect page: %w", err)
	}
	s, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("collect page: unexpected result type %T", res)
	}
	return page.FromDumpJSON([]byte(s))
}

// Exec runs a script for its side effects.
func (h *PlaywrightHost) Exec(_ context.Context, js string) error {
	_, err := h.page.Evaluate(js)
	return err
}

// Events delivers change notifications. Playwright's Evaluate is the
// only page channel in use here, so the host polls the in-page sentinel
// rather than registering binding callbacks.
func (h *PlaywrightHost) Events() <-chan Event {
	return h.events
}

// Close stops polling and, for managed browsers, closes the browser.
func (h *PlaywrightHost) Close() error {
	h.shutdown()
	if h.ownsBrowser && h.browser != nil {
		return h.browser.Close()
	}
	return nil
}

func (h *PlaywrightHost) shutdown() {
	h.once.Do(func() {
		close(h.stop)
	})
}

const pollInterval = 50 * time.Millisecond

func (h *PlaywrightHost) poll() {
	for {
		select {
		case <-h.stop:
			close(h.events)
			return
		case <-time.After(pollInterval):
		}
		if _, err := h.page.Evaluate(sentinelJS); err != nil {
			logging.Warnf("Hints", "sentinel install: %v", err)
			continue
		}
		res, err := h.page.Evaluate(drainJS)
		if err != nil {
			continue
		}
		s, ok := res.(string)
		if !ok {
			continue
		}
		h.emit(s)
	}
}


func (h *PlaywrightHost) emit(drained string) {
	var counts struct {
		Mutation int `json:"mutation"`
		Scroll   int `json:"scroll"`
		Resize   int `json:"resize"`
	}
	if err := json.Unmarshal([]byte(drained), &counts); err != nil {
		return
	}
	for kind, n := range map[string]int{
		"mutation": counts.Mutation,
		"scroll":   counts.Scroll,
		"resize":   counts.Resize,
	} {
		if n == 0 {
			continue
		}
		select {
		case h.events <- Event{Kind: kind}:
		default:
			// receiver is behind, one pending event is enough
		}
	}
}
