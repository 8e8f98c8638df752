package hints

import (
	"context"
	"errors"
	"fmt"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/logging"
	"github.com/domlens/domlens/internal/page"
)

// Host is the bridge to a live page or frame. Implementations execute
// generated JS and surface page change events; everything else stays on
// the Go side.
type Host interface {
	// DumpDocument captures the current page as a content DOM document.
	DumpDocument(ctx context.Context) (*page.Document, error)
	// Exec runs a script in the page for its side effects.
	Exec(ctx context.Context, js string) error
	// Events delivers mutation/scroll/resize notifications. The channel
	// closes when the host goes away.
	Events() <-chan Event
	// Close releases the host.
	Close() error
}

// ErrDetached is returned by session calls after Detach.
var ErrDetached = errors.New("hint session detached")

// Session runs hint detection against one page. All state is confined to
// the session loop goroutine; public methods marshal onto it and block
// for the result, so callers never race each other.
type Session struct {
	host Host
	det  *Detector
	wcfg config.WatcherConfig

	cmds    chan func()
	done    chan struct{}
	watcher *Watcher

	// loop-confined state
	last      []Hint
	doc       *page.Document
	shown     bool
	autoShown bool
}

func NewSession(host Host, cfg config.Config) *Session {
	return &Session{
		host: host,
		det:  NewDetector(cfg.Detection),
		wcfg: cfg.Watcher,
		cmds: make(chan func(), 16),
		done: make(chan struct{}),
	}
}

// Attach starts the session loop and the mutation watcher. The watcher
// auto-shows hints once the page settles and keeps them fresh afterward.
func (s *Session) Attach(ctx context.Context) {
	go s.loop(ctx)
	s.watcher = NewWatcher(s.wcfg, s.host.Events(), func() {
		// watcher goroutine: hand off to the loop, drop when busy
		select {
		case s.cmds <- func() { s.refresh(ctx) }:
		case <-s.done:
		default:
		}
	})
	s.watcher.Start()
}

// Detach stops the watcher and loop and closes the host.
func (s *Session) Detach() {
	select {
	case <-s.done:
		return
	default:
	}
	s.watcher.Stop()
	close(s.done)
	if err := s.host.Close(); err != nil {
		logging.Warnf("Hints", "host close: %v", err)
	}
}

func (s *Session) loop(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case fn := <-s.cmds:
			fn()
		}
	}
}

// call runs fn on the session loop and waits for it.
func (s *Session) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}
	select {
	case s.cmds <- wrapped:
	case <-s.done:
		return ErrDetached
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-s.done:
		return ErrDetached
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DetectHints classifies the current page and returns the hint list.
// The hints stay valid until the next detection pass or page mutation.
func (s *Session) DetectHints(ctx context.Context) ([]Hint, error) {
	var out []Hint
	var err error
	if cerr := s.call(ctx, func() { out, err = s.detect(ctx) }); cerr != nil {
		return nil, cerr
	}
	return out, err
}

// ShowHints detects and renders labeled markers for every hint.
func (s *Session) ShowHints(ctx context.Context) ([]Hint, error) {
	var out []Hint
	var err error
	if cerr := s.call(ctx, func() { out, err = s.show(ctx) }); cerr != nil {
		return nil, cerr
	}
	return out, err
}

// HideHints removes all markers. Hiding also stops auto-refresh renders
// until the next ShowHints.
func (s *Session) HideHints(ctx context.Context) error {
	var err error
	if cerr := s.call(ctx, func() { err = s.hide(ctx) }); cerr != nil {
		return cerr
	}
	return err
}

// ClickHint activates the hint at index from the last detection pass.
// The page is re-detected first and the stored hint re-matched by
// geometry; a hint whose element moved or vanished is an error, not a
// click on whatever took its place.
func (s *Session) ClickHint(ctx context.Context, index int) error {
	var err error
	if cerr := s.call(ctx, func() { err = s.click(ctx, index) }); cerr != nil {
		return cerr
	}
	return err
}

func (s *Session) detect(ctx context.Context) ([]Hint, error) {
	doc, err := s.host.DumpDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("dump document: %w", err)
	}
	s.doc = doc
	s.last = s.det.Detect(doc)
	out := make([]Hint, len(s.last))
	copy(out, s.last)
	return out, nil
}

func (s *Session) show(ctx context.Context) ([]Hint, error) {
	hs, err := s.detect(ctx)
	if err != nil {
		return nil, err
	}
	for i := range s.last {
		s.last[i].Label = Label(i + 1)
	}
	copy(hs, s.last)
	if err := s.host.Exec(ctx, ShowJS(s.last, s.doc.ScrollWidth, s.doc.ScrollHeight)); err != nil {
		return nil, fmt.Errorf("render hints: %w", err)
	}
	s.shown = true
	return hs, nil
}

func (s *Session) hide(ctx context.Context) error {
	if err := s.host.Exec(ctx, HideJS()); err != nil {
		return fmt.Errorf("hide hints: %w", err)
	}
	s.shown = false
	return nil
}

func (s *Session) click(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.last) {
		return fmt.Errorf("hint index %d out of range (have %d hints)", index, len(s.last))
	}
	want := s.last[index]
	fresh, err := s.detect(ctx)
	if err != nil {
		return err
	}
	for _, h := range fresh {
		if h.elem.ID == want.elem.ID && sameRect(h.Rect, want.Rect, rectTolerance) {
			if err := s.host.Exec(ctx, DispatchJS(h.elem.ID, h.TagName)); err != nil {
				return fmt.Errorf("dispatch hint %d: %w", index, err)
			}
			return nil
		}
	}
	return fmt.Errorf("hint %d no longer matches the page", index)
}

// refresh is the watcher's entry point. The first call after attach
// auto-shows; afterwards it only re-renders markers that are already up,
// so an explicit HideHints stays hidden.
func (s *Session) refresh(ctx context.Context) {
	if !s.shown && s.autoShown {
		return
	}
	s.autoShown = true
	if _, err := s.show(ctx); err != nil {
		logging.Warnf("Hints", "refresh: %v", err)
	}
}
