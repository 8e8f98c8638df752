package hints

import (
	"time"

	"github.com/domlens/domlens/internal/config"
)

// Event is a page change notification from the host bridge.
type Event struct {
	// Kind is "mutation", "scroll" or "resize".
	Kind string `json:"kind"`
}

// Watcher turns raw page events into refresh callbacks. Every event
// replaces the pending debounce timer, so a mutation storm produces one
// refresh after the page goes quiet. Two safety nets cover hosts with
// unreliable event delivery: a one-shot settle timer fires once shortly
// after attach, and a periodic tick refreshes regardless.
type Watcher struct {
	cfg    config.WatcherConfig
	events <-chan Event
	fire   func()
	stop   chan struct{}
}

func NewWatcher(cfg config.WatcherConfig, events <-chan Event, fire func()) *Watcher {
	return &Watcher{cfg: cfg, events: events, fire: fire, stop: make(chan struct{})}
}

// Start launches the watcher goroutine. Callbacks run on that goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Stop halts the watcher. Safe to call once.
func (w *Watcher) Stop() {
	close(w.stop)
}

func (w *Watcher) run() {
	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}
	settle := time.NewTimer(w.cfg.Settle())
	periodic := time.NewTicker(w.cfg.Periodic())
	defer debounce.Stop()
	defer settle.Stop()
	defer periodic.Stop()

	events := w.events
	for {
		select {
		case <-w.stop:
			return
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// last writer wins: restart the debounce window
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(w.cfg.Debounce())
		case <-debounce.C:
			w.fire()
		case <-settle.C:
			w.fire()
		case <-periodic.C:
			w.fire()
		}
	}
}
