// Package lanes serializes per-tab work. Every tab gets one lane that
// runs a single task at a time, so DOM builds and hint passes for the
// same page never interleave, while different tabs proceed in parallel
// up to a global cap.
package lanes

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/domlens/domlens/internal/logging"
)

// Task is one unit of lane work.
type Task func(ctx context.Context) error

// Event is a lane lifecycle notification.
type Event struct {
	Type       string `json:"type"` // task_enqueued, task_started, task_completed
	Lane       string `json:"lane"`
	Op         string `json:"op"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Stats summarizes one lane.
type Stats struct {
	Lane   string `json:"lane"`
	Queued int    `json:"queued"`
	Active int    `json:"active"`
}

// Manager owns all lanes. The zero value is not usable, call NewManager.
type Manager struct {
	mu      sync.RWMutex
	lanes   map[string]*laneState
	global  chan struct{} // global slot semaphore, nil = unlimited
	timeout time.Duration
	onEvent func(Event)
}

type laneState struct {
	name   string
	mu     sync.Mutex
	queue  []*laneEntry
	active bool
	notify chan struct{} // buffered(1) wakeup for the pump goroutine
	stopCh chan struct{}
}

type laneEntry struct {
	op       string
	task     Task
	resolve  chan error
	ctx      context.Context
	cancel   context.CancelFunc
	enqueued time.Time
}

// NewManager creates a lane manager. maxConcurrent caps in-flight tasks
// across all lanes (0 = unlimited); callTimeout bounds each Enqueue,
// queue wait included (0 = no timeout).
func NewManager(maxConcurrent int, callTimeout time.Duration) *Manager {
	m := &Manager{
		lanes:   make(map[string]*laneState),
		timeout: callTimeout,
	}
	if maxConcurrent > 0 {
		m.global = make(chan struct{}, maxConcurrent)
	}
	return m
}

// OnEvent registers a lifecycle callback. Callbacks run on their own
// goroutine and must not block forever.
func (m *Manager) OnEvent(fn func(Event)) {
	m.onEvent = fn
}

func (m *Manager) emit(ev Event) {
	if fn := m.onEvent; fn != nil {
		go fn(ev)
	}
}

func (m *Manager) getLane(lane string) *laneState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.lanes[lane]; ok {
		return s
	}
	s := &laneState{
		name:   lane,
		notify: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	m.lanes[lane] = s
	go s.run(m)
	return s
}

// Enqueue queues task on the tab's lane and waits for it to finish.
// Exceeding the call timeout fails this call with an error naming op;
// the task's context is cancelled but nothing is retried.
func (m *Manager) Enqueue(ctx context.Context, lane, op string, task Task) error {
	if lane == "" {
		return errors.New("lane name required")
	}
	state := m.getLane(lane)

	callCtx := ctx
	var cancelTimeout context.CancelFunc
	if m.timeout > 0 {
		callCtx, cancelTimeout = context.WithTimeout(ctx, m.timeout)
		defer cancelTimeout()
	}
	taskCtx, cancel := context.WithCancel(callCtx)
	entry := &laneEntry{
		op:       op,
		task:     task,
		resolve:  make(chan error, 1),
		ctx:      taskCtx,
		cancel:   cancel,
		enqueued: time.Now(),
	}

	state.mu.Lock()
	state.queue = append(state.queue, entry)
	queued := len(state.queue)
	state.mu.Unlock()

	logging.Infof("Lanes", "enqueued op=%s lane=%s queued=%d", op, lane, queued)
	m.emit(Event{Type: "task_enqueued", Lane: lane, Op: op})
	state.wake()

	select {
	case err := <-entry.resolve:
		return err
	case <-callCtx.Done():
		cancel()
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s timed out after %s on lane %s", op, m.timeout, lane)
		}
		return callCtx.Err()
	}
}

func (s *laneState) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// run is the lane's pump goroutine.
func (s *laneState) run(m *Manager) {
	for {
		select {
		case <-s.notify:
			s.processNext(m)
		case <-s.stopCh:
			return
		}
	}
}

// processNext starts the next queued task if the lane is idle. Lanes are
// strictly serial: one tab, one in-flight task.
func (s *laneState) processNext(m *Manager) {
	s.mu.Lock()
	if s.active || len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	entry := s.queue[0]
	s.queue = s.queue[1:]
	s.active = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.active = false
			s.mu.Unlock()
			s.wake()
		}()

		// a global slot still counts against the call timeout
		if m.global != nil {
			select {
			case m.global <- struct{}{}:
				defer func() { <-m.global }()
			case <-entry.ctx.Done():
				entry.resolve <- entry.ctx.Err()
				return
			}
		}
		if err := entry.ctx.Err(); err != nil {
			entry.resolve <- err
			return
		}

		start := time.Now()
		m.emit(Event{Type: "task_started", Lane: s.name, Op: entry.op})

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Errorf("Lanes", "panic in lane task lane=%s op=%s: %v\n%s",
						s.name, entry.op, r, debug.Stack())
					err = fmt.Errorf("panic in %s: %v", entry.op, r)
				}
			}()
			err = entry.task(entry.ctx)
		}()

		durationMs := time.Since(start).Milliseconds()
		ev := Event{Type: "task_completed", Lane: s.name, Op: entry.op, DurationMs: durationMs}
		if err != nil {
			ev.Error = err.Error()
			logging.Warnf("Lanes", "task error lane=%s op=%s durationMs=%d: %v", s.name, entry.op, durationMs, err)
		} else {
			logging.Infof("Lanes", "task done lane=%s op=%s durationMs=%d", s.name, entry.op, durationMs)
		}
		m.emit(ev)

		entry.resolve <- err
	}()
}

// QueueSize returns queued plus active task count for a lane.
func (m *Manager) QueueSize(lane string) int {
	m.mu.RLock()
	s, ok := m.lanes[lane]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.queue)
	if s.active {
		n++
	}
	return n
}

// LaneStats snapshots every lane.
func (m *Manager) LaneStats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Stats, len(m.lanes))
	for name, s := range m.lanes {
		s.mu.Lock()
		st := Stats{Lane: name, Queued: len(s.queue)}
		if s.active {
			st.Active = 1
		}
		s.mu.Unlock()
		out[name] = st
	}
	return out
}

// DropLane cancels queued (not running) tasks for a closed tab and
// returns how many were dropped.
func (m *Manager) DropLane(lane string) int {
	m.mu.RLock()
	s, ok := m.lanes[lane]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := len(s.queue)
	for _, e := range s.queue {
		e.cancel()
		e.resolve <- context.Canceled
	}
	s.queue = nil
	return dropped
}

// Shutdown stops all pump goroutines.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.lanes {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
	}
}
