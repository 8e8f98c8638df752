package lanes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaneSerializesTasks(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Enqueue(context.Background(), "tab-1", "build_dom", func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxInFlight)
					if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight), "one tab's tasks must never overlap")
}

func TestGlobalConcurrencyCap(t *testing.T) {
	m := NewManager(2, 0)
	defer m.Shutdown()

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		lane := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Enqueue(context.Background(), lane, "build_dom", func(context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxInFlight)
					if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestTimeoutNamesOperation(t *testing.T) {
	m := NewManager(0, 30*time.Millisecond)
	defer m.Shutdown()

	err := m.Enqueue(context.Background(), "tab-1", "flatten_dom", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flatten_dom")
	assert.Contains(t, err.Error(), "timed out")
}

func TestQueuedTaskTimesOutBehindSlowOne(t *testing.T) {
	m := NewManager(0, 50*time.Millisecond)
	defer m.Shutdown()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Enqueue(context.Background(), "tab-1", "slow_op", func(ctx context.Context) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	err := m.Enqueue(context.Background(), "tab-1", "build_dom", func(context.Context) error {
		return nil
	})
	close(release)
	wg.Wait()

	require.Error(t, err, "a task stuck behind a slow one must fail, not wait forever")
	assert.Contains(t, err.Error(), "build_dom")
}

func TestTaskErrorPropagates(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	boom := errors.New("boom")
	err := m.Enqueue(context.Background(), "tab-1", "build_dom", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPanicBecomesError(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	err := m.Enqueue(context.Background(), "tab-1", "build_dom", func(context.Context) error {
		panic("bad fuse")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in build_dom")

	// the lane keeps working after a panic
	assert.NoError(t, m.Enqueue(context.Background(), "tab-1", "build_dom", func(context.Context) error {
		return nil
	}))
}

func TestCallerCancellation(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Enqueue(ctx, "tab-1", "build_dom", func(c context.Context) error {
			<-c.Done()
			return c.Err()
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled enqueue did not return")
	}
}

func TestDropLane(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Enqueue(context.Background(), "tab-1", "slow_op", func(context.Context) error {
			<-release
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Enqueue(context.Background(), "tab-1", "queued_op", func(context.Context) error {
				return nil
			})
		}()
	}
	time.Sleep(10 * time.Millisecond)

	dropped := m.DropLane("tab-1")
	assert.Equal(t, 2, dropped)
	close(release)
	wg.Wait()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, context.Canceled)
	}
}

func TestLaneStatsAndEvents(t *testing.T) {
	m := NewManager(0, 0)
	defer m.Shutdown()

	var mu sync.Mutex
	var types []string
	m.OnEvent(func(ev Event) {
		mu.Lock()
		types = append(types, ev.Type)
		mu.Unlock()
	})

	require.NoError(t, m.Enqueue(context.Background(), "tab-9", "build_dom", func(context.Context) error {
		return nil
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.ElementsMatch(t, []string{"task_enqueued", "task_started", "task_completed"}, types)
	mu.Unlock()

	assert.Equal(t, 0, m.QueueSize("tab-9"))
	assert.Contains(t, m.LaneStats(), "tab-9")
}
