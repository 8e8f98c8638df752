package domtree

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domlens/domlens/internal/lanes"
)

type fakePuller struct {
	mu    sync.Mutex
	snap  *PageSnapshot
	err   error
	pulls int
}

func (p *fakePuller) Pull(ctx context.Context) (*PageSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulls++
	if p.err != nil {
		return nil, p.err
	}
	return p.snap, nil
}

func (p *fakePuller) set(snap *PageSnapshot, err error) {
	p.mu.Lock()
	p.snap, p.err = snap, err
	p.mu.Unlock()
}

func (p *fakePuller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulls
}

func newTestService(t *testing.T, puller Puller) *Service {
	t.Helper()
	queue := lanes.NewManager(2, 5*time.Second)
	t.Cleanup(queue.Shutdown)
	return NewService("tab-1", puller, queue)
}

func TestServiceBuildDOMTree(t *testing.T) {
	puller := &fakePuller{snap: fixtureSnapshot()}
	svc := newTestService(t, puller)

	stats, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 19, stats.TotalNodes)
	assert.Equal(t, 5, stats.InteractiveNodes)
	assert.Zero(t, stats.NewNodesCount)
	assert.Equal(t, 5, stats.SimplifiedNodesCountChange)
	assert.False(t, stats.Timestamp.IsZero())

	ref, ok := svc.Selector(0)
	require.True(t, ok)
	assert.Equal(t, "BUTTON", ref.NodeName)
	_, ok = svc.Selector(5)
	assert.False(t, ok)
}

func TestServiceFlattenCachesUntilStale(t *testing.T) {
	puller := &fakePuller{snap: fixtureSnapshot()}
	svc := newTestService(t, puller)

	repr, err := svc.FlattenDOM(context.Background())
	require.NoError(t, err)
	assert.Contains(t, repr, `[0]<button id="send">Send</button>`)
	assert.Equal(t, 1, puller.count())

	// cached while nothing changed
	_, err = svc.FlattenDOM(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, puller.count())

	svc.MarkMutated()
	puller.set(fixtureSnapshotGrown(), nil)
	repr, err = svc.FlattenDOM(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, puller.count())
	assert.Contains(t, repr, `*[NEW]*[5]<button id="extra"></button>`)
	assert.Equal(t, 1, svc.Stats().NewNodesCount)
}

func TestServiceBuildCachesStatsUntilStale(t *testing.T) {
	puller := &fakePuller{snap: fixtureSnapshot()}
	svc := newTestService(t, puller)

	first, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, puller.count())

	// nothing mutated: no fusion pass, cached stats come back
	second, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, puller.count())
	assert.Equal(t, first, second)

	svc.MarkMutated()
	puller.set(fixtureSnapshotGrown(), nil)
	third, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, puller.count())
	assert.Equal(t, 1, third.NewNodesCount)
}

func TestServicePullFailureKeepsPreviousBuild(t *testing.T) {
	puller := &fakePuller{snap: fixtureSnapshot()}
	svc := newTestService(t, puller)

	_, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)
	before := svc.Stats()

	puller.set(nil, errors.New("target detached"))
	svc.ForceRebuild()
	_, err = svc.BuildDOMTree(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull page state")

	assert.NotNil(t, svc.Tree(), "previous tree survives a failed rebuild")
	assert.Equal(t, before, svc.Stats())
}

func TestServiceFlattenWithoutTree(t *testing.T) {
	puller := &fakePuller{err: errors.New("target detached")}
	svc := newTestService(t, puller)

	_, err := svc.FlattenDOM(context.Background())
	require.Error(t, err)
}

func TestServiceSelectorMapIsACopy(t *testing.T) {
	puller := &fakePuller{snap: fixtureSnapshot()}
	svc := newTestService(t, puller)
	_, err := svc.BuildDOMTree(context.Background())
	require.NoError(t, err)

	m := svc.SelectorMap()
	require.Len(t, m, 5)
	delete(m, 0)
	_, ok := svc.Selector(0)
	assert.True(t, ok)
}

func TestManagerRegistry(t *testing.T) {
	queue := lanes.NewManager(2, 5*time.Second)
	defer queue.Shutdown()
	mgr := NewManager(queue)

	a := mgr.Register("tab-a", &fakePuller{snap: fixtureSnapshot()})
	again := mgr.Register("tab-a", &fakePuller{})
	assert.Same(t, a, again, "register is get-or-create")

	mgr.Register("tab-b", &fakePuller{snap: fixtureSnapshot()})
	assert.Equal(t, []string{"tab-a", "tab-b"}, mgr.Tabs())

	got, ok := mgr.Get("tab-a")
	require.True(t, ok)
	assert.Same(t, a, got)

	mgr.Remove("tab-a")
	_, ok = mgr.Get("tab-a")
	assert.False(t, ok)
	assert.Equal(t, []string{"tab-b"}, mgr.Tabs())
}
