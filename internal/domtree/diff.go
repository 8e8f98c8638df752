package domtree

import (
	"sync"
	"time"
)

// ChangeDetector tracks one target's identity set across rebuilds. It
// stamps IsNew on freshly appeared nodes and reports displayed-node
// deltas, giving callers a cheap "what changed" signal without diffing
// whole trees.
type ChangeDetector struct {
	mu sync.Mutex

	seen          map[uint64]struct{}
	built         bool
	lastBuild     time.Time
	lastDisplayed int
	lastMutation  time.Time
	force         bool
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{seen: make(map[uint64]struct{})}
}

// MarkMutated records that the page changed. The next Stale check
// reports true until a rebuild completes.
func (d *ChangeDetector) MarkMutated() {
	d.mu.Lock()
	d.lastMutation = time.Now()
	d.mu.Unlock()
}

// ForceRebuild makes the next Stale check true regardless of mutations.
func (d *ChangeDetector) ForceRebuild() {
	d.mu.Lock()
	d.force = true
	d.mu.Unlock()
}

// Stale reports whether the cached tree no longer reflects the page:
// never built, forced, or mutated since the last build.
func (d *ChangeDetector) Stale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.built || d.force {
		return true
	}
	return d.lastMutation.After(d.lastBuild)
}

// DetectNew compares the tree against the previous identity set, stamps
// IsNew on unmatched nodes and replaces the set. Returns the new-node
// count. Must be called once per rebuild, before serialization.
func (d *ChangeDetector) DetectNew(t *Tree) int {
	fresh := make(map[uint64]struct{}, len(t.Nodes))
	newCount := 0

	d.mu.Lock()
	prev := d.seen
	firstBuild := !d.built
	d.mu.Unlock()

	for i := range t.Nodes {
		h := elementHash(t, i)
		fresh[h] = struct{}{}
		if _, ok := prev[h]; !ok {
			t.Nodes[i].IsNew = !firstBuild
			if !firstBuild {
				newCount++
			}
		}
	}

	d.mu.Lock()
	d.seen = fresh
	d.built = true
	d.force = false
	d.lastBuild = t.BuiltAt
	d.mu.Unlock()
	return newCount
}

// RecordDisplayed stores this build's displayed-node count and returns
// the delta against the previous build.
func (d *ChangeDetector) RecordDisplayed(count int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	delta := count - d.lastDisplayed
	d.lastDisplayed = count
	return delta
}
