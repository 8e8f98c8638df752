package domtree

import (
	"context"
	"fmt"
	"sync"

	"github.com/domlens/domlens/internal/lanes"
	"github.com/domlens/domlens/internal/logging"
)

// Puller captures the raw CDP state of one target. Implementations sit
// next to the browser connection; the service only sees the snapshot.
type Puller interface {
	Pull(ctx context.Context) (*PageSnapshot, error)
}

// Service owns the fused-tree lifecycle for one tab: pull, fuse, index,
// diff, serialize. All rebuilds for the tab run serialized on its lane;
// readers get the last successfully built artifacts.
type Service struct {
	tabID  string
	puller Puller
	queue  *lanes.Manager

	fuser      *Fuser
	serializer *Serializer
	detector   *ChangeDetector

	mu    sync.RWMutex
	tree  *Tree
	sel   SelectorMap
	root  *SimplifiedNode
	repr  string
	stats BuildStats
}

func NewService(tabID string, puller Puller, queue *lanes.Manager) *Service {
	return &Service{
		tabID:      tabID,
		puller:     puller,
		queue:      queue,
		fuser:      NewFuser(),
		serializer: NewSerializer(),
		detector:   NewChangeDetector(),
	}
}

// TabID returns the tab this service is bound to.
func (s *Service) TabID() string { return s.tabID }

// MarkMutated flags the cached tree stale.
func (s *Service) MarkMutated() { s.detector.MarkMutated() }

// ForceRebuild makes the next BuildDOMTree or FlattenDOM rebuild
// unconditionally.
func (s *Service) ForceRebuild() { s.detector.ForceRebuild() }

// BuildDOMTree reports what changed against the previous build. A
// fusion pass runs on the tab's lane only when the cached tree is stale
// or absent; otherwise the cached stats come back as-is.
func (s *Service) BuildDOMTree(ctx context.Context) (BuildStats, error) {
	if s.detector.Stale() {
		if err := s.queue.Enqueue(ctx, s.tabID, "dom_tree", s.rebuild); err != nil {
			return BuildStats{}, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

// FlattenDOM returns the serialized text representation, rebuilding
// first when the cached tree is stale or absent.
func (s *Service) FlattenDOM(ctx context.Context) (string, error) {
	if s.detector.Stale() {
		if err := s.queue.Enqueue(ctx, s.tabID, "flatten_dom", s.rebuild); err != nil {
			return "", err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return "", fmt.Errorf("no DOM tree built for tab %s", s.tabID)
	}
	return s.repr, nil
}

// Stats returns the last build's stats.
func (s *Service) Stats() BuildStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Selector resolves an interactive index from the last build.
func (s *Service) Selector(index int) (NodeRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.sel[index]
	return ref, ok
}

// SelectorMap returns a copy of the last build's selector map.
func (s *Service) SelectorMap() SelectorMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(SelectorMap, len(s.sel))
	for k, v := range s.sel {
		out[k] = v
	}
	return out
}

// Tree returns the last fused tree. Treat it as read-only; the next
// rebuild replaces it wholesale.
func (s *Service) Tree() *Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// rebuild runs one full pass. It only swaps in results at the end, so
// a failed pull or fuse leaves the previous artifacts intact.
func (s *Service) rebuild(ctx context.Context) error {
	snap, err := s.puller.Pull(ctx)
	if err != nil {
		return fmt.Errorf("pull page state: %w", err)
	}
	tree, err := s.fuser.Fuse(snap)
	if err != nil {
		return fmt.Errorf("fuse page state: %w", err)
	}

	sel := BuildSelectorMap(tree)
	newCount := s.detector.DetectNew(tree)
	root, repr, displayed := s.serializer.Serialize(tree)
	delta := s.detector.RecordDisplayed(displayed)

	stats := BuildStats{
		NewNodesCount:              newCount,
		SimplifiedNodesCountChange: delta,
		TotalNodes:                 len(tree.Nodes),
		InteractiveNodes:           len(sel),
		Timestamp:                  tree.BuiltAt,
	}

	s.mu.Lock()
	s.tree = tree
	s.sel = sel
	s.root = root
	s.repr = repr
	s.stats = stats
	s.mu.Unlock()

	logging.Infof("DomTree", "rebuilt tab=%s nodes=%d interactive=%d new=%d delta=%d",
		s.tabID, stats.TotalNodes, stats.InteractiveNodes, stats.NewNodesCount, stats.SimplifiedNodesCountChange)
	return nil
}
