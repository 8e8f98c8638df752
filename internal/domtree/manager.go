package domtree

import (
	"sort"
	"sync"

	"github.com/domlens/domlens/internal/lanes"
)

// Manager is the per-tab service registry. Tools resolve tab ids
// through it; a missing tab is a lookup miss, not an error, so callers
// can shape their own error payloads.
type Manager struct {
	mu       sync.RWMutex
	services map[string]*Service
	queue    *lanes.Manager
}

func NewManager(queue *lanes.Manager) *Manager {
	return &Manager{
		services: make(map[string]*Service),
		queue:    queue,
	}
}

// Register creates (or returns) the service for a tab.
func (m *Manager) Register(tabID string, puller Puller) *Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	if svc, ok := m.services[tabID]; ok {
		return svc
	}
	svc := NewService(tabID, puller, m.queue)
	m.services[tabID] = svc
	return svc
}

// Get returns the service for a tab.
func (m *Manager) Get(tabID string) (*Service, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	svc, ok := m.services[tabID]
	return svc, ok
}

// Remove drops a closed tab's service and cancels its queued work.
func (m *Manager) Remove(tabID string) {
	m.mu.Lock()
	delete(m.services, tabID)
	m.mu.Unlock()
	m.queue.DropLane(tabID)
}

// Tabs lists registered tab ids, sorted for stable output.
func (m *Manager) Tabs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.services))
	for id := range m.services {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
