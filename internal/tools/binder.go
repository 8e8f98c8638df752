package tools

import (
	"context"
	"fmt"

	"github.com/domlens/domlens/internal/domtree"
	"github.com/domlens/domlens/internal/target"
)

// TabInfo describes one browser tab for tool output.
type TabInfo struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url,omitempty"`
	Attached bool   `json:"attached"`
}

// TabSource resolves tab ids to tree services. The production binding
// sits on the CDP connection; tests substitute their own.
type TabSource interface {
	Service(ctx context.Context, tabID string) (*domtree.Service, error)
	Tabs(ctx context.Context) ([]TabInfo, error)
}

// Binder joins the target manager (CDP tabs) with the tree manager
// (per-tab services), attaching lazily on first use.
type Binder struct {
	targets *target.Manager
	trees   *domtree.Manager
}

func NewBinder(targets *target.Manager, trees *domtree.Manager) *Binder {
	return &Binder{targets: targets, trees: trees}
}

// Service returns the tree service for a tab, attaching the target and
// registering the service on first use. Document updates flag the
// service stale.
func (b *Binder) Service(ctx context.Context, tabID string) (*domtree.Service, error) {
	if svc, ok := b.trees.Get(tabID); ok {
		return svc, nil
	}
	tab, ok := b.targets.Tab(tabID)
	if !ok {
		attached, err := b.targets.AttachTab(ctx, tabID)
		if err != nil {
			return nil, fmt.Errorf("tab %s: %w", tabID, err)
		}
		tab = attached
	}
	svc := b.trees.Register(tabID, tab)
	tab.OnDocumentUpdated(svc.MarkMutated)
	return svc, nil
}

// Tabs lists the browser's page targets, flagging the attached ones.
func (b *Binder) Tabs(ctx context.Context) ([]TabInfo, error) {
	infos, err := b.targets.ListTargets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TabInfo, 0, len(infos))
	for _, info := range infos {
		id := string(info.TargetID)
		_, attached := b.trees.Get(id)
		out = append(out, TabInfo{
			ID:       id,
			Title:    info.Title,
			URL:      info.URL,
			Attached: attached,
		})
	}
	return out, nil
}
