package domtree

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domsnapshot"

	"github.com/domlens/domlens/internal/logging"
)

// ComputedStyleKeys is the style allowlist requested from the layout
// snapshot. Order matters: resolved style rows index into it.
var ComputedStyleKeys = []string{
	"display", "visibility", "opacity", "cursor", "overflow-x", "overflow-y",
}

// PageSnapshot bundles the three raw CDP captures for one target. The
// puller fills it; the fuser consumes it.
type PageSnapshot struct {
	TargetID  string
	SessionID string

	// Document is the pierced DOM tree (depth -1, shadow roots and
	// iframes included where same-process).
	Document *cdp.Node
	// AXNodes is the flattened full accessibility tree.
	AXNodes []*accessibility.Node
	// Documents and Strings come from DOMSnapshot.captureSnapshot.
	Documents []*domsnapshot.DocumentSnapshot
	Strings   []string

	DevicePixelRatio float64
}

// Fuser joins the CDP views into a Tree.
type Fuser struct{}

func NewFuser() *Fuser { return &Fuser{} }

type workItem struct {
	node      *cdp.Node
	parent    int // arena index, NoNode for root
	link      linkKind
	frameID   string
	sessionID string
}

type linkKind int

const (
	linkChild linkKind = iota
	linkShadow
	linkContentDoc
)

// Fuse builds the arena tree. The join key across all three sources is
// the backend node id. Nodes that fail to resolve in a secondary source
// just lose that source's fields; a duplicate backend id is skipped so
// each id owns exactly one arena slot.
func (f *Fuser) Fuse(snap *PageSnapshot) (*Tree, error) {
	if snap == nil || snap.Document == nil {
		return nil, fmt.Errorf("fuse: no document in snapshot")
	}
	dpr := snap.DevicePixelRatio
	if dpr <= 0 {
		dpr = 1
	}

	axByBackend := indexAXNodes(snap.AXNodes)
	snapByBackend := resolveSnapshots(snap.Documents, snap.Strings, dpr)

	t := &Tree{
		TargetID:         snap.TargetID,
		Root:             NoNode,
		DevicePixelRatio: dpr,
		BuiltAt:          time.Now(),
		byBackendID:      make(map[cdp.BackendNodeID]int),
	}

	stack := []workItem{{
		node:      snap.Document,
		parent:    NoNode,
		frameID:   string(snap.Document.FrameID),
		sessionID: snap.SessionID,
	}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx, ok := f.addNode(t, item, axByBackend, snapByBackend)
		if !ok {
			continue
		}
		frameID := item.frameID
		if fid := string(item.node.FrameID); fid != "" {
			frameID = fid
		}

		// reverse push keeps document order when popping
		children := item.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, workItem{
				node: children[i], parent: idx, link: linkChild,
				frameID: frameID, sessionID: item.sessionID,
			})
		}
		if cd := item.node.ContentDocument; cd != nil {
			stack = append(stack, workItem{
				node: cd, parent: idx, link: linkContentDoc,
				frameID: frameID, sessionID: item.sessionID,
			})
		}
		shadows := item.node.ShadowRoots
		for i := len(shadows) - 1; i >= 0; i-- {
			stack = append(stack, workItem{
				node: shadows[i], parent: idx, link: linkShadow,
				frameID: frameID, sessionID: item.sessionID,
			})
		}
	}

	if t.Root == NoNode {
		return nil, fmt.Errorf("fuse: document produced no nodes")
	}
	return t, nil
}

func (f *Fuser) addNode(t *Tree, item workItem, ax map[cdp.BackendNodeID]*accessibility.Node, snaps map[cdp.BackendNodeID]*SnapshotProps) (int, bool) {
	cn := item.node
	if _, dup := t.byBackendID[cn.BackendNodeID]; dup && cn.BackendNodeID != 0 {
		logging.Warnf("DomTree", "duplicate backend node id %d (%s), skipping", cn.BackendNodeID, cn.NodeName)
		return 0, false
	}

	n := Node{
		NodeID:          cn.NodeID,
		BackendNodeID:   cn.BackendNodeID,
		NodeType:        cn.NodeType,
		NodeName:        cn.NodeName,
		NodeValue:       cn.NodeValue,
		Attributes:      attrMap(cn.Attributes),
		FrameID:         item.frameID,
		SessionID:       item.sessionID,
		ShadowRootType:  cn.ShadowRootType.String(),
		ElementIndex:    NoNode,
		Parent:          item.parent,
		ContentDocument: NoNode,
	}
	if fid := string(cn.FrameID); fid != "" {
		n.FrameID = fid
	}
	if axn, ok := ax[cn.BackendNodeID]; ok {
		n.AX = axProps(axn)
	}
	if sp, ok := snaps[cn.BackendNodeID]; ok {
		n.Snapshot = sp
		n.AbsolutePosition = sp.Bounds
		n.IsVisible = snapshotVisible(sp)
		n.IsScrollable = snapshotScrollable(sp)
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	if cn.BackendNodeID != 0 {
		t.byBackendID[cn.BackendNodeID] = idx
	}

	switch {
	case item.parent == NoNode:
		t.Root = idx
	case item.link == linkShadow:
		t.Nodes[item.parent].ShadowRoots = append(t.Nodes[item.parent].ShadowRoots, idx)
	case item.link == linkContentDoc:
		t.Nodes[item.parent].ContentDocument = idx
	default:
		t.Nodes[item.parent].Children = append(t.Nodes[item.parent].Children, idx)
	}
	return idx, true
}

// attrMap converts CDP's flat name/value pairs.
func attrMap(flat []string) map[string]string {
	if len(flat) == 0 {
		return nil
	}
	m := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		m[strings.ToLower(flat[i])] = flat[i+1]
	}
	return m
}

func indexAXNodes(nodes []*accessibility.Node) map[cdp.BackendNodeID]*accessibility.Node {
	m := make(map[cdp.BackendNodeID]*accessibility.Node, len(nodes))
	for _, n := range nodes {
		if n == nil || n.BackendDOMNodeID == 0 {
			continue
		}
		if _, ok := m[n.BackendDOMNodeID]; !ok {
			m[n.BackendDOMNodeID] = n
		}
	}
	return m
}

func axProps(n *accessibility.Node) *AXProps {
	p := &AXProps{
		Role:        axValueString(n.Role),
		Name:        axValueString(n.Name),
		Description: axValueString(n.Description),
		Ignored:     n.Ignored,
	}
	if len(n.Properties) > 0 {
		p.Properties = make(map[string]string, len(n.Properties))
		for _, prop := range n.Properties {
			p.Properties[string(prop.Name)] = axValueString(prop.Value)
		}
	}
	return p
}

// axValueString renders an AX value as plain text. Values arrive as raw
// JSON, so string values carry quotes that need stripping.
func axValueString(v *accessibility.Value) string {
	if v == nil || v.Value == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v.Value)
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

// resolveSnapshots flattens every captured document snapshot into
// per-backend-id layout props, string table resolved and geometry
// scaled down to CSS pixels.
func resolveSnapshots(docs []*domsnapshot.DocumentSnapshot, table []string, dpr float64) map[cdp.BackendNodeID]*SnapshotProps {
	out := make(map[cdp.BackendNodeID]*SnapshotProps)
	for _, d := range docs {
		if d == nil || d.Nodes == nil {
			continue
		}
		layoutRow := make(map[int64]int)
		var stacking map[int64]bool
		if d.Layout != nil {
			for row, nodeIdx := range d.Layout.NodeIndex {
				layoutRow[nodeIdx] = row
			}
			stacking = rareBoolSet(d.Layout.StackingContexts)
		}
		clickable := rareBoolSet(d.Nodes.IsClickable)

		for i, backendID := range d.Nodes.BackendNodeID {
			if backendID == 0 {
				continue
			}
			if _, seen := out[backendID]; seen {
				continue
			}
			p := &SnapshotProps{Clickable: clickable[int64(i)], Opacity: 1}
			if row, ok := layoutRow[int64(i)]; ok && d.Layout != nil {
				p.Bounds = snapshotRect(d.Layout.Bounds, row, dpr)
				p.ClientRect = snapshotRect(d.Layout.ClientRects, row, dpr)
				p.ScrollRect = snapshotRect(d.Layout.ScrollRects, row, dpr)
				if row < len(d.Layout.PaintOrders) {
					p.PaintOrder = d.Layout.PaintOrders[row]
				}
				p.StackingContext = stacking[int64(row)]
				applySnapshotStyles(p, d.Layout.Styles, row, table)
			}
			out[backendID] = p
		}
	}
	return out
}

func applySnapshotStyles(p *SnapshotProps, styles []domsnapshot.ArrayOfStrings, row int, table []string) {
	if row >= len(styles) {
		return
	}
	vals := styles[row]
	get := func(i int) string {
		if i >= len(vals) {
			return ""
		}
		return tableString(table, domsnapshot.StringIndex(vals[i]))
	}
	p.Display = get(0)
	p.Visibility = get(1)
	if op := get(2); op != "" {
		if f, err := strconv.ParseFloat(op, 64); err == nil {
			p.Opacity = f
		}
	}
	p.Cursor = get(3)
	p.OverflowX = get(4)
	p.OverflowY = get(5)
}

func tableString(table []string, idx domsnapshot.StringIndex) string {
	i := int(idx)
	if i < 0 || i >= len(table) {
		return ""
	}
	return table[i]
}

func rareBoolSet(d *domsnapshot.RareBooleanData) map[int64]bool {
	m := make(map[int64]bool)
	if d == nil {
		return m
	}
	for _, i := range d.Index {
		m[i] = true
	}
	return m
}

func snapshotRect(rects []domsnapshot.Rectangle, row int, dpr float64) *Rect {
	if row >= len(rects) || len(rects[row]) < 4 {
		return nil
	}
	r := rects[row]
	return &Rect{X: r[0] / dpr, Y: r[1] / dpr, Width: r[2] / dpr, Height: r[3] / dpr}
}

// snapshotVisible mirrors the content-side occupancy rule on snapshot
// data: non-empty bounds, not display:none or visibility:hidden, and
// opacity above zero.
func snapshotVisible(p *SnapshotProps) bool {
	if p.Bounds == nil || p.Bounds.Empty() {
		return false
	}
	if p.Display == "none" || p.Visibility == "hidden" {
		return false
	}
	if p.Opacity <= 0 {
		return false
	}
	return true
}

func snapshotScrollable(p *SnapshotProps) bool {
	if p.ScrollRect == nil || p.ClientRect == nil {
		return false
	}
	overflowing := p.ScrollRect.Height > p.ClientRect.Height || p.ScrollRect.Width > p.ClientRect.Width
	if !overflowing {
		return false
	}
	scrollStyle := func(v string) bool { return v == "auto" || v == "scroll" }
	return scrollStyle(p.OverflowY) || scrollStyle(p.OverflowX)
}
