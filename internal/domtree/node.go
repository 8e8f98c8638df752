// Package domtree fuses the three CDP views of a page (DOM tree,
// accessibility tree, layout snapshot) into one indexed tree, assigns
// stable interactive indices, tracks changes across rebuilds and
// serializes the result into a compact text form for model consumption.
package domtree

import (
	"time"

	"github.com/chromedp/cdproto/cdp"
)

// sentinel arena index for "no node".
const NoNode = -1

// Rect is a box in CSS pixels, already divided by device pixel ratio.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// AXProps is the accessibility view of a node.
type AXProps struct {
	Role        string            `json:"role,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Ignored     bool              `json:"ignored,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// SnapshotProps is the layout snapshot view of a node.
type SnapshotProps struct {
	Bounds          *Rect  `json:"bounds,omitempty"`
	ClientRect      *Rect  `json:"client_rect,omitempty"`
	ScrollRect      *Rect  `json:"scroll_rect,omitempty"`
	PaintOrder      int64  `json:"paint_order,omitempty"`
	StackingContext bool   `json:"stacking_context,omitempty"`
	Clickable       bool   `json:"clickable,omitempty"`
	Display         string `json:"display,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	Opacity         float64
	Cursor          string `json:"cursor,omitempty"`
	OverflowX       string `json:"overflow_x,omitempty"`
	OverflowY       string `json:"overflow_y,omitempty"`
}

// Node is one fused tree node. Nodes live in the owning Tree's arena:
// Children, ShadowRoots and ContentDocument are owned index slices into
// it, Parent is a plain non-owning index. That keeps the tree a value
// type with no pointer cycles to chase or leak.
type Node struct {
	NodeID        cdp.NodeID        `json:"node_id"`
	BackendNodeID cdp.BackendNodeID `json:"backend_node_id"`
	NodeType      cdp.NodeType      `json:"node_type"`
	NodeName      string            `json:"node_name"`
	NodeValue     string            `json:"node_value,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`

	FrameID   string `json:"frame_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	IsVisible    bool `json:"is_visible"`
	IsScrollable bool `json:"is_scrollable"`
	// IsNew is stamped by the change detector on each rebuild.
	IsNew bool `json:"is_new,omitempty"`
	// AbsolutePosition is in CSS pixels; nil when the node has no layout.
	AbsolutePosition *Rect `json:"absolute_position,omitempty"`

	AX       *AXProps       `json:"ax,omitempty"`
	Snapshot *SnapshotProps `json:"snapshot,omitempty"`

	// ElementIndex is the dense interactive index, NoNode when the node
	// is not in the selector map.
	ElementIndex int `json:"element_index"`

	Parent          int    `json:"-"`
	Children        []int  `json:"children,omitempty"`
	ShadowRoots     []int  `json:"shadow_roots,omitempty"`
	ShadowRootType  string `json:"shadow_root_type,omitempty"`
	ContentDocument int    `json:"content_document,omitempty"`
}

// Tag returns the lowercase element name.
func (n *Node) Tag() string {
	return lowerASCII(n.NodeName)
}

// Attr returns an attribute value or "".
func (n *Node) Attr(name string) string {
	return n.Attributes[name]
}

// Tree is the arena of fused nodes for one target.
type Tree struct {
	TargetID         string
	Root             int
	Nodes            []Node
	DevicePixelRatio float64
	BuiltAt          time.Time

	byBackendID map[cdp.BackendNodeID]int
}

// Node returns the node at arena index i, nil when out of range.
func (t *Tree) Node(i int) *Node {
	if i < 0 || i >= len(t.Nodes) {
		return nil
	}
	return &t.Nodes[i]
}

// ByBackendID resolves a backend node id to its arena index.
func (t *Tree) ByBackendID(id cdp.BackendNodeID) (int, bool) {
	i, ok := t.byBackendID[id]
	return i, ok
}

// Walk visits the tree depth-first: node, shadow roots, content
// document, then children. fn returning false prunes the subtree.
func (t *Tree) Walk(fn func(idx int, n *Node) bool) {
	t.walkFrom(t.Root, fn)
}

func (t *Tree) walkFrom(idx int, fn func(idx int, n *Node) bool) {
	n := t.Node(idx)
	if n == nil || !fn(idx, n) {
		return
	}
	for _, s := range n.ShadowRoots {
		t.walkFrom(s, fn)
	}
	if n.ContentDocument != NoNode {
		t.walkFrom(n.ContentDocument, fn)
	}
	for _, c := range n.Children {
		t.walkFrom(c, fn)
	}
}

// NodeRef is the selector-map entry pointing back into the tree.
type NodeRef struct {
	ArenaIndex    int               `json:"arena_index"`
	BackendNodeID cdp.BackendNodeID `json:"backend_node_id"`
	NodeName      string            `json:"node_name"`
	FrameID       string            `json:"frame_id,omitempty"`
}

// SelectorMap maps dense interactive indices to node refs. It is rebuilt
// from scratch on every fusion pass; indices are not stable across
// rebuilds.
type SelectorMap map[int]NodeRef

// BuildStats describes what changed in one rebuild.
type BuildStats struct {
	NewNodesCount              int       `json:"new_nodes_count"`
	SimplifiedNodesCountChange int       `json:"total_nodes_count_change"`
	TotalNodes                 int       `json:"total_nodes"`
	InteractiveNodes           int       `json:"interactive_nodes"`
	Timestamp                  time.Time `json:"timestamp"`
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
