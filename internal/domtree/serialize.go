package domtree

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/cdproto/cdp"
)

// SimplifiedNode wraps one tree node for serialization. Wrappers live
// for a single serialization pass; a rebuild throws the whole layer
// away.
type SimplifiedNode struct {
	Arena               int               `json:"arena"`
	ShouldDisplay       bool              `json:"should_display"`
	InteractiveIndex    int               `json:"interactive_index"`
	IsNew               bool              `json:"is_new,omitempty"`
	ExcludedByParent    bool              `json:"excluded_by_parent,omitempty"`
	IgnoredByPaintOrder bool              `json:"ignored_by_paint_order,omitempty"`
	IsShadowHost        bool              `json:"is_shadow_host,omitempty"`
	IsCompoundComponent bool              `json:"is_compound_component,omitempty"`
	Children            []*SimplifiedNode `json:"children,omitempty"`
}

// attribute subset worth showing to a model, in render order.
var serializedAttrs = []string{
	"type", "name", "role", "value", "placeholder", "alt", "title",
	"href", "aria-label", "aria-expanded", "id",
}

const (
	maxAttrValueLen  = 40
	maxInlineTextLen = 120
)

// Serializer turns a fused tree into the simplified layer plus the
// text representation handed to models.
type Serializer struct{}

func NewSerializer() *Serializer { return &Serializer{} }

// Serialize returns the simplified root, the text form and the number
// of displayed nodes (the basis for total_nodes_count_change).
func (s *Serializer) Serialize(t *Tree) (*SimplifiedNode, string, int) {
	root := s.build(t, t.Root)
	if root == nil {
		return nil, "", 0
	}
	s.excludeLabeled(t, root, false)
	s.markOccluded(t, root)

	var sb strings.Builder
	displayed := s.render(t, root, &sb, 0)
	return root, sb.String(), displayed
}

// build creates wrappers bottom-up, pruning branches with nothing to
// show. Shadow roots and content documents come before light children
// so output order matches render order.
func (s *Serializer) build(t *Tree, idx int) *SimplifiedNode {
	n := t.Node(idx)
	if n == nil {
		return nil
	}
	sn := &SimplifiedNode{
		Arena:            idx,
		InteractiveIndex: n.ElementIndex,
		IsNew:            n.IsNew,
		IsShadowHost:     len(n.ShadowRoots) > 0,
	}

	var kids []*SimplifiedNode
	for _, c := range n.ShadowRoots {
		if child := s.build(t, c); child != nil && child.ShouldDisplay {
			kids = append(kids, child)
		}
	}
	if n.ContentDocument != NoNode {
		if child := s.build(t, n.ContentDocument); child != nil && child.ShouldDisplay {
			kids = append(kids, child)
		}
	}
	for _, c := range n.Children {
		if child := s.build(t, c); child != nil && child.ShouldDisplay {
			kids = append(kids, child)
		}
	}
	sn.Children = kids

	switch {
	case n.ElementIndex != NoNode:
		sn.ShouldDisplay = true
	case isDisplayableText(t, n):
		sn.ShouldDisplay = true
	case len(kids) > 0:
		sn.ShouldDisplay = true
	}

	s.collapseCompound(t, sn)
	return sn
}

// isDisplayableText keeps text that sits inside a visible element.
func isDisplayableText(t *Tree, n *Node) bool {
	if n.NodeType != cdp.NodeTypeText {
		return false
	}
	if strings.TrimSpace(n.NodeValue) == "" {
		return false
	}
	p := t.Node(n.Parent)
	return p != nil && p.IsVisible
}

// collapseCompound flattens a shadow host whose entire displayed
// content is its single shadow tree. Custom elements wrapping one
// widget produce a layer of noise otherwise.
func (s *Serializer) collapseCompound(t *Tree, sn *SimplifiedNode) {
	n := t.Node(sn.Arena)
	if !sn.IsShadowHost || n.ElementIndex != NoNode {
		return
	}
	if len(sn.Children) != 1 {
		return
	}
	only := sn.Children[0]
	child := t.Node(only.Arena)
	if child == nil || child.NodeType != cdp.NodeTypeDocumentFragment {
		return
	}
	sn.Children = only.Children
	sn.IsCompoundComponent = true
}

// excludeLabeled suppresses text that merely repeats an interactive
// ancestor's accessible name; the label already carries it.
func (s *Serializer) excludeLabeled(t *Tree, sn *SimplifiedNode, underLabeled bool) {
	n := t.Node(sn.Arena)
	if underLabeled && n.NodeType == cdp.NodeTypeText {
		sn.ExcludedByParent = true
	}
	labeled := underLabeled
	if n.ElementIndex != NoNode && n.AX != nil && n.AX.Name != "" {
		labeled = true
	}
	for _, c := range sn.Children {
		s.excludeLabeled(t, c, labeled)
	}
}

// markOccluded drops displayed nodes that sit entirely under a
// higher-painted stacking context (modal overlays, toasts). Ancestors
// and descendants never occlude each other.
func (s *Serializer) markOccluded(t *Tree, root *SimplifiedNode) {
	var all []*SimplifiedNode
	var collect func(sn *SimplifiedNode)
	collect = func(sn *SimplifiedNode) {
		all = append(all, sn)
		for _, c := range sn.Children {
			collect(c)
		}
	}
	collect(root)

	for _, sn := range all {
		n := t.Node(sn.Arena)
		if n.ElementIndex == NoNode || n.Snapshot == nil || n.Snapshot.Bounds == nil {
			continue
		}
		for _, other := range all {
			if other == sn {
				continue
			}
			o := t.Node(other.Arena)
			if o.Snapshot == nil || o.Snapshot.Bounds == nil || !o.Snapshot.StackingContext {
				continue
			}
			if o.Snapshot.PaintOrder <= n.Snapshot.PaintOrder {
				continue
			}
			if !contains(o.Snapshot.Bounds, n.Snapshot.Bounds) {
				continue
			}
			if isAncestor(t, other.Arena, sn.Arena) || isAncestor(t, sn.Arena, other.Arena) {
				continue
			}
			sn.IgnoredByPaintOrder = true
			break
		}
	}
}

func contains(outer, inner *Rect) bool {
	return inner.X >= outer.X && inner.Y >= outer.Y &&
		inner.X+inner.Width <= outer.X+outer.Width &&
		inner.Y+inner.Height <= outer.Y+outer.Height
}

func isAncestor(t *Tree, ancestor, node int) bool {
	for cur := t.Node(node); cur != nil && cur.Parent != NoNode; cur = t.Node(cur.Parent) {
		if cur.Parent == ancestor {
			return true
		}
	}
	return false
}

// render writes the text lines and counts displayed nodes.
func (s *Serializer) render(t *Tree, sn *SimplifiedNode, sb *strings.Builder, depth int) int {
	if !sn.ShouldDisplay || sn.ExcludedByParent || sn.IgnoredByPaintOrder {
		return 0
	}
	n := t.Node(sn.Arena)
	count := 1
	childDepth := depth

	switch {
	case n.ElementIndex != NoNode:
		sb.WriteString(strings.Repeat("\t", depth))
		if sn.IsNew {
			sb.WriteString("*[NEW]*")
		}
		tag := n.Tag()
		fmt.Fprintf(sb, "[%d]<%s%s>%s</%s>\n",
			n.ElementIndex, tag, renderAttrs(n), inlineText(t, n), tag)
		childDepth = depth + 1
	case n.NodeType == cdp.NodeTypeText:
		text := strings.Join(strings.Fields(n.NodeValue), " ")
		if text == "" {
			count = 0
			break
		}
		sb.WriteString(strings.Repeat("\t", depth))
		sb.WriteString(text)
		sb.WriteString("\n")
	default:
		// structural wrapper, invisible in text output
		count = 0
	}

	for _, c := range sn.Children {
		count += s.render(t, c, sb, childDepth)
	}
	return count
}

func renderAttrs(n *Node) string {
	var sb strings.Builder
	for _, key := range serializedAttrs {
		v, ok := n.Attributes[key]
		if !ok || v == "" {
			continue
		}
		v = clip(v, maxAttrValueLen)
		fmt.Fprintf(&sb, " %s=%q", key, v)
	}
	if n.IsScrollable {
		sb.WriteString(` scrollable="true"`)
	}
	return sb.String()
}

// inlineText is the element's one-line content: the accessible name
// when present, otherwise its direct text children.
func inlineText(t *Tree, n *Node) string {
	if n.AX != nil && n.AX.Name != "" {
		return clip(n.AX.Name, maxInlineTextLen)
	}
	var parts []string
	for _, c := range n.Children {
		cn := t.Node(c)
		if cn != nil && cn.NodeType == cdp.NodeTypeText {
			if s := strings.Join(strings.Fields(cn.NodeValue), " "); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return clip(strings.Join(parts, " "), maxInlineTextLen)
}

// clip shortens s to at most n bytes plus an ellipsis, backing up so
// the cut never lands inside a multi-byte rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
