package domtree

import (
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/cdp"
)

// interactiveAXRoles is the accessibility-role allowlist for the
// backend pass. Broader than the content-side one because AX roles are
// normalized by the browser already.
var interactiveAXRoles = map[string]bool{
	"button":           true,
	"link":             true,
	"checkbox":         true,
	"radio":            true,
	"tab":              true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"combobox":         true,
	"listbox":          true,
	"option":           true,
	"searchbox":        true,
	"slider":           true,
	"spinbutton":       true,
	"switch":           true,
	"textbox":          true,
}

var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"details":  true,
	"summary":  true,
	"label":    true,
	"option":   true,
}

// isInteractive decides whether a fused node belongs in the selector
// map. Signals in strength order: disabled states veto, then native
// tag, AX role, snapshot clickability, explicit handlers, tabindex.
func isInteractive(n *Node) bool {
	if n.NodeType != cdp.NodeTypeElement {
		return false
	}
	if v, ok := n.Attributes["aria-disabled"]; ok && (v == "" || strings.EqualFold(v, "true")) {
		return false
	}
	if _, ok := n.Attributes["disabled"]; ok {
		return false
	}

	tag := n.Tag()
	if interactiveTags[tag] {
		if tag == "input" && strings.EqualFold(n.Attr("type"), "hidden") {
			return false
		}
		return true
	}
	if n.AX != nil && !n.AX.Ignored && interactiveAXRoles[strings.ToLower(n.AX.Role)] {
		return true
	}
	if n.Snapshot != nil && n.Snapshot.Clickable {
		return true
	}
	if _, ok := n.Attributes["onclick"]; ok {
		return true
	}
	if v, ok := n.Attributes["contenteditable"]; ok && (v == "" || strings.EqualFold(v, "true")) {
		return true
	}
	if n.IsScrollable {
		return true
	}
	if idx, ok := n.Attributes["tabindex"]; ok {
		if v, err := strconv.Atoi(strings.TrimSpace(idx)); err == nil && v >= 0 {
			return true
		}
	}
	return false
}

// BuildSelectorMap assigns dense interactive indices in traversal order
// and returns the index -> node-ref map. Element indices on the tree are
// updated in place; everything not selected gets NoNode.
func BuildSelectorMap(t *Tree) SelectorMap {
	sel := make(SelectorMap)
	next := 0
	t.Walk(func(idx int, n *Node) bool {
		n.ElementIndex = NoNode
		if n.IsVisible && isInteractive(n) {
			n.ElementIndex = next
			sel[next] = NodeRef{
				ArenaIndex:    idx,
				BackendNodeID: n.BackendNodeID,
				NodeName:      n.NodeName,
				FrameID:       n.FrameID,
			}
			next++
		}
		return true
	})
	return sel
}
