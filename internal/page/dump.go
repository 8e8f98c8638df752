package page

import (
	"encoding/json"
	"fmt"
)

// DocumentDump is the wire shape produced by the collector script running
// inside a live page. Node order is collection order; Parent refers to an
// index in Nodes, -1 for the document element.
type DocumentDump struct {
	URL          string     `json:"url"`
	ScrollX      float64    `json:"scrollX"`
	ScrollY      float64    `json:"scrollY"`
	ScrollWidth  float64    `json:"scrollWidth"`
	ScrollHeight float64    `json:"scrollHeight"`
	Nodes        []NodeDump `json:"nodes"`
}

type NodeDump struct {
	ID     int               `json:"id"`
	Parent int               `json:"parent"`
	Shadow bool              `json:"shadow"`
	Tag    string            `json:"tag"`
	Attrs  map[string]string `json:"attrs"`
	Text   string            `json:"text"`
	Rect   Rect              `json:"rect"`
	Style  Style             `json:"style"`

	ClientWidth  float64 `json:"clientWidth"`
	ClientHeight float64 `json:"clientHeight"`
	ScrollWidth  float64 `json:"scrollW"`
	ScrollHeight float64 `json:"scrollH"`
}

// FromDumpJSON decodes collector output and hydrates a Document.
func FromDumpJSON(data []byte) (*Document, error) {
	var dump DocumentDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("decode page dump: %w", err)
	}
	return FromDump(&dump)
}

// FromDump hydrates a Document from a collector dump.
func FromDump(dump *DocumentDump) (*Document, error) {
	if len(dump.Nodes) == 0 {
		return nil, fmt.Errorf("page dump has no nodes")
	}
	els := make([]*Element, len(dump.Nodes))
	for i, n := range dump.Nodes {
		attrs := n.Attrs
		if attrs == nil {
			attrs = map[string]string{}
		}
		els[i] = &Element{
			ID:           n.ID,
			Tag:          n.Tag,
			Attrs:        attrs,
			Text:         n.Text,
			Rect:         n.Rect,
			Style:        n.Style,
			ClientWidth:  n.ClientWidth,
			ClientHeight: n.ClientHeight,
			ScrollWidth:  n.ScrollWidth,
			ScrollHeight: n.ScrollHeight,
		}
	}
	doc := &Document{
		URL:          dump.URL,
		ScrollX:      dump.ScrollX,
		ScrollY:      dump.ScrollY,
		ScrollWidth:  dump.ScrollWidth,
		ScrollHeight: dump.ScrollHeight,
	}
	for i, n := range dump.Nodes {
		if n.Parent < 0 {
			if doc.Root == nil {
				doc.Root = els[i]
			}
			continue
		}
		if n.Parent >= len(els) {
			return nil, fmt.Errorf("page dump node %d: parent %d out of range", i, n.Parent)
		}
		p := els[n.Parent]
		els[i].Parent = p
		if n.Shadow {
			p.ShadowChildren = append(p.ShadowChildren, els[i])
		} else {
			p.Children = append(p.Children, els[i])
		}
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("page dump has no root node")
	}
	return doc, nil
}

// CollectorJS returns the script that walks a live page, open shadow
// roots included, and returns a DocumentDump as a JSON string. Elements
// are stamped with data-domlens-id on first visit so later dispatch
// scripts can find them again.
func CollectorJS() string {
	return `(() => {
  const nodes = [];
  const seen = new Map();
  const stamp = (el) => {
    let id = parseInt(el.getAttribute('data-domlens-id') || '', 10);
    if (!id) {
      window.__domlensNextId = (window.__domlensNextId || 0) + 1;
      id = window.__domlensNextId;
      el.setAttribute('data-domlens-id', String(id));
    }
    return id;
  };
  const walk = (el, parentIdx, inShadow) => {
    if (el.hasAttribute && el.hasAttribute('data-domlens-overlay')) return;
    const cs = getComputedStyle(el);
    const r = el.getBoundingClientRect();
    const attrs = {};
    for (const a of el.attributes) attrs[a.name.toLowerCase()] = a.value;
    let text = '';
    for (const c of el.childNodes) {
      if (c.nodeType === Node.TEXT_NODE) text += c.textContent;
    }
    const idx = nodes.length;
    nodes.push({
      id: stamp(el),
      parent: parentIdx,
      shadow: inShadow,
      tag: el.tagName.toLowerCase(),
      attrs: attrs,
      text: text.trim(),
      rect: { top: r.top + window.scrollY, left: r.left + window.scrollX,
              width: r.width, height: r.height },
      style: { display: cs.display, visibility: cs.visibility,
               cursor: cs.cursor, overflowX: cs.overflowX,
               overflowY: cs.overflowY, opacity: parseFloat(cs.opacity) },
      clientWidth: el.clientWidth, clientHeight: el.clientHeight,
      scrollW: el.scrollWidth, scrollH: el.scrollHeight
    });
    if (el.shadowRoot) {
      for (const c of el.shadowRoot.children) walk(c, idx, true);
    }
    for (const c of el.children) walk(c, idx, false);
  };
  walk(document.documentElement, -1, false);
  const de = document.documentElement;
  return JSON.stringify({
    url: location.href,
    scrollX: window.scrollX, scrollY: window.scrollY,
    scrollWidth: Math.max(de.scrollWidth, document.body ? document.body.scrollWidth : 0),
    scrollHeight: Math.max(de.scrollHeight, document.body ? document.body.scrollHeight : 0),
    nodes: nodes
  });
})()`
}
