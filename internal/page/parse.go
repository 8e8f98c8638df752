package page

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// FromHTML parses an HTML document into the content DOM model. It exists
// for fixtures and offline analysis; live pages are hydrated from host
// dumps instead (see FromDump).
//
// Since parsed HTML carries no layout, geometry is synthesized: elements
// get stacked 20px rows unless a data-rect="top,left,width,height"
// attribute pins the box. data-scroll-width/-height and
// data-client-width/-height override scroll metrics the same way.
// <template shadowrootmode> children become the host's shadow tree.
func FromHTML(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	htmlNode := findElement(root, "html")
	if htmlNode == nil {
		return nil, fmt.Errorf("parse html: no document element")
	}

	b := &fixtureBuilder{}
	doc := &Document{Root: b.convert(htmlNode, nil, false)}
	b.layout(doc.Root, false)
	for _, el := range doc.All() {
		if r := el.Rect; r.Right() > doc.ScrollWidth {
			doc.ScrollWidth = r.Right()
		}
		if r := el.Rect; r.Bottom() > doc.ScrollHeight {
			doc.ScrollHeight = r.Bottom()
		}
	}
	return doc, nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

type fixtureBuilder struct {
	nextID  int
	nextRow int
}

func (b *fixtureBuilder) convert(n *html.Node, parent *Element, _ bool) *Element {
	b.nextID++
	el := &Element{
		ID:     b.nextID,
		Tag:    strings.ToLower(n.Data),
		Attrs:  map[string]string{},
		Parent: parent,
	}
	for _, a := range n.Attr {
		el.Attrs[strings.ToLower(a.Key)] = a.Val
	}

	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			text.WriteString(c.Data)
		case html.ElementNode:
			child := b.convert(c, el, false)
			if child.Tag == "template" && child.Attr("shadowrootmode") != "" {
				// declarative shadow root: hoist template children
				for _, sc := range child.Children {
					sc.Parent = el
					el.ShadowChildren = append(el.ShadowChildren, sc)
				}
				continue
			}
			el.Children = append(el.Children, child)
		}
	}
	el.Text = strings.TrimSpace(text.String())
	return el
}

// layout assigns synthetic geometry and computed-ish styles.
func (b *fixtureBuilder) layout(el *Element, hiddenAncestor bool) {
	el.Style = defaultStyle()
	if el.HasAttr("hidden") {
		el.Style.Display = "none"
	}
	applyInlineStyle(&el.Style, el.Attr("style"))

	hidden := hiddenAncestor || el.Style.Display == "none"
	if rect, ok := parseRectAttr(el.Attr("data-rect")); ok {
		el.Rect = rect
	} else if hidden {
		el.Rect = Rect{}
	} else {
		el.Rect = Rect{Top: float64(b.nextRow) * 20, Left: 0, Width: 120, Height: 20}
		b.nextRow++
	}

	el.ClientWidth = attrFloat(el, "data-client-width", el.Rect.Width)
	el.ClientHeight = attrFloat(el, "data-client-height", el.Rect.Height)
	el.ScrollWidth = attrFloat(el, "data-scroll-width", el.ClientWidth)
	el.ScrollHeight = attrFloat(el, "data-scroll-height", el.ClientHeight)

	for _, c := range el.ShadowChildren {
		b.layout(c, hidden)
	}
	for _, c := range el.Children {
		b.layout(c, hidden)
	}
}

func defaultStyle() Style {
	return Style{
		Display:    "block",
		Visibility: "visible",
		Cursor:     "auto",
		OverflowX:  "visible",
		OverflowY:  "visible",
		Opacity:    1,
	}
}

func applyInlineStyle(s *Style, style string) {
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		k = strings.TrimSpace(strings.ToLower(k))
		v = strings.TrimSpace(strings.ToLower(v))
		switch k {
		case "display":
			s.Display = v
		case "visibility":
			s.Visibility = v
		case "cursor":
			s.Cursor = v
		case "overflow":
			s.OverflowX = v
			s.OverflowY = v
		case "overflow-x":
			s.OverflowX = v
		case "overflow-y":
			s.OverflowY = v
		case "opacity":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				s.Opacity = f
			}
		}
	}
}

func parseRectAttr(v string) (Rect, bool) {
	if v == "" {
		return Rect{}, false
	}
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var nums [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, false
		}
		nums[i] = f
	}
	return Rect{Top: nums[0], Left: nums[1], Width: nums[2], Height: nums[3]}, true
}

func attrFloat(el *Element, name string, fallback float64) float64 {
	v := el.Attr(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
