package page

import (
	"strings"
)

// Rect is an element's bounding box in document coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Style holds the computed style properties detection cares about.
type Style struct {
	Display    string  `json:"display"`
	Visibility string  `json:"visibility"`
	Cursor     string  `json:"cursor"`
	OverflowX  string  `json:"overflowX"`
	OverflowY  string  `json:"overflowY"`
	Opacity    float64 `json:"opacity"`
}

// Element is one node of the content-side DOM model. Instances are built
// either from a host dump of a live page or from parsed HTML fixtures.
type Element struct {
	// ID mirrors the data-domlens-id attribute stamped on live pages, so
	// generated JS can address the element after a round trip.
	ID    int
	Tag   string
	Attrs map[string]string
	// Text is the concatenation of the element's direct text children.
	Text string

	Parent   *Element
	Children []*Element
	// ShadowChildren are the roots of an open shadow tree hosted here.
	ShadowChildren []*Element

	Rect  Rect
	Style Style

	ClientWidth  float64
	ClientHeight float64
	ScrollWidth  float64
	ScrollHeight float64
}

// Attr returns the named attribute or "" when absent.
func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

// HasAttr reports whether the attribute is present, even with an empty value.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attrs[name]
	return ok
}

// IsShadowHost reports whether the element hosts a shadow tree.
func (e *Element) IsShadowHost() bool {
	return len(e.ShadowChildren) > 0
}

// TextContent returns the light-DOM text of the element and its
// descendants with whitespace collapsed.
func (e *Element) TextContent() string {
	var sb strings.Builder
	e.appendText(&sb)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func (e *Element) appendText(sb *strings.Builder) {
	if e.Text != "" {
		sb.WriteString(e.Text)
		sb.WriteString(" ")
	}
	for _, c := range e.Children {
		c.appendText(sb)
	}
}

// InnerHTML reconstructs an approximate HTML serialization of the
// element's light-DOM children. Good enough for text fallbacks, not a
// faithful round trip.
func (e *Element) InnerHTML() string {
	var sb strings.Builder
	if e.Text != "" {
		sb.WriteString(e.Text)
	}
	for _, c := range e.Children {
		c.appendHTML(&sb)
	}
	return sb.String()
}

func (e *Element) appendHTML(sb *strings.Builder) {
	sb.WriteString("<")
	sb.WriteString(e.Tag)
	for k, v := range e.Attrs {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(v)
		sb.WriteString(`"`)
	}
	sb.WriteString(">")
	sb.WriteString(e.InnerHTML())
	sb.WriteString("</")
	sb.WriteString(e.Tag)
	sb.WriteString(">")
}

// HasAncestor walks up at most maxLevels parents looking for candidate.
// maxLevels < 0 removes the limit.
func (e *Element) HasAncestor(candidate *Element, maxLevels int) bool {
	cur := e.Parent
	for level := 0; cur != nil; level++ {
		if maxLevels >= 0 && level >= maxLevels {
			return false
		}
		if cur == candidate {
			return true
		}
		cur = cur.Parent
	}
	return false
}
