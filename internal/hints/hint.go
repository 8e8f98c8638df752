// Package hints detects interactable elements in a page document and
// renders labeled click-target overlays for them. Detection runs on the
// content DOM model (internal/page); rendering happens through a Host
// bridge that executes generated JS inside the live page.
package hints

import "github.com/domlens/domlens/internal/page"

// Rect is the hint bounding box on the wire. Unlike page.Rect it carries
// precomputed right/bottom edges, which overlay re-matching compares.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func toRect(r page.Rect) Rect {
	return Rect{
		Top:    r.Top,
		Left:   r.Left,
		Width:  r.Width,
		Height: r.Height,
		Right:  r.Right(),
		Bottom: r.Bottom(),
	}
}

// Hint is one detected interactable element. Hints are valid for a
// single detection pass; any DOM mutation invalidates them.
type Hint struct {
	Label    string `json:"label,omitempty"`
	Rect     Rect   `json:"rect"`
	LinkText string `json:"linkText"`
	TagName  string `json:"tagName"`
	Href     string `json:"href,omitempty"`
	// Reason explains non-obvious clickability, e.g. "Scroll" or "Frame".
	Reason string `json:"reason,omitempty"`
	// PossibleFalsePositive marks weak signals (class name contains
	// "button") that the lookback filter may still drop.
	PossibleFalsePositive bool `json:"possibleFalsePositive,omitempty"`
	// SecondClassCitizen marks elements clickable only via tabindex.
	SecondClassCitizen bool `json:"secondClassCitizen,omitempty"`

	elem *page.Element
}

// Element returns the element this hint points at.
func (h *Hint) Element() *page.Element { return h.elem }
