package hints

import (
	"strconv"
	"strings"

	"github.com/domlens/domlens/internal/page"
)

type classification struct {
	clickable             bool
	reason                string
	possibleFalsePositive bool
	secondClassCitizen    bool
}

// interactive ARIA roles, matched case-insensitively.
var interactiveRoles = map[string]bool{
	"button":           true,
	"tab":              true,
	"link":             true,
	"checkbox":         true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"radio":            true,
}

// Angular click handler attribute spellings: ng-click plus the data-/x-
// prefixed forms, with -, : and _ separators.
var ngClickAttrs = buildNgClickAttrs()

func buildNgClickAttrs() []string {
	var out []string
	for _, prefix := range []string{"", "data-", "x-"} {
		for _, sep := range []string{"-", ":", "_"} {
			out = append(out, prefix+"ng"+sep+"click")
		}
	}
	return out
}

// text-like input types where readonly makes the field inert. An empty
// type attribute defaults to text.
func textLikeInput(typ string) bool {
	switch strings.ToLower(typ) {
	case "", "text", "search", "email", "url", "tel", "password":
		return true
	}
	return false
}

// classify decides whether an element deserves a hint. Rules are
// evaluated in a fixed order and the first match wins.
func classify(doc *page.Document, el *page.Element) classification {
	// aria-disabled, present-but-empty counts as disabled
	if v, ok := el.Attrs["aria-disabled"]; ok {
		if v == "" || strings.EqualFold(v, "true") {
			return classification{}
		}
	}

	switch el.Tag {
	case "a", "object", "embed":
		// the disabled attribute means nothing on these
		return classification{clickable: true}
	case "button", "select":
		if el.HasAttr("disabled") {
			return classification{}
		}
		return classification{clickable: true}
	case "textarea":
		if el.HasAttr("disabled") || el.HasAttr("readonly") {
			return classification{}
		}
		return classification{clickable: true}
	case "input":
		if el.HasAttr("disabled") || strings.EqualFold(el.Attr("type"), "hidden") {
			return classification{}
		}
		if el.HasAttr("readonly") && textLikeInput(el.Attr("type")) {
			return classification{}
		}
		return classification{clickable: true}
	case "label":
		if ctrl := doc.ControlFor(el); ctrl != nil && !ctrl.HasAttr("disabled") {
			return classification{clickable: true}
		}
	case "img":
		switch el.Style.Cursor {
		case "zoom-in", "zoom-out":
			return classification{clickable: true}
		}
	case "details":
		return classification{clickable: true, reason: "Open/Close"}
	case "body":
		if isDocumentBody(el) && viewportLargerThan(el, 3) && isScrollable(el) {
			return classification{clickable: true, reason: "Scroll"}
		}
	case "div", "ol", "ul":
		if isScrollable(el) {
			return classification{clickable: true, reason: "Scroll"}
		}
	}

	if el.HasAttr("onclick") {
		return classification{clickable: true}
	}
	for _, attr := range ngClickAttrs {
		if el.HasAttr(attr) {
			return classification{clickable: true}
		}
	}
	if hasClickableJsaction(el.Attr("jsaction")) {
		return classification{clickable: true}
	}

	if interactiveRoles[strings.ToLower(el.Attr("role"))] {
		return classification{clickable: true}
	}

	if v, ok := el.Attrs["contenteditable"]; ok {
		if v == "" || strings.EqualFold(v, "contenteditable") || strings.EqualFold(v, "true") {
			return classification{clickable: true}
		}
	}

	if strings.Contains(strings.ToLower(el.Attr("class")), "button") {
		return classification{clickable: true, possibleFalsePositive: true}
	}

	if idx := el.Attr("tabindex"); idx != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(idx)); err == nil && n >= 0 {
			return classification{clickable: true, secondClassCitizen: true}
		}
	}

	return classification{}
}

// hasClickableJsaction parses a jsaction attribute. Each ";"-separated
// rule is either "eventType:action" or a bare action implying click. A
// rule makes the element clickable when its event is click (or empty)
// and the action's final dot-segment is neither "none" nor "_".
func hasClickableJsaction(v string) bool {
	if v == "" {
		return false
	}
	for _, rule := range strings.Split(v, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		event := "click"
		action := rule
		if before, after, ok := strings.Cut(rule, ":"); ok {
			event = strings.TrimSpace(before)
			action = strings.TrimSpace(after)
		}
		if event != "click" && event != "" {
			continue
		}
		if action == "" {
			continue
		}
		segs := strings.Split(action, ".")
		final := segs[len(segs)-1]
		if final == "none" || final == "_" {
			continue
		}
		return true
	}
	return false
}

// isDocumentBody distinguishes the real document body from stray
// <body> tags nested in markup. Frameset pages have no scrollable body.
func isDocumentBody(el *page.Element) bool {
	return el.Parent != nil && el.Parent.Tag == "html"
}

// viewportLargerThan checks the body's client box against a minimum on
// both axes, so near-zero frames never get a scroll hint.
func viewportLargerThan(el *page.Element, min float64) bool {
	w, h := el.ClientWidth, el.ClientHeight
	if w == 0 {
		w = el.Rect.Width
	}
	if h == 0 {
		h = el.Rect.Height
	}
	return w > min && h > min
}

// isScrollable reports overflow that the user can actually scroll:
// an auto/scroll overflow style on either axis plus content larger than
// the client box.
func isScrollable(el *page.Element) bool {
	overflowing := el.ScrollHeight > el.ClientHeight || el.ScrollWidth > el.ClientWidth
	if !overflowing {
		return false
	}
	return scrollStyle(el.Style.OverflowY) || scrollStyle(el.Style.OverflowX)
}

func scrollStyle(v string) bool {
	return v == "auto" || v == "scroll"
}
