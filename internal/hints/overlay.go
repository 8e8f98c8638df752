package hints

import (
	"encoding/json"
	"fmt"
	"math"
)

// overlayMarker is the per-hint payload handed to the overlay script.
type overlayMarker struct {
	Label  string  `json:"label"`
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Title  string  `json:"title"`
	Target int     `json:"target"`
}

// jsonString safely embeds a Go value as a JS literal.
func jsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// markerTitle picks the tooltip for a marker: the clickability reason
// wins, then link text, then the href.
func markerTitle(h Hint) string {
	if h.Reason != "" {
		return h.Reason
	}
	if h.LinkText != "" {
		return h.LinkText
	}
	return h.Href
}

// ShowJS builds the script that renders hint markers. The container is
// created lazily, sized to the document's full scroll extents, and kept
// pointer-transparent; only the markers themselves accept clicks. A
// marker click stops propagation and activates its target in-page.
func ShowJS(hs []Hint, scrollWidth, scrollHeight float64) string {
	markers := make([]overlayMarker, 0, len(hs))
	for _, h := range hs {
		markers = append(markers, overlayMarker{
			Label:  h.Label,
			Top:    h.Rect.Top,
			Left:   h.Rect.Left,
			Title:  markerTitle(h),
			Target: h.elem.ID,
		})
	}
	return fmt.Sprintf(`(() => {
  let c = document.querySelector('[data-domlens-overlay]');
  if (!c) {
    c = document.createElement('div');
    c.setAttribute('data-domlens-overlay', '1');
    c.style.cssText = 'position:absolute;top:0;left:0;z-index:2147483647;pointer-events:none;';
    document.documentElement.appendChild(c);
  }
  c.style.width = %s + 'px';
  c.style.height = %s + 'px';
  c.textContent = '';
  const activate = (id) => {
    const el = document.querySelector('[data-domlens-id="' + id + '"]');
    if (!el) return;
    const tag = el.tagName.toLowerCase();
    if (tag === 'details') { el.open = !el.open; }
    else if (tag === 'input' || tag === 'textarea' || tag === 'select') { el.focus(); }
    else { el.click(); }
  };
  for (const m of %s) {
    const b = document.createElement('div');
    b.setAttribute('data-domlens-overlay', '1');
    b.textContent = m.label;
    b.title = m.title;
    b.style.cssText = 'position:absolute;pointer-events:auto;cursor:pointer;' +
      'background:#ffd76e;color:#302505;border:1px solid #c38a22;border-radius:3px;' +
      'padding:1px 4px;font:bold 11px sans-serif;box-shadow:0 1px 2px rgba(0,0,0,.4);';
    b.style.top = m.top + 'px';
    b.style.left = m.left + 'px';
    b.addEventListener('click', (ev) => {
      ev.preventDefault();
      ev.stopPropagation();
      activate(m.target);
    });
    c.appendChild(b);
  }
  return %s.length;
})()`, jsonString(scrollWidth), jsonString(scrollHeight), jsonString(markers), jsonString(markers))
}

// HideJS removes the overlay container and every marker in it.
func HideJS() string {
	return `(() => {
  for (const el of document.querySelectorAll('[data-domlens-overlay]')) el.remove();
  return true;
})()`
}

// DispatchJS activates one element by its stamped id with the
// tag-appropriate gesture: details toggle, form controls focus,
// everything else a synthetic click.
func DispatchJS(lensID int, tag string) string {
	var action string
	switch tag {
	case "details":
		action = "el.open = !el.open;"
	case "input", "textarea", "select":
		action = "el.focus();"
	default:
		action = "el.click();"
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector('[data-domlens-id=%s]');
  if (!el) return false;
  %s
  return true;
})()`, jsonString(fmt.Sprintf("%d", lensID)), action)
}

// rectTolerance is how far (px) any edge may drift before a re-detected
// hint no longer counts as the same element.
const rectTolerance = 1.0

// sameRect compares all four edges within tolerance.
func sameRect(a, b Rect, tol float64) bool {
	return math.Abs(a.Top-b.Top) <= tol &&
		math.Abs(a.Left-b.Left) <= tol &&
		math.Abs(a.Right-b.Right) <= tol &&
		math.Abs(a.Bottom-b.Bottom) <= tol
}
