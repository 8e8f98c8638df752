package hints

import "github.com/domlens/domlens/internal/page"

// isVisible applies the occupancy rule: a non-zero box, not hidden by
// visibility/display, and opacity above zero. Deliberately no viewport
// clipping, offscreen elements stay detectable so hints survive scrolling.
func isVisible(el *page.Element) bool {
	if el.Rect.Empty() {
		return false
	}
	if el.Style.Visibility == "hidden" {
		return false
	}
	if el.Style.Display == "none" {
		return false
	}
	if el.Style.Opacity <= 0 {
		return false
	}
	return true
}
