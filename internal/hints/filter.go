package hints

// filterFalsePositives drops weak "class contains button" hints that
// wrap an already-kept hint: the flagged element is the ancestor in the
// comparison, never the descendant, so a weak container around a real
// control goes away while a weak child inside a clickable container
// stays. For each flagged hint it looks back at most lookback
// already-kept hints and walks at most levels ancestors from each of
// them. The window sizes bound cost on pages with thousands of hints.
func filterFalsePositives(in []Hint, lookback, levels int) []Hint {
	out := make([]Hint, 0, len(in))
	for _, h := range in {
		if h.PossibleFalsePositive && coversRecent(out, h, lookback, levels) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// coversRecent reports whether h's element is an ancestor, within
// levels steps, of any of the last lookback kept hints' elements.
func coversRecent(kept []Hint, h Hint, lookback, levels int) bool {
	start := len(kept) - lookback
	if start < 0 {
		start = 0
	}
	for i := len(kept) - 1; i >= start; i-- {
		if kept[i].elem.HasAncestor(h.elem, levels) {
			return true
		}
	}
	return false
}
