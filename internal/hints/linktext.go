package hints

import (
	"strings"
	"unicode/utf8"

	"github.com/domlens/domlens/internal/page"
)

// linkText extracts the text shown next to a hint marker. limit caps the
// generic-text fallbacks; label and input-value paths are not capped.
func linkText(doc *page.Document, el *page.Element, limit int) string {
	switch el.Tag {
	case "input":
		return inputLinkText(doc, el)
	case "a":
		if t := truncate(el.TextContent(), limit); t != "" {
			return t
		}
		// image links: borrow the inner img's alt or title
		if img := firstDescendant(el, "img"); img != nil {
			if alt := img.Attr("alt"); alt != "" {
				return alt
			}
			if title := img.Attr("title"); title != "" {
				return title
			}
		}
	}

	if t := truncate(el.TextContent(), limit); t != "" {
		return t
	}
	if title := strings.TrimSpace(el.Attr("title")); title != "" {
		return title
	}
	return truncate(el.InnerHTML(), limit)
}

func inputLinkText(doc *page.Document, el *page.Element) string {
	if label := doc.LabelFor(el); label != nil {
		text := label.TextContent()
		return strings.TrimSuffix(text, ":")
	}
	typ := strings.ToLower(el.Attr("type"))
	if typ == "file" {
		return "Choose File"
	}
	if typ == "password" {
		return ""
	}
	if v := el.Attr("value"); v != "" {
		return v
	}
	return el.Attr("placeholder")
}

// areaLinkText names an image-map region.
func areaLinkText(area *page.Element) string {
	if alt := area.Attr("alt"); alt != "" {
		return alt
	}
	if title := area.Attr("title"); title != "" {
		return title
	}
	return "Area"
}

func firstDescendant(el *page.Element, tag string) *page.Element {
	for _, c := range el.Children {
		if c.Tag == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// truncate caps s at limit bytes, backing up so the cut never lands
// inside a multi-byte rune.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
