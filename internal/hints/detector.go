package hints

import (
	"strconv"
	"strings"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/page"
)

// Detector runs one classification pass over a document.
type Detector struct {
	cfg config.DetectionConfig
}

func NewDetector(cfg config.DetectionConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect walks the document in traversal order and returns the filtered
// hint list. The result is a snapshot: it does not track later mutations.
func (d *Detector) Detect(doc *page.Document) []Hint {
	var out []Hint
	for _, el := range doc.All() {
		if el.Tag == "img" && el.Attr("usemap") != "" {
			out = append(out, d.areaHints(doc, el)...)
			continue
		}
		if !isVisible(el) {
			continue
		}
		c := classify(doc, el)
		if !c.clickable {
			continue
		}
		out = append(out, Hint{
			Rect:                  toRect(el.Rect),
			LinkText:              linkText(doc, el, d.cfg.LinkTextLimit),
			TagName:               el.Tag,
			Href:                  el.Attr("href"),
			Reason:                c.reason,
			PossibleFalsePositive: c.possibleFalsePositive,
			SecondClassCitizen:    c.secondClassCitizen,
			elem:                  el,
		})
	}
	return filterFalsePositives(out, d.cfg.FalsePositiveLookback, d.cfg.FalsePositiveAncestors)
}

// areaHints expands an image map into one hint per usable region. The
// image itself gets no hint, its clickable surface is the areas.
func (d *Detector) areaHints(doc *page.Document, img *page.Element) []Hint {
	if !isVisible(img) {
		return nil
	}
	name := strings.TrimPrefix(img.Attr("usemap"), "#")
	m := doc.MapByName(name)
	if m == nil {
		return nil
	}
	var out []Hint
	for _, area := range collectAreas(m) {
		rect, ok := areaRect(img.Rect, area)
		if !ok || rect.Empty() {
			continue
		}
		out = append(out, Hint{
			Rect:     toRect(rect),
			LinkText: areaLinkText(area),
			TagName:  "area",
			Href:     area.Attr("href"),
			elem:     area,
		})
	}
	return out
}

func collectAreas(m *page.Element) []*page.Element {
	var out []*page.Element
	for _, c := range m.Children {
		if c.Tag == "area" {
			out = append(out, c)
		}
		out = append(out, collectAreas(c)...)
	}
	return out
}

// areaRect converts an <area> shape to a document-coordinate box
// relative to the image. Polygons collapse to their bounding box.
func areaRect(img page.Rect, area *page.Element) (page.Rect, bool) {
	shape := strings.ToLower(area.Attr("shape"))
	coords := parseCoords(area.Attr("coords"))
	switch shape {
	case "", "rect":
		if len(coords) < 4 {
			return page.Rect{}, false
		}
		return page.Rect{
			Top:    img.Top + coords[1],
			Left:   img.Left + coords[0],
			Width:  coords[2] - coords[0],
			Height: coords[3] - coords[1],
		}, true
	case "circle":
		if len(coords) < 3 {
			return page.Rect{}, false
		}
		r := coords[2]
		return page.Rect{
			Top:    img.Top + coords[1] - r,
			Left:   img.Left + coords[0] - r,
			Width:  2 * r,
			Height: 2 * r,
		}, true
	case "poly":
		if len(coords) < 6 {
			return page.Rect{}, false
		}
		minX, minY := coords[0], coords[1]
		maxX, maxY := coords[0], coords[1]
		for i := 0; i+1 < len(coords); i += 2 {
			minX = min(minX, coords[i])
			maxX = max(maxX, coords[i])
			minY = min(minY, coords[i+1])
			maxY = max(maxY, coords[i+1])
		}
		return page.Rect{
			Top:    img.Top + minY,
			Left:   img.Left + minX,
			Width:  maxX - minX,
			Height: maxY - minY,
		}, true
	case "default":
		return img, true
	}
	return page.Rect{}, false
}

func parseCoords(v string) []float64 {
	if v == "" {
		return nil
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}
