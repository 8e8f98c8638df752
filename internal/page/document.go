package page

// Document is a point-in-time view of one page or frame.
type Document struct {
	Root *Element
	URL  string

	ScrollX float64
	ScrollY float64
	// ScrollWidth/ScrollHeight are the document's maximum scroll extents,
	// used to size the overlay container.
	ScrollWidth  float64
	ScrollHeight float64

	byHTMLID map[string]*Element
	byLensID map[int]*Element
}

// All returns every element in detection order: preorder, with an
// element's shadow tree visited before its light children. Hidden
// subtrees are not pruned here, classification handles that.
func (d *Document) All() []*Element {
	if d.Root == nil {
		return nil
	}
	var out []*Element
	// explicit worklist, shadow roots included
	stack := []*Element{d.Root}
	for len(stack) > 0 {
		el := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, el)
		// push light children then shadow children, reversed, so shadow
		// content pops first
		for i := len(el.Children) - 1; i >= 0; i-- {
			stack = append(stack, el.Children[i])
		}
		for i := len(el.ShadowChildren) - 1; i >= 0; i-- {
			stack = append(stack, el.ShadowChildren[i])
		}
	}
	return out
}

// ByHTMLID looks up an element by its id attribute.
func (d *Document) ByHTMLID(id string) *Element {
	d.ensureIndex()
	return d.byHTMLID[id]
}

// ByLensID looks up an element by its stamped numeric id.
func (d *Document) ByLensID(id int) *Element {
	d.ensureIndex()
	return d.byLensID[id]
}

// LabelFor returns the <label> associated with an input: a label whose
// "for" matches the input's id wins, otherwise an enclosing label.
func (d *Document) LabelFor(input *Element) *Element {
	if id := input.Attr("id"); id != "" {
		for _, el := range d.All() {
			if el.Tag == "label" && el.Attr("for") == id {
				return el
			}
		}
	}
	for cur := input.Parent; cur != nil; cur = cur.Parent {
		if cur.Tag == "label" {
			return cur
		}
	}
	return nil
}

// ControlFor returns the form control a <label> labels: the element
// whose id matches the label's "for" attribute wins, otherwise the
// first control descendant.
func (d *Document) ControlFor(label *Element) *Element {
	if id := label.Attr("for"); id != "" {
		return d.ByHTMLID(id)
	}
	return firstControl(label)
}

func firstControl(el *Element) *Element {
	for _, c := range el.Children {
		switch c.Tag {
		case "input", "select", "textarea", "button", "meter", "output", "progress":
			return c
		}
		if found := firstControl(c); found != nil {
			return found
		}
	}
	return nil
}

// MapByName returns the <map> element with the given name, resolving
// img[usemap] references ("#chart" strips the leading #).
func (d *Document) MapByName(name string) *Element {
	for _, el := range d.All() {
		if el.Tag == "map" && el.Attr("name") == name {
			return el
		}
	}
	return nil
}

func (d *Document) ensureIndex() {
	if d.byLensID != nil {
		return
	}
	d.byHTMLID = make(map[string]*Element)
	d.byLensID = make(map[int]*Element)
	for _, el := range d.All() {
		if id := el.Attr("id"); id != "" {
			if _, dup := d.byHTMLID[id]; !dup {
				d.byHTMLID[id] = el
			}
		}
		d.byLensID[el.ID] = el
	}
}
