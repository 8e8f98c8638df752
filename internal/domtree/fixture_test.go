package domtree

import (
	"strconv"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domsnapshot"
	"github.com/go-json-experiment/json/jsontext"
)

// test scaffolding for fabricating the three CDP captures without a
// browser.

func elem(backendID cdp.BackendNodeID, name string, attrs []string, children ...*cdp.Node) *cdp.Node {
	return &cdp.Node{
		NodeID:        cdp.NodeID(backendID),
		BackendNodeID: backendID,
		NodeType:      cdp.NodeTypeElement,
		NodeName:      name,
		Attributes:    attrs,
		Children:      children,
	}
}

func textNode(backendID cdp.BackendNodeID, value string) *cdp.Node {
	return &cdp.Node{
		NodeID:        cdp.NodeID(backendID),
		BackendNodeID: backendID,
		NodeType:      cdp.NodeTypeText,
		NodeName:      "#text",
		NodeValue:     value,
	}
}

func docNode(backendID cdp.BackendNodeID, children ...*cdp.Node) *cdp.Node {
	return &cdp.Node{
		NodeID:        cdp.NodeID(backendID),
		BackendNodeID: backendID,
		NodeType:      cdp.NodeTypeDocument,
		NodeName:      "#document",
		Children:      children,
	}
}

func fragNode(backendID cdp.BackendNodeID, children ...*cdp.Node) *cdp.Node {
	return &cdp.Node{
		NodeID:        cdp.NodeID(backendID),
		BackendNodeID: backendID,
		NodeType:      cdp.NodeTypeDocumentFragment,
		NodeName:      "#document-fragment",
		Children:      children,
	}
}

func axNode(backendID cdp.BackendNodeID, role, name string) *accessibility.Node {
	n := &accessibility.Node{BackendDOMNodeID: backendID}
	if role != "" {
		n.Role = &accessibility.Value{Value: jsontext.Value(strconv.Quote(role))}
	}
	if name != "" {
		n.Name = &accessibility.Value{Value: jsontext.Value(strconv.Quote(name))}
	}
	return n
}

// snapBuilder assembles a DocumentSnapshot row by row.
type snapBuilder struct {
	dpr    float64
	table  []string
	lookup map[string]domsnapshot.StringIndex
	nodes  *domsnapshot.NodeTreeSnapshot
	layout *domsnapshot.LayoutTreeSnapshot
	rows   int64
}

func newSnapBuilder(dpr float64) *snapBuilder {
	return &snapBuilder{
		dpr:    dpr,
		lookup: make(map[string]domsnapshot.StringIndex),
		nodes: &domsnapshot.NodeTreeSnapshot{
			IsClickable: &domsnapshot.RareBooleanData{},
		},
		layout: &domsnapshot.LayoutTreeSnapshot{
			StackingContexts: &domsnapshot.RareBooleanData{},
		},
	}
}

func (sb *snapBuilder) intern(s string) domsnapshot.StringIndex {
	if i, ok := sb.lookup[s]; ok {
		return i
	}
	i := domsnapshot.StringIndex(len(sb.table))
	sb.table = append(sb.table, s)
	sb.lookup[s] = i
	return i
}

type layoutOpts struct {
	bounds    [4]float64 // CSS px; scaled up by dpr on the wire
	style     map[string]string
	client    *[4]float64
	scroll    *[4]float64
	paint     int64
	stacking  bool
	clickable bool
}

// addBare records a snapshot node with no layout (hidden or inline).
func (sb *snapBuilder) addBare(backendID cdp.BackendNodeID) {
	sb.nodes.BackendNodeID = append(sb.nodes.BackendNodeID, backendID)
	sb.rows++
}

func (sb *snapBuilder) add(backendID cdp.BackendNodeID, lo layoutOpts) {
	nodeIdx := sb.rows
	sb.nodes.BackendNodeID = append(sb.nodes.BackendNodeID, backendID)
	sb.rows++
	if lo.clickable {
		sb.nodes.IsClickable.Index = append(sb.nodes.IsClickable.Index, nodeIdx)
	}

	row := int64(len(sb.layout.NodeIndex))
	sb.layout.NodeIndex = append(sb.layout.NodeIndex, nodeIdx)
	sb.layout.Bounds = append(sb.layout.Bounds, sb.rect(&lo.bounds))
	sb.layout.ClientRects = append(sb.layout.ClientRects, sb.rect(lo.client))
	sb.layout.ScrollRects = append(sb.layout.ScrollRects, sb.rect(lo.scroll))
	sb.layout.PaintOrders = append(sb.layout.PaintOrders, lo.paint)
	if lo.stacking {
		sb.layout.StackingContexts.Index = append(sb.layout.StackingContexts.Index, row)
	}

	styleDefaults := map[string]string{
		"display": "block", "visibility": "visible", "opacity": "1",
		"cursor": "auto", "overflow-x": "visible", "overflow-y": "visible",
	}
	styleRow := make(domsnapshot.ArrayOfStrings, len(ComputedStyleKeys))
	for i, key := range ComputedStyleKeys {
		v := styleDefaults[key]
		if ov, ok := lo.style[key]; ok {
			v = ov
		}
		styleRow[i] = int64(sb.intern(v))
	}
	sb.layout.Styles = append(sb.layout.Styles, styleRow)
}

func (sb *snapBuilder) rect(r *[4]float64) domsnapshot.Rectangle {
	if r == nil {
		return domsnapshot.Rectangle{}
	}
	return domsnapshot.Rectangle{r[0] * sb.dpr, r[1] * sb.dpr, r[2] * sb.dpr, r[3] * sb.dpr}
}

func (sb *snapBuilder) build() ([]*domsnapshot.DocumentSnapshot, []string) {
	return []*domsnapshot.DocumentSnapshot{{Nodes: sb.nodes, Layout: sb.layout}}, sb.table
}

// fixtureSnapshot builds the standard test page:
//
//	#document > html > body
//	  button#send "Send"
//	  a[href=/docs] "Docs"
//	  div[style=display:none] > a[href=/hidden]
//	  input[type=text]
//	  div (shadow host) -> #fragment > button "Shadow"
//	  iframe -> #document > html > body > a[href=/framed]
func fixtureSnapshot() *PageSnapshot {
	return buildFixture(false)
}

// fixtureSnapshotGrown is the same page with one extra button appended
// to the body, for change-detection tests.
func fixtureSnapshotGrown() *PageSnapshot {
	return buildFixture(true)
}

func buildFixture(grown bool) *PageSnapshot {
	sendText := textNode(5, "Send")
	button := elem(4, "BUTTON", []string{"id", "send"}, sendText)
	link := elem(6, "A", []string{"href", "/docs"}, textNode(7, "Docs"))
	hiddenLink := elem(9, "A", []string{"href", "/hidden"})
	hiddenDiv := elem(8, "DIV", []string{"style", "display:none"}, hiddenLink)
	input := elem(10, "INPUT", []string{"type", "text"})

	shadowButton := elem(13, "BUTTON", nil, textNode(19, "Shadow"))
	host := elem(11, "DIV", []string{"class", "widget"})
	host.ShadowRoots = []*cdp.Node{fragNode(12, shadowButton)}

	framedLink := elem(18, "A", []string{"href", "/framed"})
	frameBody := elem(17, "BODY", nil, framedLink)
	frameHTML := elem(16, "HTML", nil, frameBody)
	iframe := elem(14, "IFRAME", nil)
	iframe.ContentDocument = docNode(15, frameHTML)
	iframe.FrameID = cdp.FrameID("frame-2")

	body := elem(3, "BODY", nil, button, link, hiddenDiv, input, host, iframe)
	if grown {
		body.Children = append(body.Children, elem(20, "BUTTON", []string{"id", "extra"}))
	}
	html := elem(2, "HTML", nil, body)
	document := docNode(1, html)
	document.FrameID = cdp.FrameID("frame-1")

	sb := newSnapBuilder(2)
	sb.add(2, layoutOpts{bounds: [4]float64{0, 0, 1280, 2000}, paint: 1})
	sb.add(3, layoutOpts{bounds: [4]float64{0, 0, 1280, 2000}, paint: 2})
	sb.add(4, layoutOpts{bounds: [4]float64{10, 10, 80, 30}, paint: 5, clickable: true})
	sb.add(6, layoutOpts{bounds: [4]float64{10, 60, 120, 20}, paint: 6, clickable: true})
	sb.add(8, layoutOpts{style: map[string]string{"display": "none"}})
	sb.addBare(9)
	sb.add(10, layoutOpts{bounds: [4]float64{10, 100, 200, 24}, paint: 7})
	sb.add(11, layoutOpts{bounds: [4]float64{10, 140, 300, 80}, paint: 8})
	sb.add(13, layoutOpts{bounds: [4]float64{20, 150, 100, 30}, paint: 9, clickable: true})
	sb.add(14, layoutOpts{bounds: [4]float64{10, 240, 400, 300}, paint: 10})
	sb.add(16, layoutOpts{bounds: [4]float64{10, 240, 400, 300}, paint: 11})
	sb.add(17, layoutOpts{bounds: [4]float64{10, 240, 400, 300}, paint: 12})
	sb.add(18, layoutOpts{bounds: [4]float64{20, 250, 150, 20}, paint: 13, clickable: true})
	if grown {
		sb.add(20, layoutOpts{bounds: [4]float64{10, 560, 80, 30}, paint: 14, clickable: true})
	}
	docs, table := sb.build()

	return &PageSnapshot{
		TargetID: "tab-fixture",
		Document: document,
		AXNodes: []*accessibility.Node{
			axNode(4, "button", "Send"),
			axNode(6, "link", "Docs"),
			axNode(13, "button", "Shadow"),
			axNode(18, "link", "Framed"),
		},
		Documents:        docs,
		Strings:          table,
		DevicePixelRatio: 2,
	}
}
