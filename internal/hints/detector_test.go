package hints

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domlens/domlens/internal/config"
	"github.com/domlens/domlens/internal/page"
)

func detectHTML(t *testing.T, src string) []Hint {
	t.Helper()
	doc, err := page.FromHTML(strings.NewReader(src))
	require.NoError(t, err)
	return NewDetector(config.Default().Detection).Detect(doc)
}

func tags(hs []Hint) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.TagName
	}
	return out
}

func TestDetectNativeTags(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<a href="/home">Home</a>
		<button>Send</button>
		<input type="text" value="hello">
		<p>just text</p>
	</body></html>`)

	assert.Equal(t, []string{"a", "button", "input"}, tags(hs))
	assert.Equal(t, "Home", hs[0].LinkText)
	assert.Equal(t, "/home", hs[0].Href)
	assert.Equal(t, "hello", hs[2].LinkText)
}

func TestDetectSkipsZeroSizeElements(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<a href="/a" data-rect="0,0,0,0">collapsed</a>
		<a href="/b">visible</a>
	</body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "/b", hs[0].Href)
}

func TestDetectSkipsHiddenAndTransparent(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<button style="visibility:hidden" data-rect="0,0,50,20">a</button>
		<button style="opacity:0" data-rect="0,30,50,20">b</button>
		<button style="display:none" data-rect="0,60,50,20">c</button>
		<button data-rect="0,90,50,20">d</button>
	</body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "d", hs[0].LinkText)
}

func TestAriaDisabledNeverClickable(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<button aria-disabled>empty value</button>
		<button aria-disabled="true">true</button>
		<button aria-disabled="TRUE">upper</button>
		<button aria-disabled="false">false wins</button>
	</body></html>`)

	require.Len(t, hs, 1, "aria-disabled present or true must suppress the hint even for native tags")
	assert.Equal(t, "false wins", hs[0].LinkText)
}

func TestReadonlyFieldsNotHinted(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<textarea readonly>locked</textarea>
		<input type="text" readonly>
		<input type="search" readonly>
		<input readonly>
		<input type="checkbox" readonly>
		<textarea>free</textarea>
	</body></html>`)

	// readonly only matters on text-like fields; a typeless input
	// defaults to text
	require.Len(t, hs, 2)
	assert.Equal(t, []string{"input", "textarea"}, tags(hs))
	assert.Equal(t, "free", hs[1].LinkText)
}

func TestDisabledAttrIgnoredOnNonFormTags(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<a href="/go" disabled>still a link</a>
		<object disabled data-rect="0,20,50,20"></object>
		<embed disabled data-rect="0,40,50,20">
		<button disabled>no</button>
		<select disabled></select>
	</body></html>`)

	assert.Equal(t, []string{"a", "object", "embed"}, tags(hs))
}

func TestLabelNeedsEnabledControl(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<label id="bare">no control</label>
		<label for="dead">disabled control</label><input id="dead" type="text" disabled>
		<label for="live">enabled control</label><input id="live" type="text">
		<label id="wrapper">wraps <input type="checkbox"></label>
	</body></html>`)

	// only labels tied to an enabled control are clickable
	assert.Equal(t, []string{"label", "input", "label", "input"}, tags(hs))
	assert.Equal(t, "enabled control", hs[0].LinkText)
}

func TestDetectHandlersAndRoles(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<div onclick="go()">inline</div>
		<div data-ng-click="go()">angular</div>
		<span role="MenuItem">role</span>
		<div contenteditable="">editor</div>
		<div tabindex="0">focusable</div>
		<div tabindex="-1">skipped</div>
	</body></html>`)

	require.Len(t, hs, 5)
	assert.True(t, hs[4].SecondClassCitizen, "tabindex>=0 is a second-class signal")
	for _, h := range hs[:4] {
		assert.False(t, h.SecondClassCitizen, "%s should be first class", h.LinkText)
	}
}

func TestJsactionParsing(t *testing.T) {
	cases := []struct {
		attr string
		want bool
	}{
		{"openPanel", true},
		{"click:openPanel", true},
		{"click:ns.openPanel", true},
		{"mouseover:track", false},
		{"click:menu.none", false},
		{"click:menu._", false},
		{"mouseover:track;click:open", true},
		{";", false},
	}
	for _, tc := range cases {
		hs := detectHTML(t, `<html><body><div jsaction="`+tc.attr+`">x</div></body></html>`)
		if tc.want {
			assert.Len(t, hs, 1, "jsaction=%q should be clickable", tc.attr)
		} else {
			assert.Empty(t, hs, "jsaction=%q should not be clickable", tc.attr)
		}
	}
}

func TestScrollableContainers(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<div id="feed" style="overflow-y:auto" data-client-height="200" data-scroll-height="900">long</div>
		<div style="overflow-y:auto" data-client-height="200" data-scroll-height="200">fits</div>
		<div data-client-height="200" data-scroll-height="900">no overflow style</div>
	</body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "Scroll", hs[0].Reason)
}

func TestDetailsReason(t *testing.T) {
	closed := detectHTML(t, `<html><body><details data-rect="0,0,100,20"><summary data-rect="0,0,0,0">s</summary></details></body></html>`)
	open := detectHTML(t, `<html><body><details open data-rect="0,0,100,20"><summary data-rect="0,0,0,0">s</summary></details></body></html>`)

	require.NotEmpty(t, closed)
	require.NotEmpty(t, open)
	assert.Equal(t, "Open/Close", closed[0].Reason)
	assert.Equal(t, "Open/Close", open[0].Reason, "the reason names the toggle, not the current state")
}

func TestBodyScrollHint(t *testing.T) {
	hs := detectHTML(t, `<html><body style="overflow-y:auto" data-client-width="1280" data-client-height="600" data-scroll-height="2400"></body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "body", hs[0].TagName)
	assert.Equal(t, "Scroll", hs[0].Reason)
}

func TestTinyBodyGetsNoScrollHint(t *testing.T) {
	// an overflowing body inside a near-zero frame is not worth a hint
	hs := detectHTML(t, `<html><body style="overflow-y:auto" data-client-width="2" data-client-height="2" data-scroll-height="900"></body></html>`)
	assert.Empty(t, hs)
}

func TestInputLinkTextRules(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<label for="n">Name:</label><input id="n" type="text">
		<input type="file">
		<input type="password" value="secret" placeholder="pw">
		<input type="text" placeholder="Search">
	</body></html>`)

	// the label itself is clickable too; pick out the inputs
	var inputs []Hint
	for _, h := range hs {
		if h.TagName == "input" {
			inputs = append(inputs, h)
		}
	}
	require.Len(t, inputs, 4)
	assert.Equal(t, "Name", inputs[0].LinkText, "label text with trailing colon stripped")
	assert.Equal(t, "Choose File", inputs[1].LinkText)
	assert.Equal(t, "", inputs[2].LinkText, "password value must not leak")
	assert.Equal(t, "Search", inputs[3].LinkText)
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	s := strings.Repeat("é", 20) // 2 bytes per rune
	got := truncate(s, 5)
	assert.Equal(t, strings.Repeat("é", 2), got, "the cut backs up off the split rune")
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "abc", truncate("  abc  ", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestEmptyLinkFallsBackToImageAlt(t *testing.T) {
	hs := detectHTML(t, `<html><body><a href="/logo"><img alt="Logo" data-rect="0,0,0,0"></a></body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "Logo", hs[0].LinkText)
}

func TestImageMapExpandsToAreas(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<img usemap="#nav" data-rect="100,50,300,100">
		<map name="nav">
			<area shape="rect" coords="0,0,100,50" href="/one" alt="One" data-rect="0,0,0,0">
			<area shape="rect" coords="10,10,10,40" href="/zero" alt="ZeroWidth" data-rect="0,0,0,0">
			<area shape="circle" coords="200,50,25" href="/two" title="Two" data-rect="0,0,0,0">
		</map>
	</body></html>`)

	require.Len(t, hs, 2, "zero-area regions are skipped, the img itself gets no hint")
	assert.Equal(t, []string{"area", "area"}, tags(hs))
	assert.Equal(t, "One", hs[0].LinkText)
	assert.Equal(t, Rect{Top: 100, Left: 50, Width: 100, Height: 50, Right: 150, Bottom: 150}, hs[0].Rect)
	assert.Equal(t, "Two", hs[1].LinkText)
	assert.Equal(t, 50.0, hs[1].Rect.Width)
}

func TestWeakButtonClassChildSurvivesClickableContainer(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<div onclick="go()"><span class="button-like">inner</span></div>
	</body></html>`)

	require.Len(t, hs, 2, "a weak child inside a clickable container is its own hint")
	assert.Equal(t, []string{"div", "span"}, tags(hs))
	assert.True(t, hs[1].PossibleFalsePositive)
}

func TestFalsePositiveFilterKeepsStandaloneButtonClass(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<span class="buttonish">standalone</span>
	</body></html>`)

	require.Len(t, hs, 1)
	assert.True(t, hs[0].PossibleFalsePositive)
}

// filterHints builds a hint list from elements in a chosen order so the
// lookback window can be exercised directly.
func filterHints(t *testing.T, src string, flaggedID string, ids ...string) []Hint {
	t.Helper()
	doc, err := page.FromHTML(strings.NewReader(src))
	require.NoError(t, err)
	var hs []Hint
	for _, id := range ids {
		el := doc.ByHTMLID(id)
		require.NotNil(t, el, "no element with id %q", id)
		hs = append(hs, Hint{TagName: el.Tag, PossibleFalsePositive: id == flaggedID, elem: el})
	}
	return hs
}

func TestFalsePositiveFilterDropsContainerOfEarlierHint(t *testing.T) {
	src := `<html><body><div id="wrap" class="buttonbar"><button id="real">Go</button></div></body></html>`
	hs := filterHints(t, src, "wrap", "real", "wrap")

	out := filterFalsePositives(hs, 6, 3)
	require.Len(t, out, 1, "the weak container duplicates the button inside it")
	assert.Equal(t, "button", out[0].TagName)
}

func TestFalsePositiveFilterNeverDropsDescendants(t *testing.T) {
	src := `<html><body><div id="outer" onclick="x()"><span id="weak" class="button">w</span></div></body></html>`
	hs := filterHints(t, src, "weak", "outer", "weak")

	out := filterFalsePositives(hs, 6, 3)
	assert.Len(t, out, 2, "an earlier ancestor hint does not cover its flagged child")
}

func TestFalsePositiveFilterRespectsLookbackWindow(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html><body><div id="wrap" class="buttonbar"><button id="real">Go</button></div>`)
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&sb, `<a id="f%d" href="/x">f</a>`, i)
	}
	sb.WriteString(`</body></html>`)

	// six fillers push the covering button out of the 6-hint window
	hs := filterHints(t, sb.String(), "wrap", "real", "f0", "f1", "f2", "f3", "f4", "f5", "wrap")
	assert.Len(t, filterFalsePositives(hs, 6, 3), 8)

	// with five fillers the button is still inside the window
	hs = filterHints(t, sb.String(), "wrap", "real", "f0", "f1", "f2", "f3", "f4", "wrap")
	assert.Len(t, filterFalsePositives(hs, 6, 3), 6)
}

func TestFalsePositiveFilterRespectsAncestorLimit(t *testing.T) {
	src := `<html><body>
		<div id="deepwrap" class="buttonbar"><div><div><div><button id="deep">Go</button></div></div></div></div>
		<div id="wrap" class="buttonbar"><div><div><button id="mid">Go</button></div></div></div>
	</body></html>`

	// four parent steps from the button is beyond the 3-level walk
	hs := filterHints(t, src, "deepwrap", "deep", "deepwrap")
	assert.Len(t, filterFalsePositives(hs, 6, 3), 2)

	hs = filterHints(t, src, "wrap", "mid", "wrap")
	assert.Len(t, filterFalsePositives(hs, 6, 3), 1)
}

func TestDetectIsIdempotent(t *testing.T) {
	src := `<html><body>
		<a href="/a">one</a><button>two</button>
		<div onclick="x()"><span class="button">dup</span></div>
	</body></html>`
	doc, err := page.FromHTML(strings.NewReader(src))
	require.NoError(t, err)

	det := NewDetector(config.Default().Detection)
	first := det.Detect(doc)
	second := det.Detect(doc)
	assert.Equal(t, first, second, "re-running detection on an unchanged document must not change results")
}

func TestDetectFindsShadowContent(t *testing.T) {
	hs := detectHTML(t, `<html><body>
		<div><template shadowrootmode="open"><button>Shadow button</button></template></div>
	</body></html>`)

	require.Len(t, hs, 1)
	assert.Equal(t, "Shadow button", hs[0].LinkText)
}
