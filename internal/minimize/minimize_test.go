package minimize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTMLEmptyInput(t *testing.T) {
	require.Equal(t, "", HTML(""))
	require.Equal(t, "", HTML("   \n\t"))
}

func TestHTMLRemovesScriptsAndStyles(t *testing.T) {
	raw := `<html><head><style>.x{color:red}</style><script>alert("hi");</script></head><body>Hello</body></html>`
	out := HTML(raw)
	require.NotContains(t, out, "script")
	require.NotContains(t, out, "alert")
	require.NotContains(t, out, "style")
	require.Contains(t, out, "Hello")
}

func TestHTMLRemovesComments(t *testing.T) {
	out := HTML(`<html><body><!-- tracking pixel -->Hello</body></html>`)
	require.NotContains(t, out, "tracking pixel")
	require.NotContains(t, out, "<!--")
	require.Contains(t, out, "Hello")
}

func TestHTMLRemovesUnwantedElements(t *testing.T) {
	raw := `<html><body>` +
		`<svg><path/></svg>` +
		`<form><input/></form>` +
		`<button>Buy</button>` +
		`<select><option>1</option></select>` +
		`<noscript>enable js</noscript>` +
		`<p>Product text</p></body></html>`
	out := HTML(raw)
	for _, tag := range []string{"<svg", "<form", "<button", "<select", "<noscript"} {
		require.NotContains(t, out, tag)
	}
	require.Contains(t, out, "Product text")
}

func TestHTMLStripsAttributesExceptAllowed(t *testing.T) {
	raw := `<html><body><a href="/p/1" class="btn" data-track="x" title="Widget">Widget</a>` +
		`<img src="/img/w.jpg" alt="widget" width="400"/></body></html>`
	out := HTML(raw)
	require.Contains(t, out, `href="/p/1"`)
	require.Contains(t, out, `title="Widget"`)
	require.Contains(t, out, `src="/img/w.jpg"`)
	require.NotContains(t, out, "class=")
	require.NotContains(t, out, "data-track")
	require.NotContains(t, out, "alt=")
	require.NotContains(t, out, "width=")
}

func TestHTMLKeepsMetaAttributes(t *testing.T) {
	raw := `<html><head><meta name="description" content="Widgets for sale"/></head><body>x</body></html>`
	out := HTML(raw)
	require.Contains(t, out, `name="description"`)
	require.Contains(t, out, `content="Widgets for sale"`)
}

func TestHTMLDropsDataURLElements(t *testing.T) {
	raw := `<html><body><img src="data:image/png;base64,iVBORw0KGgo="/><img src="/real.jpg"/></body></html>`
	out := HTML(raw)
	require.NotContains(t, out, "base64")
	require.Contains(t, out, `src="/real.jpg"`)
}

func TestHTMLShortensSpanAndDivTags(t *testing.T) {
	out := HTML(`<html><body><span>Test</span><div>Content</div></body></html>`)
	require.Contains(t, out, "<s>")
	require.Contains(t, out, "</s>")
	require.Contains(t, out, "<d>")
	require.Contains(t, out, "</d>")
	require.NotContains(t, out, "<span>")
	require.NotContains(t, out, "<div>")
}

func TestHTMLCollapsesWhitespace(t *testing.T) {
	out := HTML("<html><body>\n\t<p>a</p>\n\n\t\t<p>b</p>\n</body></html>")
	require.NotContains(t, out, "\n")
	require.NotContains(t, out, "\t")
	require.Contains(t, out, "<p>a</p><p>b</p>")
}

func TestHTMLShrinksRealisticPage(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`<html><head><script src="/app.js"></script><style>body{margin:0}</style></head><body>`)
	for i := 0; i < 50; i++ {
		sb.WriteString(`<div class="product-card" data-id="123"><span class="name">Widget</span></div>` + "\n")
	}
	sb.WriteString(`</body></html>`)
	raw := sb.String()

	out := HTML(raw)
	require.Less(t, len(out), len(raw))
	require.Contains(t, out, "Widget")
}

func TestText(t *testing.T) {
	html := `<html><body><h1 class="title"> Widget 9000 </h1><p>desc</p></body></html>`
	require.Equal(t, "Widget 9000", Text(html, "h1.title"))
	require.Equal(t, "", Text(html, ".missing"))
}

func TestTexts(t *testing.T) {
	html := `<html><body><li>a</li><li> b </li></body></html>`
	require.Equal(t, []string{"a", "b"}, Texts(html, "li"))
	require.Nil(t, Texts(html, ".missing"))
}

func TestAttr(t *testing.T) {
	html := `<html><body><a href="/p/1">x</a></body></html>`
	v, ok := Attr(html, "a", "href")
	require.True(t, ok)
	require.Equal(t, "/p/1", v)

	_, ok = Attr(html, "a", "rel")
	require.False(t, ok)
}

func TestAttrs(t *testing.T) {
	html := `<html><body><img src="/1.jpg"/><img src="/2.jpg"/><img/></body></html>`
	require.Equal(t, []string{"/1.jpg", "/2.jpg"}, Attrs(html, "img", "src"))
}
