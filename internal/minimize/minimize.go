// Package minimize strips scraped HTML down to the markup the extraction
// agent actually needs: scripts, styles, SVGs, comments, inline data blobs,
// and almost all attributes are removed before the page is handed to the LLM.
package minimize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// removeSelectors lists elements that never carry product information.
var removeSelectors = []string{
	"svg", "style", "form", "button", "script", "select",
	"link", "pages-css", "noscript",
}

// allowedAttrs are the only attributes kept on non-meta elements.
var allowedAttrs = map[string]struct{}{
	"src":   {},
	"href":  {},
	"title": {},
}

var (
	tabsRe           = regexp.MustCompile(`\t+`)
	newlinesRe       = regexp.MustCompile(`\n+`)
	interTagSpaceRe  = regexp.MustCompile(`>\s+<`)
	tagShortenings   = [][2]string{{"</span>", "</s>"}, {"</div>", "</d>"}, {"<span>", "<s>"}, {"<div>", "<d>"}}
)

// HTML minimizes a rendered page. Empty input yields empty output; parse
// failures fall back to returning the trimmed input so the caller still has
// something to extract from.
func HTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	doc.Find(strings.Join(removeSelectors, ",")).Remove()

	for _, root := range doc.Nodes {
		stripNode(root)
	}

	// Elements whose src is an inline data URL are typically base64-encoded
	// images; they dominate byte count and carry nothing extractable.
	doc.Find("[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && strings.HasPrefix(src, "data") {
			s.Remove()
		}
	})

	out, err := doc.Html()
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(compact(out))
}

// stripNode walks the node tree removing comments and disallowed attributes.
func stripNode(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
			continue
		}
		stripNode(child)
	}

	if n.Type != html.ElementNode || n.Data == "meta" {
		return
	}
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if _, ok := allowedAttrs[attr.Key]; ok {
			kept = append(kept, attr)
		}
	}
	n.Attr = kept
}

// compact removes whitespace the serializer left behind and rewrites the two
// most common container tags to single-letter forms to save agent tokens.
func compact(s string) string {
	s = tabsRe.ReplaceAllString(s, "")
	s = newlinesRe.ReplaceAllString(s, "")
	for _, pair := range tagShortenings {
		s = strings.ReplaceAll(s, pair[0], pair[1])
	}
	return interTagSpaceRe.ReplaceAllString(s, "><")
}
