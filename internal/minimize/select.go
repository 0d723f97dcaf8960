package minimize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the trimmed text of the first element matching selector, or
// "" when nothing matches.
func Text(rawHTML, selector string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.Text())
}

// Texts returns the trimmed text of every element matching selector.
func Texts(rawHTML, selector string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// Attr returns the named attribute of the first element matching selector.
// The second return reports whether the element and attribute were found.
func Attr(rawHTML, selector, attribute string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", false
	}
	return doc.Find(selector).First().Attr(attribute)
}

// Attrs returns the named attribute of every matching element that has it.
func Attrs(rawHTML, selector, attribute string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var out []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attribute); ok {
			out = append(out, v)
		}
	})
	return out
}
