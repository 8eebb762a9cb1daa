package crossref

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	jatsSub = regexp.MustCompile(`<jats:sub>\s*(\d+)\s*</jats:sub>`)
	jatsSup = regexp.MustCompile(`<jats:sup>\s*(\d+)\s*</jats:sup>`)
)

// CleanAbstract strips JATS/HTML markup from an abstract. Numeric subscripts
// become plain digits (CO<jats:sub>2</jats:sub> -> CO2) and numeric
// superscripts become ^N. Entities are decoded and whitespace is collapsed.
func CleanAbstract(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	s = jatsSub.ReplaceAllString(s, "$1")
	s = jatsSup.ReplaceAllString(s, "^$1")

	text := html.UnescapeString(s)
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " ")
}
