package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextFromHTML renders an HTML body as plain text. Link targets are appended
// after the visible text, one per line, in document order, so that links
// hidden behind anchor text remain discoverable in the text body.
func TextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head").Remove()

	var b strings.Builder
	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			b.WriteString(trimmed)
			b.WriteString("\n")
		}
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			b.WriteString(href)
			b.WriteString("\n")
		}
	})

	return strings.TrimRight(b.String(), "\n"), nil
}
