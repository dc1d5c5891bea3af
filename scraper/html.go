package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractHTML drops script, style and noscript content, replaces every tag with
// whitespace and collapses whitespace runs.
func ExtractHTML(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.StartTagToken:
			if isHidden(z) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if isHidden(z) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isHidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style", "noscript":
		return true
	}
	return false
}
