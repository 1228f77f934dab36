package policy

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var textBlockTags = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "table": {}, "tr": {}, "td": {}, "th": {},
	"figure": {}, "figcaption": {},
}

// ExtractText strips script/style/nav/header/footer content from raw
// markup and collapses the remainder into newline-separated text blocks
// with blank lines removed.
func ExtractText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("script,style,noscript,iframe,nav,header,footer").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	acc := &textAccumulator{}
	for _, node := range root.Nodes {
		accumulateText(node, acc)
	}
	return collapseLines(acc.b.String())
}

type textAccumulator struct {
	b    strings.Builder
	last byte
}

func (t *textAccumulator) write(s string) {
	if s == "" {
		return
	}
	t.b.WriteString(s)
	t.last = s[len(s)-1]
}

func (t *textAccumulator) newline() {
	if t.last != '\n' && t.b.Len() > 0 {
		t.write("\n")
	}
}

func (t *textAccumulator) space() {
	if t.b.Len() > 0 && t.last != '\n' && t.last != ' ' {
		t.write(" ")
	}
}

func accumulateText(node *html.Node, acc *textAccumulator) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		text := normalizeWhitespace(node.Data)
		if text == "" {
			return
		}
		acc.space()
		acc.write(text)
	case html.ElementNode:
		tag := strings.ToLower(node.Data)
		if tag == "br" {
			acc.newline()
			return
		}
		_, block := textBlockTags[tag]
		if block {
			acc.newline()
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			accumulateText(child, acc)
		}
		if block {
			acc.newline()
		}
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
