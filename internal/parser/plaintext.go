package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// inlineMarkdown only knows paragraphs, so a line such as "1. 加盐" or
// "# 注意" keeps its leading text instead of becoming a list or heading.
var inlineMarkdown = goldmark.New(goldmark.WithParser(gmparser.NewParser(
	gmparser.WithBlockParsers(util.Prioritized(gmparser.NewParagraphParser(), 1000)),
	gmparser.WithInlineParsers(gmparser.DefaultInlineParsers()...),
)))

// PlainText renders one line of inline Markdown as plain text. Emphasis and
// code markers are dropped, links keep their label, images keep their alt
// text and inline HTML is reduced to its text.
func PlainText(s string) string {
	if s == "" {
		return s
	}
	src := []byte(s)
	doc := inlineMarkdown.Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	collectText(doc, src, &buf)
	return strings.TrimSpace(html.UnescapeString(buf.String()))
}

func collectText(n ast.Node, src []byte, buf *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.AutoLink:
			buf.Write(node.Label(src))
		case *ast.RawHTML:
			buf.WriteString(htmlText(segmentsText(node.Segments, src)))
		case *ast.HTMLBlock:
			buf.WriteString(htmlText(segmentsText(node.Lines(), src)))
		default:
			collectText(c, src, buf)
		}
	}
}

func segmentsText(segs *text.Segments, src []byte) string {
	var buf strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

// htmlText keeps text tokens and image alt text from an HTML fragment.
func htmlText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var buf strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return buf.String()
		case html.TextToken:
			buf.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "br":
				buf.WriteByte(' ')
			case "img":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "alt" {
						buf.Write(val)
					}
				}
			}
		}
	}
}
