// Package htmlcontent extracts the main text block from newsroom HTML.
//
// Extraction is heuristic and best-effort: given an ordered list of
// structural selectors, the first match with enough text wins, and the
// whole document is the fallback. The same document and selector list
// always produce the same output.
package htmlcontent

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MinContentLength is the floor below which a selector match is treated
// as navigation chrome rather than article content.
const MinContentLength = 100

// nonContentSelectors lists subtrees stripped before extraction.
const nonContentSelectors = "script, style, nav, header, footer, aside, form, button, iframe, noscript"

// DefaultSelectors cover the content containers seen across police
// newsroom layouts. Sources may override with their own ordered list.
var DefaultSelectors = []string{
	"article",
	"main",
	".content",
	"#content",
	".main-content",
	".article-content",
	".post-content",
	".entry-content",
}

// Extract strips non-content subtrees from doc, then returns the
// whitespace-normalized text of the first selector match longer than
// MinContentLength. When no selector qualifies it falls back to the
// whole-document text.
func Extract(doc *goquery.Document, selectors []string) string {
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}

	doc.Find(nonContentSelectors).Remove()

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := Normalize(blockText(sel))
		if len(text) > MinContentLength {
			return text
		}
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		return Normalize(blockText(body))
	}

	return Normalize(blockText(doc.Selection))
}

// ExtractFromHTML parses raw HTML and extracts its main text.
func ExtractFromHTML(rawHTML string, selectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}
	return Extract(doc, selectors), nil
}

// blockElements are elements that terminate a line of visible text.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "table": true,
	"section": true, "article": true, "blockquote": true, "br": true,
	"figcaption": true, "dt": true, "dd": true,
}

// blockText renders a selection as text with newlines at block boundaries,
// so paragraphs survive as separate lines.
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range sel.Nodes {
		writeNodeText(node, &sb)
	}
	return sb.String()
}

func writeNodeText(node *html.Node, sb *strings.Builder) {
	if node.Type == html.TextNode {
		sb.WriteString(node.Data)
		return
	}
	if node.Type != html.ElementNode && node.Type != html.DocumentNode {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeNodeText(child, sb)
	}
	if node.Type == html.ElementNode && blockElements[node.Data] {
		sb.WriteString("\n")
	}
}

var (
	multiSpace    = regexp.MustCompile(` +`)
	multiBlankRun = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Normalize cleans extracted text: tabs become spaces, runs of spaces
// collapse, each line is trimmed, and runs of blank lines collapse to a
// single blank line.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpace.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	text = multiBlankRun.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
