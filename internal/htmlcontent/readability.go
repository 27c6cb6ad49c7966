package htmlcontent

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadabilityFallback runs a readability-style extractor on the full
// document HTML. Use only when selector-based extraction yielded empty or
// negligible content. Returns empty strings if readability fails or
// yields nothing.
func ReadabilityFallback(documentHTML, pageURL string) (title, text string) {
	documentHTML = strings.TrimSpace(documentHTML)
	if documentHTML == "" {
		return "", ""
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}

	article, err := readability.FromReader(strings.NewReader(documentHTML), parsedURL)
	if err != nil {
		return "", ""
	}

	return strings.TrimSpace(article.Title), Normalize(article.TextContent)
}
