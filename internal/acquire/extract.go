package acquire

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// extractArticle runs readability article extraction over raw HTML and
// returns the extracted plain text. Pages readability cannot parse
// (fragments, non-article layouts) fall back to the raw body text.
func extractArticle(html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return bodyText(html), nil
	}

	return article.TextContent, nil
}

// bodyText strips scripts and styles and returns the page's visible
// body text.
func bodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Find("body").Text())
}
