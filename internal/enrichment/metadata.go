package enrichment

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var faviconSelectors = []string{
	`link[rel="icon"]`,
	`link[rel="shortcut icon"]`,
	`link[rel="apple-touch-icon"]`,
}

// ExtractMetadataFromDocument derives title and favicon from a parsed page.
// pageURL must be the address the document was fetched from.
func ExtractMetadataFromDocument(document *goquery.Document, pageURL string) Metadata {
	if document == nil {
		return FallbackMetadata()
	}
	return Metadata{
		Title:   extractTitle(document),
		Favicon: extractFavicon(document, pageURL),
	}
}

func extractTitle(document *goquery.Document) string {
	if ogTitle, ok := document.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if trimmed := strings.TrimSpace(ogTitle); trimmed != "" {
			return trimmed
		}
	}
	if title := strings.TrimSpace(document.Find("title").First().Text()); title != "" {
		return title
	}
	return FallbackTitle
}

func extractFavicon(document *goquery.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ""
	}
	for _, selector := range faviconSelectors {
		href, ok := document.Find(selector).First().Attr("href")
		if !ok {
			continue
		}
		href = strings.TrimSpace(href)
		if href == "" {
			continue
		}
		return resolveFavicon(base, href)
	}
	return origin(base) + "/favicon.ico"
}

// resolveFavicon makes root-relative, protocol-relative and path-relative
// hrefs absolute against the page URL.
func resolveFavicon(base *url.URL, href string) string {
	reference, err := url.Parse(href)
	if err != nil {
		return href
	}
	if reference.IsAbs() {
		return href
	}
	return base.ResolveReference(reference).String()
}

func origin(base *url.URL) string {
	return base.Scheme + "://" + base.Host
}
