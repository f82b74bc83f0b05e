package enrichment

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxSummaryParagraphs   = 3
	minParagraphCharacters = 50
	maxSummaryCharacters   = 300
	truncationSuffix       = "..."
)

// Summarizer turns a parsed page into a short summary. It never fails;
// an empty derivation yields NoSummary.
type Summarizer interface {
	Summarize(ctx context.Context, document *goquery.Document) string
}

// HeuristicSummarizer prefers the page's meta description and otherwise
// stitches together its first substantial paragraphs.
type HeuristicSummarizer struct{}

// NewHeuristicSummarizer constructs the default summarizer.
func NewHeuristicSummarizer() *HeuristicSummarizer {
	return &HeuristicSummarizer{}
}

func (HeuristicSummarizer) Summarize(_ context.Context, document *goquery.Document) string {
	if summary := SummarizeDocument(document); summary != "" {
		return summary
	}
	return NoSummary
}

// SummarizeDocument applies the description and paragraph rules and returns
// "" when nothing qualifies.
func SummarizeDocument(document *goquery.Document) string {
	if document == nil {
		return ""
	}
	if description := metaContent(document, `meta[name="description"]`); description != "" {
		return description
	}
	if description := metaContent(document, `meta[property="og:description"]`); description != "" {
		return description
	}

	paragraphs := make([]string, 0, maxSummaryParagraphs)
	document.Find("p").EachWithBreak(func(index int, selection *goquery.Selection) bool {
		if index >= maxSummaryParagraphs {
			return false
		}
		text := strings.TrimSpace(selection.Text())
		if utf8.RuneCountInString(text) > minParagraphCharacters {
			paragraphs = append(paragraphs, text)
		}
		return true
	})
	return truncateSummary(strings.Join(paragraphs, " "))
}

func truncateSummary(joined string) string {
	runes := []rune(joined)
	if len(runes) < maxSummaryCharacters {
		return joined
	}
	return string(runes[:maxSummaryCharacters]) + truncationSuffix
}

func metaContent(document *goquery.Document, selector string) string {
	content, _ := document.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}
