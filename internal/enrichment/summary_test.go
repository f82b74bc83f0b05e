package enrichment

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarizeDocumentPrefersDescriptions(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "meta description",
			html:     `<meta name="description" content="Named description"><meta property="og:description" content="Graph description">`,
			expected: "Named description",
		},
		{
			name:     "open graph description when named description missing",
			html:     `<meta property="og:description" content="Graph description">`,
			expected: "Graph description",
		},
		{
			name:     "empty named description falls through",
			html:     `<meta name="description" content=""><meta property="og:description" content="Graph description">`,
			expected: "Graph description",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			summary := SummarizeDocument(mustDocument(t, testCase.html))
			if summary != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, summary)
			}
		})
	}
}

func TestSummarizeDocumentUsesFirstSubstantialParagraphs(t *testing.T) {
	long := func(prefix string) string {
		return prefix + strings.Repeat("x", 60-len(prefix))
	}
	html := "<body>" +
		"<p>too short</p>" +
		"<p>" + long("second") + "</p>" +
		"<p>  " + long("third") + "  </p>" +
		"<p>" + long("fourth") + "</p>" +
		"</body>"

	summary := SummarizeDocument(mustDocument(t, html))
	expected := long("second") + " " + long("third")
	if summary != expected {
		t.Fatalf("expected %q, got %q", expected, summary)
	}
}

func TestSummarizeDocumentTruncatesLongText(t *testing.T) {
	paragraph := strings.Repeat("a", 200)
	html := "<p>" + paragraph + "</p><p>" + paragraph + "</p>"

	summary := SummarizeDocument(mustDocument(t, html))
	if !strings.HasSuffix(summary, truncationSuffix) {
		t.Fatalf("expected ellipsis suffix, got %q", summary)
	}
	if count := utf8.RuneCountInString(summary); count != maxSummaryCharacters+len(truncationSuffix) {
		t.Fatalf("expected %d characters, got %d", maxSummaryCharacters+len(truncationSuffix), count)
	}
}

func TestSummarizeDocumentTruncatesByCharacters(t *testing.T) {
	paragraph := strings.Repeat("é", 200)
	html := "<p>" + paragraph + "</p><p>" + paragraph + "</p>"

	summary := SummarizeDocument(mustDocument(t, html))
	if !utf8.ValidString(summary) {
		t.Fatalf("expected valid utf-8 summary")
	}
	if count := utf8.RuneCountInString(summary); count != maxSummaryCharacters+len(truncationSuffix) {
		t.Fatalf("expected %d characters, got %d", maxSummaryCharacters+len(truncationSuffix), count)
	}
}

func TestHeuristicSummarizerReportsMissingSummary(t *testing.T) {
	document := mustDocument(t, "<body><p>short</p><p>also short</p></body>")
	summary := NewHeuristicSummarizer().Summarize(context.Background(), document)
	if summary != NoSummary {
		t.Fatalf("expected %q, got %q", NoSummary, summary)
	}
}
