// Package enrichment derives display metadata and a short summary for a
// bookmarked page. Nothing in this package returns an enrichment error to its
// callers; failures degrade to fixed placeholder values.
package enrichment

import "errors"

const (
	// FallbackTitle is used when the page has no usable title or cannot be fetched.
	FallbackTitle = "Untitled"
	// NoSummary is used when the page was fetched but no summary could be derived.
	NoSummary = "No summary available"
	// FailedSummary is used when the page could not be fetched or parsed.
	FailedSummary = "Failed to generate summary"
)

// ErrFetchFailed marks an unreachable page, a non-success status, or an unparsable body.
var ErrFetchFailed = errors.New("enrichment: fetch failed")

// Metadata is the extractor output.
type Metadata struct {
	Title   string
	Favicon string
}

// Enrichment is the combined derivation persisted on a bookmark.
type Enrichment struct {
	Title   string `json:"title"`
	Favicon string `json:"favicon"`
	Summary string `json:"summary"`
	// Fetched reports whether the values came from a parsed document rather than fallbacks.
	Fetched bool `json:"-"`
}

// FallbackMetadata returns the extractor's failure value.
func FallbackMetadata() Metadata {
	return Metadata{Title: FallbackTitle, Favicon: ""}
}

// FallbackEnrichment returns the values stored when the page cannot be fetched.
func FallbackEnrichment() Enrichment {
	return Enrichment{Title: FallbackTitle, Favicon: "", Summary: FailedSummary}
}
