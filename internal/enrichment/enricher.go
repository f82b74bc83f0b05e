package enrichment

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// EnricherConfig describes the collaborators of Enricher.
type EnricherConfig struct {
	Fetcher    Fetcher
	Summarizer Summarizer
	Logger     *zap.Logger
}

// Enricher fetches a page once and feeds the document to both the metadata
// extractor and the summarizer.
type Enricher struct {
	fetcher    Fetcher
	summarizer Summarizer
	logger     *zap.Logger
}

// NewEnricher constructs an Enricher. A nil fetcher is an error; a nil
// summarizer selects HeuristicSummarizer.
func NewEnricher(cfg EnricherConfig) (*Enricher, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("enrichment: fetcher is required")
	}
	summarizer := cfg.Summarizer
	if summarizer == nil {
		summarizer = NewHeuristicSummarizer()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{fetcher: cfg.Fetcher, summarizer: summarizer, logger: logger}, nil
}

// Enrich returns title, favicon and summary for pageURL. On fetch failure it
// returns FallbackEnrichment.
func (e *Enricher) Enrich(ctx context.Context, pageURL string) (result Enrichment) {
	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.Error("enrichment panicked",
				zap.String("url", pageURL),
				zap.Any("panic", recovered))
			result = FallbackEnrichment()
		}
	}()

	document, ok := e.fetch(ctx, pageURL)
	if !ok {
		return FallbackEnrichment()
	}

	metadata := ExtractMetadataFromDocument(document, pageURL)
	return Enrichment{
		Title:   metadata.Title,
		Favicon: metadata.Favicon,
		Summary: e.summarize(ctx, pageURL, document),
		Fetched: true,
	}
}

// ExtractMetadata is the standalone extractor contract: it never fails and
// returns FallbackMetadata when the page is unavailable.
func (e *Enricher) ExtractMetadata(ctx context.Context, pageURL string) (metadata Metadata) {
	defer func() {
		if recovered := recover(); recovered != nil {
			metadata = FallbackMetadata()
		}
	}()
	document, ok := e.fetch(ctx, pageURL)
	if !ok {
		return FallbackMetadata()
	}
	return ExtractMetadataFromDocument(document, pageURL)
}

// Summarize is the standalone summarizer contract. It returns FailedSummary
// when the page is unavailable.
func (e *Enricher) Summarize(ctx context.Context, pageURL string) (summary string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			summary = FailedSummary
		}
	}()
	document, ok := e.fetch(ctx, pageURL)
	if !ok {
		return FailedSummary
	}
	return e.summarize(ctx, pageURL, document)
}

func (e *Enricher) fetch(ctx context.Context, pageURL string) (*goquery.Document, bool) {
	document, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		e.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	if document == nil {
		return nil, false
	}
	return document, true
}

func (e *Enricher) summarize(ctx context.Context, pageURL string, document *goquery.Document) string {
	summary := e.summarizer.Summarize(ctx, document)
	if summary == "" {
		e.logger.Debug("summarizer returned empty output", zap.String("url", pageURL))
		return NoSummary
	}
	return summary
}
