// Package search provides multi-angle web research: a base query is
// fanned out into several search angles, the raw results are gathered
// in parallel, and a language model synthesizes them into one finding
// with a coverage-based confidence score.
package search

import "context"

// SourceResult is one raw search hit attributed to the angle that
// produced it.
type SourceResult struct {
	Query   string `json:"query"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Result is the synthesized outcome of a multi-angle search.
type Result struct {
	Query      string         `json:"query"`
	Synthesis  string         `json:"synthesis"`
	Sources    []SourceResult `json:"sources"`
	Confidence float64        `json:"confidence"`
}

// Searcher executes one web search query. Implementations wrap a
// concrete search API.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SourceResult, error)
}

// DisabledSearcher stands in when no search API is configured: every
// angle yields nothing, so syntheses carry confidence 0 and
// investigations rely on filing context alone.
type DisabledSearcher struct{}

func (DisabledSearcher) Search(ctx context.Context, query string) ([]SourceResult, error) {
	return nil, nil
}
