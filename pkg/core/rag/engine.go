package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/vectorstore"
)

const (
	// minChunkLength filters out noise fragments before embedding.
	minChunkLength = 10
	// upsertBatchSize respects the store's per-request limits.
	upsertBatchSize = 100
	// metadataTextLimit bounds the text excerpt stored per vector.
	metadataTextLimit = 2000
)

// ErrNoIndexedData means the ticker's namespace returned zero matches:
// the filing was never indexed (or was purged), as opposed to a
// transient store error.
var ErrNoIndexedData = errors.New("no indexed data found")

// Engine ties the chunker, classifier, embedding service, vector store
// and language model into the index/query cycle.
type Engine struct {
	embedder  llm.Embedder
	provider  llm.Provider
	store     vectorstore.Store
	chunkSize int
	overlap   int
}

// NewEngine builds an Engine with default chunking parameters.
func NewEngine(embedder llm.Embedder, provider llm.Provider, store vectorstore.Store) *Engine {
	return &Engine{
		embedder:  embedder,
		provider:  provider,
		store:     store,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
}

// SetChunkSize overrides the chunk target size (tests use small sizes).
func (e *Engine) SetChunkSize(size int) {
	e.chunkSize = size
}

// IndexFiling chunks a filing, embeds each surviving chunk and upserts
// the vectors into the ticker's namespace. Vector ids are deterministic
// (ticker_filingType_filingDate_ordinal) so re-indexing the same filing
// overwrites instead of duplicating.
//
// Fails closed: any embedding or store error aborts the call with an
// error; vectors already upserted in earlier batches remain
// (at-least-once, not atomic).
func (e *Engine) IndexFiling(ctx context.Context, filingText, ticker, filingType, filingDate string) (*IndexResult, error) {
	chunks := ChunkFiling(filingText, e.chunkSize, e.overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks generated from filing for %s", ticker)
	}

	vectors := make([]vectorstore.Vector, 0, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Text) < minChunkLength {
			continue
		}

		embedding, err := e.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %d failed: %w", i, err)
		}

		contentType := ClassifyContent(chunk.Text)

		excerpt := chunk.Text
		if len(excerpt) > metadataTextLimit {
			excerpt = excerpt[:metadataTextLimit]
		}

		vectors = append(vectors, vectorstore.Vector{
			ID:     fmt.Sprintf("%s_%s_%s_%d", ticker, filingType, filingDate, i),
			Values: embedding,
			Metadata: vectorstore.Metadata{
				Ticker:      ticker,
				FilingType:  filingType,
				FilingDate:  filingDate,
				ChunkIndex:  i,
				Section:     string(chunk.Section),
				HasTable:    chunk.HasTable,
				ContentType: string(contentType),
				Text:        excerpt,
			},
		})
	}

	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		if err := e.store.Upsert(ctx, ticker, vectors[start:end]); err != nil {
			return nil, fmt.Errorf("upsert batch starting at %d failed: %w", start, err)
		}
	}

	result := &IndexResult{
		Ticker:          ticker,
		FilingType:      filingType,
		ChunksIndexed:   len(vectors),
		SectionsIndexed: make(map[SectionTag]int),
	}
	for _, chunk := range chunks {
		result.SectionsIndexed[chunk.Section]++
		if chunk.HasTable {
			result.TablesPreserved++
		}
	}
	return result, nil
}

// Query embeds the question, runs a filtered similarity search scoped to
// the ticker's namespace, and asks the language model for an answer
// grounded strictly in the retrieved context. Retrieval rank order is
// preserved; there is no re-ranking.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if req.TopK <= 0 {
		req.TopK = 5
	}

	questionEmbedding, err := e.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("embedding question failed: %w", err)
	}

	var filter *vectorstore.Filter
	if req.SectionFilter != "" || req.ContentTypeFilter != "" {
		filter = &vectorstore.Filter{
			Section:     string(req.SectionFilter),
			ContentType: string(req.ContentTypeFilter),
		}
	}

	matches, err := e.store.Query(ctx, req.Ticker, questionEmbedding, req.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoIndexedData, req.Ticker)
	}

	contextChunks := make([]string, 0, len(matches))
	sources := make([]SourceRef, 0, len(matches))
	seenSections := make(map[SectionTag]bool)
	var sectionsSearched []SectionTag

	for _, match := range matches {
		section := SectionTag(match.Metadata.Section)
		if section == "" {
			section = SectionUnknown
		}

		contextChunks = append(contextChunks, fmt.Sprintf("[%s]\n%s", section.Label(), match.Metadata.Text))

		sources = append(sources, SourceRef{
			FilingType:  match.Metadata.FilingType,
			FilingDate:  match.Metadata.FilingDate,
			Section:     section,
			HasTable:    match.Metadata.HasTable,
			ContentType: ContentType(match.Metadata.ContentType),
			ChunkIndex:  match.Metadata.ChunkIndex,
			Score:       match.Score,
		})

		if !seenSections[section] {
			seenSections[section] = true
			sectionsSearched = append(sectionsSearched, section)
		}
	}

	contextBlock := strings.Join(contextChunks, "\n\n---\n\n")

	pt, err := prompt.Get().GetPrompt("rag.grounded_answer")
	if err != nil {
		return nil, fmt.Errorf("prompt library: %w", err)
	}
	userPrompt, err := prompt.Render(pt, map[string]interface{}{
		"Ticker":   req.Ticker,
		"Context":  contextBlock,
		"Question": req.Question,
	})
	if err != nil {
		return nil, err
	}

	answer, err := e.provider.GenerateResponse(ctx, userPrompt, pt.SystemPrompt, map[string]interface{}{
		"temperature": 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &QueryResult{
		Question:         req.Question,
		Answer:           answer,
		Ticker:           req.Ticker,
		Sources:          sources,
		ContextUsed:      len(contextChunks),
		SectionsSearched: sectionsSearched,
	}, nil
}

// DeleteFiling purges every vector in a ticker's namespace.
func (e *Engine) DeleteFiling(ctx context.Context, ticker string) error {
	if err := e.store.DeleteNamespace(ctx, ticker); err != nil {
		return fmt.Errorf("delete namespace %s: %w", ticker, err)
	}
	return nil
}

// SuggestedQuestions returns follow-up questions that work well against
// a freshly indexed filing.
func (e *Engine) SuggestedQuestions(ticker string) []string {
	return []string{
		fmt.Sprintf("What are %s's main revenue streams?", ticker),
		fmt.Sprintf("What are the biggest risk factors for %s?", ticker),
		fmt.Sprintf("How has %s's revenue changed year-over-year?", ticker),
		fmt.Sprintf("What is %s's competitive advantage?", ticker),
		fmt.Sprintf("What are %s's key growth initiatives?", ticker),
		fmt.Sprintf("How much debt does %s have?", ticker),
		fmt.Sprintf("What are the main segments of %s's business?", ticker),
	}
}
