package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"filing_analyst/pkg/core/vectorstore/memory"
)

// hashEmbedder is a deterministic stand-in for the embedding service:
// similar strings get similar vectors only by accident, but identical
// strings always embed identically, which is what the indexing and
// retrieval tests rely on.
type hashEmbedder struct {
	err error
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if h.err != nil {
		return nil, h.err
	}
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r%31) / 31
	}
	return vec, nil
}

func (h *hashEmbedder) Dimension() int { return 8 }

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *stubProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func (p *stubProvider) AdaptInstructions(raw string) string { return raw }

const sampleFiling = `ITEM 1. Business

Apple designs, manufactures and markets smartphones, personal computers and wearables.

ITEM 1A. Risk Factors

The company's business is subject to intense competition risk in every market it serves.

ITEM 8. Financial Statements

| Year | Revenue |
| --- | --- |
| 2023 | $383,285 |
| 2022 | $394,328 |

Net income for fiscal 2023 was $96,995 million.`

func newTestEngine(provider *stubProvider) (*Engine, *memory.Store) {
	store := memory.NewStore()
	return NewEngine(&hashEmbedder{}, provider, store), store
}

func TestIndexFiling(t *testing.T) {
	engine, store := newTestEngine(&stubProvider{})
	engine.SetChunkSize(120)

	result, err := engine.IndexFiling(context.Background(), sampleFiling, "AAPL", "10-K", "2023-11-03")
	if err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if result.ChunksIndexed == 0 {
		t.Fatal("no chunks indexed")
	}
	if result.ChunksIndexed != store.Count("AAPL") {
		t.Errorf("reported %d chunks, store holds %d", result.ChunksIndexed, store.Count("AAPL"))
	}
	if result.TablesPreserved == 0 {
		t.Error("table chunk not counted")
	}
	if result.SectionsIndexed[SectionRiskFactors] == 0 {
		t.Error("risk factors section missing from index summary")
	}
}

func TestIndexFilingIdempotent(t *testing.T) {
	engine, store := newTestEngine(&stubProvider{})
	engine.SetChunkSize(120)
	ctx := context.Background()

	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("first index failed: %v", err)
	}
	first := store.Count("AAPL")

	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("second index failed: %v", err)
	}
	if got := store.Count("AAPL"); got != first {
		t.Errorf("re-indexing changed vector count %d -> %d", first, got)
	}
}

func TestIndexFilingEmptyText(t *testing.T) {
	engine, _ := newTestEngine(&stubProvider{})
	if _, err := engine.IndexFiling(context.Background(), "", "AAPL", "10-K", "2023-11-03"); err == nil {
		t.Fatal("expected error for empty filing text")
	}
}

func TestIndexFilingEmbedderFailure(t *testing.T) {
	store := memory.NewStore()
	engine := NewEngine(&hashEmbedder{err: errors.New("quota exhausted")}, &stubProvider{}, store)
	if _, err := engine.IndexFiling(context.Background(), sampleFiling, "AAPL", "10-K", "2023-11-03"); err == nil {
		t.Fatal("expected embedding failure to abort indexing")
	}
	if store.Count("AAPL") != 0 {
		t.Error("vectors written despite embedding failure")
	}
}

func TestQueryGroundedAnswer(t *testing.T) {
	provider := &stubProvider{response: "Revenue was $383,285 million in fiscal 2023."}
	engine, _ := newTestEngine(provider)
	engine.SetChunkSize(120)
	ctx := context.Background()

	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	result, err := engine.Query(ctx, QueryRequest{Question: "What was total revenue?", Ticker: "AAPL", TopK: 3})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if result.Answer != provider.response {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.ContextUsed != 3 || len(result.Sources) != 3 {
		t.Errorf("context used = %d, sources = %d", result.ContextUsed, len(result.Sources))
	}
	if len(result.SectionsSearched) == 0 {
		t.Error("no sections recorded")
	}
	seen := map[SectionTag]bool{}
	for _, s := range result.SectionsSearched {
		if seen[s] {
			t.Errorf("section %q listed twice", s)
		}
		seen[s] = true
	}

	// The model must receive labeled, separated context and the question.
	if len(provider.prompts) != 1 {
		t.Fatalf("provider called %d times", len(provider.prompts))
	}
	sent := provider.prompts[0]
	if !strings.Contains(sent, "What was total revenue?") {
		t.Error("question missing from prompt")
	}
	if !strings.Contains(sent, "---") {
		t.Error("context separator missing from prompt")
	}
	if !strings.Contains(sent, "[") || !strings.Contains(sent, "]") {
		t.Error("section labels missing from prompt")
	}
}

func TestQuerySectionFilter(t *testing.T) {
	provider := &stubProvider{response: "Competition is the main risk."}
	engine, _ := newTestEngine(provider)
	engine.SetChunkSize(120)
	ctx := context.Background()

	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	result, err := engine.Query(ctx, QueryRequest{
		Question:      "What are the risks?",
		Ticker:        "AAPL",
		TopK:          5,
		SectionFilter: SectionRiskFactors,
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, src := range result.Sources {
		if src.Section != SectionRiskFactors {
			t.Errorf("filter leaked section %q", src.Section)
		}
	}
	if len(result.SectionsSearched) != 1 || result.SectionsSearched[0] != SectionRiskFactors {
		t.Errorf("sections searched = %v", result.SectionsSearched)
	}
}

func TestQueryNoIndexedData(t *testing.T) {
	engine, _ := newTestEngine(&stubProvider{})
	_, err := engine.Query(context.Background(), QueryRequest{Question: "Anything?", Ticker: "TSLA"})
	if !errors.Is(err, ErrNoIndexedData) {
		t.Fatalf("err = %v, want ErrNoIndexedData", err)
	}
}

func TestQueryProviderFailure(t *testing.T) {
	engine, _ := newTestEngine(&stubProvider{err: errors.New("rate limited")})
	engine.SetChunkSize(120)
	ctx := context.Background()
	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	if _, err := engine.Query(ctx, QueryRequest{Question: "What was revenue?", Ticker: "AAPL"}); err == nil {
		t.Fatal("expected provider failure to surface")
	}
}

func TestDeleteFilingPurgesNamespace(t *testing.T) {
	engine, store := newTestEngine(&stubProvider{})
	engine.SetChunkSize(120)
	ctx := context.Background()
	if _, err := engine.IndexFiling(ctx, sampleFiling, "AAPL", "10-K", "2023-11-03"); err != nil {
		t.Fatalf("index failed: %v", err)
	}

	if err := engine.DeleteFiling(ctx, "AAPL"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if store.Count("AAPL") != 0 {
		t.Error("vectors remain after delete")
	}
	if _, err := engine.Query(ctx, QueryRequest{Question: "What was revenue?", Ticker: "AAPL"}); !errors.Is(err, ErrNoIndexedData) {
		t.Errorf("query after delete: err = %v, want ErrNoIndexedData", err)
	}
}

func TestSuggestedQuestions(t *testing.T) {
	engine, _ := newTestEngine(&stubProvider{})
	questions := engine.SuggestedQuestions("AAPL")
	if len(questions) != 7 {
		t.Fatalf("got %d questions", len(questions))
	}
	for _, q := range questions {
		if !strings.Contains(q, "AAPL") {
			t.Errorf("question %q not personalized", q)
		}
	}
}
