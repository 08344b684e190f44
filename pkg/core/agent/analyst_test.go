package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/metrics"
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/search"
)

type mockSource struct {
	FetchFilingFunc func(ctx context.Context, ticker, filingType string) (*ingest.Filing, error)
}

func (m *mockSource) FetchFiling(ctx context.Context, ticker, filingType string) (*ingest.Filing, error) {
	return m.FetchFilingFunc(ctx, ticker, filingType)
}

type mockEngine struct {
	IndexFilingFunc func(ctx context.Context, filingText, ticker, filingType, filingDate string) (*rag.IndexResult, error)
	QueryFunc       func(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
}

func (m *mockEngine) IndexFiling(ctx context.Context, filingText, ticker, filingType, filingDate string) (*rag.IndexResult, error) {
	return m.IndexFilingFunc(ctx, filingText, ticker, filingType, filingDate)
}

func (m *mockEngine) Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error) {
	return m.QueryFunc(ctx, req)
}

type mockExtractor struct {
	values map[string]float64
}

func (m *mockExtractor) ExtractMetric(ctx context.Context, metricName, ticker string) (*metrics.Result, error) {
	key, def := metrics.Resolve(metricName)
	v, ok := m.values[key]
	if !ok {
		return &metrics.Result{MetricName: key, Unit: def.Unit, Ticker: ticker}, nil
	}
	return &metrics.Result{
		MetricName:    key,
		Value:         &v,
		RawValue:      "extracted",
		Unit:          def.Unit,
		SourceSection: rag.SectionFinancialStatements,
		Confidence:    0.9,
		Ticker:        ticker,
	}, nil
}

type mockMarketSearcher struct {
	confidence float64
	synthesis  string
	err        error
}

func (m *mockMarketSearcher) MultiAngleSearch(ctx context.Context, query string) (*search.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &search.Result{Query: query, Synthesis: m.synthesis, Confidence: m.confidence}, nil
}

func healthySource() *mockSource {
	return &mockSource{
		FetchFilingFunc: func(ctx context.Context, ticker, filingType string) (*ingest.Filing, error) {
			return &ingest.Filing{
				Ticker:      ticker,
				FilingType:  filingType,
				FilingDate:  "2024-01-31",
				CompanyName: "Test Corp",
				FullText:    "ITEM 1. Business\n\nTest Corp sells widgets.",
			}, nil
		},
	}
}

func quietEngine() *mockEngine {
	return &mockEngine{
		IndexFilingFunc: func(ctx context.Context, filingText, ticker, filingType, filingDate string) (*rag.IndexResult, error) {
			return &rag.IndexResult{Ticker: ticker, ChunksIndexed: 3}, nil
		},
		QueryFunc: func(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error) {
			return &rag.QueryResult{Answer: "Stable business."}, nil
		},
	}
}

func fullBattery() map[string]float64 {
	return map[string]float64{
		"revenue":          394e9,
		"net_income":       97e9,
		"operating_margin": 10,
		"gross_margin":     43,
		"revenue_growth":   5,
		"eps":              6.1,
		"total_debt":       100e9,
		"cash":             60e9,
		"roe":              30,
	}
}

func TestRunHappyPathConcludesHold(t *testing.T) {
	analyst := NewAnalyst("aapl", DefaultConfig(), healthySource(), quietEngine(),
		&mockExtractor{values: fullBattery()}, &mockMarketSearcher{confidence: 0.8, synthesis: "Steady sector."}, nil)

	report := analyst.Run(context.Background())
	if report.Status != "success" {
		t.Fatalf("status = %q, err = %q", report.Status, report.Error)
	}
	if report.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", report.Ticker)
	}
	if report.Recommendation != "HOLD - Balanced risk/reward profile" {
		t.Errorf("recommendation = %q", report.Recommendation)
	}
	// coverage 9/9 and one investigation at 0.8 confidence
	want := 0.6*1 + 0.4*0.8
	if diff := report.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want %v", report.Confidence, want)
	}
	if len(report.Metrics) != 9 {
		t.Errorf("metrics = %d, want 9", len(report.Metrics))
	}
	if report.CompanyName != "Test Corp" {
		t.Errorf("company name = %q", report.CompanyName)
	}
}

func TestRunCircuitBreakerOnInsufficientData(t *testing.T) {
	// Only one required metric (revenue); the optional metrics don't
	// count toward the circuit breaker.
	analyst := NewAnalyst("AAPL", DefaultConfig(), healthySource(), quietEngine(),
		&mockExtractor{values: map[string]float64{"revenue": 394e9, "eps": 6.1, "roe": 30}},
		&mockMarketSearcher{confidence: 0.8}, nil)

	report := analyst.Run(context.Background())
	if report.Status != "failed" {
		t.Fatalf("status = %q, want failed", report.Status)
	}
	if report.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", report.Confidence)
	}
	if report.Recommendation != "UNABLE TO ANALYZE - Insufficient data" {
		t.Errorf("recommendation = %q", report.Recommendation)
	}
	if len(report.Suggestions) == 0 {
		t.Error("expected non-empty suggestions")
	}
}

func TestRunFilingDownloadFailure(t *testing.T) {
	source := &mockSource{
		FetchFilingFunc: func(ctx context.Context, ticker, filingType string) (*ingest.Filing, error) {
			return nil, errors.New("EDGAR unreachable")
		},
	}
	analyst := NewAnalyst("AAPL", DefaultConfig(), source, quietEngine(),
		&mockExtractor{}, &mockMarketSearcher{}, nil)

	report := analyst.Run(context.Background())
	if report.Status != "failed" {
		t.Fatalf("status = %q, want failed", report.Status)
	}
	if !strings.Contains(report.Error, "download") {
		t.Errorf("error = %q, want mention of download", report.Error)
	}
	if report.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", report.Confidence)
	}
	if len(report.Suggestions) == 0 {
		t.Error("expected non-empty suggestions")
	}
}

func TestRunFollowUpOnLowConfidence(t *testing.T) {
	// Investigation confidence 0.1 drags the blend below threshold:
	// 0.6*1 + 0.4*0.1 = 0.64 < 0.7, so a follow-up round runs.
	analyst := NewAnalyst("AAPL", DefaultConfig(), healthySource(), quietEngine(),
		&mockExtractor{values: fullBattery()}, &mockMarketSearcher{confidence: 0.1}, nil)

	analyst.Run(context.Background())

	state := analyst.State()
	if len(state.Actions) < 2 {
		t.Fatalf("actions = %d, want follow-up investigation after the first round", len(state.Actions))
	}
	followUp := state.Actions[len(state.Actions)-1].Decision
	if followUp.Reason != "insufficient_data" {
		t.Errorf("follow-up reason = %q", followUp.Reason)
	}
	if !strings.Contains(followUp.Query, "More specific details") {
		t.Errorf("follow-up query = %q", followUp.Query)
	}
}

func TestRunToleratesActPhaseFailures(t *testing.T) {
	engine := quietEngine()
	engine.QueryFunc = func(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error) {
		return nil, rag.ErrNoIndexedData
	}
	analyst := NewAnalyst("AAPL", DefaultConfig(), healthySource(), engine,
		&mockExtractor{values: fullBattery()}, &mockMarketSearcher{err: errors.New("search down")}, nil)

	report := analyst.Run(context.Background())
	if report.Status != "success" {
		t.Fatalf("status = %q; act-phase failures must not abort the run", report.Status)
	}
	for _, action := range analyst.State().Actions {
		if action.Confidence != 0 {
			t.Errorf("failed investigation confidence = %v, want 0", action.Confidence)
		}
		if !strings.HasPrefix(action.Findings, "From SEC Filing: ") {
			t.Errorf("findings = %q", action.Findings)
		}
	}
}

func TestActPreservesDecisionOrder(t *testing.T) {
	analyst := NewAnalyst("AAPL", DefaultConfig(), healthySource(), quietEngine(),
		&mockExtractor{values: fullBattery()}, &mockMarketSearcher{confidence: 0.8}, nil)

	analyst.state.enqueue(Decision{Area: "first", Query: "q1"})
	analyst.state.enqueue(Decision{Area: "second", Query: "q2"})
	analyst.state.enqueue(Decision{Area: "third", Query: "q3"})
	analyst.state.Phase = Acting

	analyst.act(context.Background())

	areas := []string{"first", "second", "third"}
	if len(analyst.state.Actions) != 3 {
		t.Fatalf("actions = %d, want 3", len(analyst.state.Actions))
	}
	for i, action := range analyst.state.Actions {
		if action.Decision.Area != areas[i] {
			t.Errorf("actions[%d].Area = %q, want %q", i, action.Decision.Area, areas[i])
		}
	}
}
