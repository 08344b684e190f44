package metrics

import (
	"context"
	"fmt"
	"strings"

	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/utils"
)

// Result is one extracted metric. Value == nil with Confidence == 0 is
// the explicit "not found" state; it is never coerced to zero because
// zero is a legitimate financial value.
type Result struct {
	MetricName    string         `json:"metric_name"`
	Value         *float64       `json:"value"`
	RawValue      string         `json:"raw_value"`
	Unit          Unit           `json:"unit"`
	SourceSection rag.SectionTag `json:"source_section"`
	Confidence    float64        `json:"confidence"`
	Context       string         `json:"context"`
	Ticker        string         `json:"ticker"`
}

// Found reports whether the metric was actually located in the filing.
func (r *Result) Found() bool {
	return r != nil && r.Value != nil
}

// FilingQuerier is the slice of the RAG engine the extractor needs.
type FilingQuerier interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
}

// Extractor resolves metric questions through the RAG engine and parses
// the grounded answers into structured values.
type Extractor struct {
	querier  FilingQuerier
	provider llm.Provider
}

func NewExtractor(querier FilingQuerier, provider llm.Provider) *Extractor {
	return &Extractor{querier: querier, provider: provider}
}

// ExtractMetric runs the two-tier retrieval (preferred section first,
// then unfiltered) and the two-stage parse (LLM JSON, then regex
// fallback). A collaborator failure is returned as an error; a metric
// that is genuinely absent returns a Result with Value == nil and
// Confidence == 0.
func (e *Extractor) ExtractMetric(ctx context.Context, metricName, ticker string) (*Result, error) {
	metricKey, def := Resolve(metricName)
	question := strings.ReplaceAll(def.Question, "{ticker}", ticker)

	var queryResult *rag.QueryResult
	var err error

	if def.TypicalSection != "" {
		queryResult, err = e.querier.Query(ctx, rag.QueryRequest{
			Question:      question,
			Ticker:        ticker,
			TopK:          5,
			SectionFilter: def.TypicalSection,
		})
	}

	// Broaden the net when the preferred section has nothing.
	if queryResult == nil || err != nil {
		queryResult, err = e.querier.Query(ctx, rag.QueryRequest{
			Question: question,
			Ticker:   ticker,
			TopK:     8,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("metric %s: %w", metricKey, err)
	}

	parsed := e.extractValueFromAnswer(ctx, queryResult.Answer, metricKey)

	sourceSection := rag.SectionUnknown
	if len(queryResult.SectionsSearched) > 0 {
		sourceSection = queryResult.SectionsSearched[0]
	}

	contextSnippet := queryResult.Answer
	if len(contextSnippet) > 500 {
		contextSnippet = contextSnippet[:500]
	}

	result := &Result{
		MetricName:    metricKey,
		Unit:          def.Unit,
		SourceSection: sourceSection,
		Context:       contextSnippet,
		Ticker:        ticker,
	}
	if parsed.Found && parsed.NumericValue != nil {
		result.Value = parsed.NumericValue
		result.RawValue = parsed.RawValue
		result.Confidence = parsed.Confidence
	}
	return result, nil
}

// extractedValue is the JSON shape the extraction prompt demands.
type extractedValue struct {
	Found        bool     `json:"found"`
	RawValue     string   `json:"raw_value"`
	NumericValue *float64 `json:"numeric_value"`
	Confidence   float64  `json:"confidence"`
}

// extractValueFromAnswer asks the LLM for the structured value, then
// falls back to regex matching when the response is not parseable JSON.
// The fallback never errors: failure to find anything is the explicit
// not-found value.
func (e *Extractor) extractValueFromAnswer(ctx context.Context, answer, metricKey string) extractedValue {
	_, def := Resolve(metricKey)

	pt, err := prompt.Get().GetPrompt("metrics.extract_value")
	if err != nil {
		return fallbackExtract(answer, def.Unit)
	}
	userPrompt, err := prompt.Render(pt, map[string]interface{}{
		"MetricName": metricKey,
		"Answer":     answer,
	})
	if err != nil {
		return fallbackExtract(answer, def.Unit)
	}

	response, err := e.provider.GenerateResponse(ctx, userPrompt, pt.SystemPrompt, map[string]interface{}{
		"temperature":     0.0,
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return fallbackExtract(answer, def.Unit)
	}

	var parsed extractedValue
	if _, err := utils.SmartParse(response, &parsed); err != nil {
		return fallbackExtract(answer, def.Unit)
	}
	if !parsed.Found {
		return extractedValue{Found: false}
	}
	return parsed
}

// ExtractMultiple extracts several metrics sequentially. A collaborator
// error on one metric is recorded as not-found rather than aborting the
// batch.
func (e *Extractor) ExtractMultiple(ctx context.Context, metricNames []string, ticker string) map[string]*Result {
	results := make(map[string]*Result, len(metricNames))
	for _, name := range metricNames {
		result, err := e.ExtractMetric(ctx, name, ticker)
		if err != nil {
			key, def := Resolve(name)
			result = &Result{
				MetricName:    key,
				Unit:          def.Unit,
				SourceSection: rag.SectionUnknown,
				Ticker:        ticker,
			}
		}
		results[result.MetricName] = result
	}
	return results
}

// ExtractStandardMetrics extracts the full standard battery.
func (e *Extractor) ExtractStandardMetrics(ctx context.Context, ticker string) map[string]*Result {
	return e.ExtractMultiple(ctx, StandardMetrics, ticker)
}
