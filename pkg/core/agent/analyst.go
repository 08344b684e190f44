package agent

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/logger"
	"filing_analyst/pkg/core/metrics"
	"filing_analyst/pkg/core/prompt"
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/search"
	"filing_analyst/pkg/core/utils"
)

const (
	DefaultMaxIterations       = 5
	DefaultConfidenceThreshold = 0.7

	// minRequiredMetrics is the circuit breaker: with fewer required
	// metrics than this, a recommendation would be misleadingly
	// specific, so the run fails fast instead.
	minRequiredMetrics = 2

	// maxFollowUps bounds how many weak areas get a narrower follow-up
	// per evaluation pass.
	maxFollowUps = 2

	metricCoverageWeight = 0.6
	investigationWeight  = 0.4
)

// metricTarget is one entry of the Observe-phase extraction battery.
type metricTarget struct {
	name     string
	required bool
}

// metricBattery is the fixed set of metrics Observe extracts. Its
// length is the divisor of the coverage fraction in Evaluate.
var metricBattery = []metricTarget{
	{"revenue", true},
	{"net_income", true},
	{"operating_margin", false},
	{"gross_margin", false},
	{"revenue_growth", true},
	{"eps", false},
	{"total_debt", false},
	{"cash", false},
	{"roe", false},
}

// FilingIndexQuerier is the slice of the RAG engine the analyst uses.
type FilingIndexQuerier interface {
	IndexFiling(ctx context.Context, filingText, ticker, filingType, filingDate string) (*rag.IndexResult, error)
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
}

// MetricExtractor extracts one named metric for a ticker.
type MetricExtractor interface {
	ExtractMetric(ctx context.Context, metricName, ticker string) (*metrics.Result, error)
}

// MarketSearcher provides broader market context beyond the filing.
type MarketSearcher interface {
	MultiAngleSearch(ctx context.Context, query string) (*search.Result, error)
}

// Config tunes one analysis run.
type Config struct {
	FilingType          string
	MaxIterations       int
	ConfidenceThreshold float64
}

func DefaultConfig() Config {
	return Config{
		FilingType:          "10-K",
		MaxIterations:       DefaultMaxIterations,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// Analyst drives the analysis state machine for a single ticker.
type Analyst struct {
	ticker    string
	cfg       Config
	source    ingest.FilingSource
	engine    FilingIndexQuerier
	extractor MetricExtractor
	searcher  MarketSearcher
	provider  llm.Provider // narrative summary; nil skips the summary

	state  *State
	filing *ingest.Filing
}

func NewAnalyst(ticker string, cfg Config, source ingest.FilingSource, engine FilingIndexQuerier, extractor MetricExtractor, searcher MarketSearcher, provider llm.Provider) *Analyst {
	if cfg.FilingType == "" {
		cfg.FilingType = "10-K"
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	return &Analyst{
		ticker:    strings.ToUpper(ticker),
		cfg:       cfg,
		source:    source,
		engine:    engine,
		extractor: extractor,
		searcher:  searcher,
		provider:  provider,
		state:     NewState(strings.ToUpper(ticker)),
	}
}

// State exposes the run state for inspection (API status reporting).
func (a *Analyst) State() *State {
	return a.state
}

// SetFiling supplies an already fetched and indexed filing, so Observe
// skips the download/index step. Used by callers that orchestrate those
// stages themselves for progress reporting.
func (a *Analyst) SetFiling(filing *ingest.Filing) {
	a.filing = filing
}

// Run executes the state machine until it concludes or the iteration
// budget is exhausted, then assembles the final report.
func (a *Analyst) Run(ctx context.Context) *Report {
	logger.Log.Infof("starting analysis for %s", a.ticker)

	for a.state.Phase != Concluded && a.state.Iteration < a.cfg.MaxIterations {
		logger.Log.Infof("iteration %d, phase %s", a.state.Iteration+1, a.state.Phase)

		switch a.state.Phase {
		case Observing:
			a.observe(ctx)
		case Deciding:
			a.decide()
		case Acting:
			a.act(ctx)
		case Evaluating:
			a.evaluate()
		}
		a.state.Iteration++
	}

	return a.conclude(ctx)
}

// observe downloads and indexes the filing, then extracts the metric
// battery. Fails fast when the filing is unavailable or too few
// required metrics were found.
func (a *Analyst) observe(ctx context.Context) {
	if a.filing == nil {
		filing, err := a.source.FetchFiling(ctx, a.ticker, a.cfg.FilingType)
		if err != nil {
			logger.Log.Errorf("failed to fetch filing: %v", err)
			a.fail("filing_download_failed")
			return
		}
		logger.Log.Infof("fetched %s %s (%d chars) for %s", filing.FilingType, filing.FilingDate, len(filing.FullText), filing.CompanyName)

		indexResult, err := a.engine.IndexFiling(ctx, filing.FullText, a.ticker, filing.FilingType, filing.FilingDate)
		if err != nil {
			logger.Log.Errorf("failed to index filing: %v", err)
			a.fail("filing_download_failed")
			return
		}
		logger.Log.Infof("indexed %d chunks, %d tables preserved", indexResult.ChunksIndexed, indexResult.TablesPreserved)
		a.filing = filing
	}

	requiredFound := 0
	var failed []string

	for _, target := range metricBattery {
		result, err := a.extractor.ExtractMetric(ctx, target.name, a.ticker)
		if err != nil || !result.Found() {
			// Collaborator failure is recorded the same as not-found.
			failed = append(failed, target.name)
			logger.Log.Warnf("  %s: not found", target.name)
			continue
		}

		a.state.Observations[target.name] = Observation{
			Value:      result.Value,
			Raw:        result.RawValue,
			Confidence: result.Confidence,
			Section:    result.SourceSection,
		}
		logger.Log.Infof("  %s: %s (confidence %.2f)", target.name, result.RawValue, result.Confidence)

		if target.required {
			requiredFound++
		}
	}

	if requiredFound < minRequiredMetrics {
		logger.Log.Errorf("insufficient data: only %d required metrics found", requiredFound)
		a.fail("insufficient_data: " + strings.Join(failed, ", "))
		return
	}

	a.state.Phase = Deciding
}

// decide runs the rule table over the observations and queues the
// resulting investigations. At least one decision is always queued.
func (a *Analyst) decide() {
	fired := 0
	for _, rule := range decisionRules {
		if rule.applies(a.state) {
			a.state.enqueue(rule.build(a.ticker))
			fired++
		}
	}
	if fired == 0 {
		a.state.enqueue(standardDecision(a.ticker))
	}

	for _, d := range a.state.pending {
		logger.Log.Infof("  decision: %s (%s): %s", d.Area, d.Severity, d.Reason)
	}
	a.state.Phase = Acting
}

// act investigates every pending decision concurrently: a filing query
// and a market search per decision, combined into one findings string.
// Results join in input order. A failed filing query yields empty
// filing context; a failed market search yields empty market context
// with confidence 0. Neither aborts the run.
func (a *Analyst) act(ctx context.Context) {
	pending := a.state.pending
	a.state.pending = nil

	results := make([]ActionResult, len(pending))
	g, gctx := errgroup.WithContext(ctx)

	for i, decision := range pending {
		g.Go(func() error {
			var filingContext string
			var filingSections []rag.SectionTag
			queryResult, err := a.engine.Query(gctx, rag.QueryRequest{
				Question: decision.Query,
				Ticker:   a.ticker,
				TopK:     5,
			})
			if err != nil {
				logger.Log.Warnf("filing query for %s failed: %v", decision.Area, err)
			} else {
				filingContext = queryResult.Answer
				filingSections = queryResult.SectionsSearched
			}

			var marketContext string
			var marketSources []search.SourceResult
			confidence := 0.0
			searchResult, err := a.searcher.MultiAngleSearch(gctx, decision.Query)
			if err != nil {
				logger.Log.Warnf("market search for %s failed: %v", decision.Area, err)
			} else {
				marketContext = searchResult.Synthesis
				marketSources = searchResult.Sources
				confidence = searchResult.Confidence
			}

			results[i] = ActionResult{
				Decision:       decision,
				Findings:       "From SEC Filing: " + filingContext + "\n\nMarket Context: " + marketContext,
				FilingSections: filingSections,
				MarketSources:  marketSources,
				Confidence:     confidence,
			}
			return nil
		})
	}
	g.Wait()

	a.state.Actions = append(a.state.Actions, results...)
	logger.Log.Infof("completed %d investigations", len(results))
	a.state.Phase = Evaluating
}

// evaluate blends metric coverage with investigation confidence. Below
// the threshold, with budget remaining, it queues narrower follow-ups
// for the weakest areas and loops back to Acting.
func (a *Analyst) evaluate() {
	coverage := float64(len(a.state.Observations)) / float64(len(metricBattery))

	if len(a.state.Actions) > 0 {
		sum := 0.0
		for _, action := range a.state.Actions {
			sum += action.Confidence
		}
		avg := sum / float64(len(a.state.Actions))
		a.state.Confidence = metricCoverageWeight*coverage + investigationWeight*avg
	} else {
		a.state.Confidence = coverage
	}

	logger.Log.Infof("overall confidence: %.0f%%", a.state.Confidence*100)

	if a.state.Confidence < a.cfg.ConfidenceThreshold && a.state.Iteration < a.cfg.MaxIterations-1 {
		var weakAreas []string
		seen := make(map[string]bool)
		for _, action := range a.state.Actions {
			if action.Confidence < a.cfg.ConfidenceThreshold && !seen[action.Decision.Area] {
				seen[action.Decision.Area] = true
				weakAreas = append(weakAreas, action.Decision.Area)
			}
		}

		if len(weakAreas) > 0 {
			if len(weakAreas) > maxFollowUps {
				weakAreas = weakAreas[:maxFollowUps]
			}
			logger.Log.Infof("need more information on: %v", weakAreas)
			for _, area := range weakAreas {
				a.state.enqueue(followUpDecision(a.ticker, area))
			}
			a.state.Phase = Acting
			return
		}
	}

	a.state.Phase = Concluded
}

// fail forces the terminal state with zero confidence and records the
// reason for the failure report.
func (a *Analyst) fail(reason string) {
	a.state.Phase = Concluded
	a.state.Confidence = 0
	a.state.failureReason = reason
}

// conclude assembles the final report: a structured failure report when
// the run failed, otherwise metrics, insights, risks, opportunities,
// the recommendation, and an optional narrative summary.
func (a *Analyst) conclude(ctx context.Context) *Report {
	if reason := a.state.failureReason; reason != "" {
		if strings.Contains(reason, "insufficient_data") {
			return &Report{
				Ticker:         a.ticker,
				Status:         "failed",
				Error:          "Unable to extract sufficient financial metrics",
				Recommendation: "UNABLE TO ANALYZE - Insufficient data",
				Suggestions: []string{
					"The SEC filing may have unusual formatting",
					"Try re-indexing the filing",
					"Check if the filing contains standard financial statements",
				},
				Confidence: 0,
			}
		}
		return &Report{
			Ticker:         a.ticker,
			Status:         "failed",
			Error:          "Could not download SEC filing",
			Recommendation: "UNABLE TO ANALYZE",
			Suggestions: []string{
				"Verify " + a.ticker + " is a valid US public company",
				"Check if " + a.ticker + " has filed recent SEC reports",
				"Try an alternative ticker if company merged/renamed",
			},
			Confidence: 0,
		}
	}

	logger.Log.Info("generating final analysis")

	risks := identifyRisks(a.state)
	opportunities := identifyOpportunities(a.state)

	report := &Report{
		Ticker:        a.ticker,
		Status:        "success",
		FilingType:    a.cfg.FilingType,
		Metrics:       formatMetrics(a.state),
		Insights:      generateInsights(a.state),
		Risks:         risks,
		Opportunities: opportunities,
		Recommendation: recommend(recommendationInput{
			Confidence:      a.state.Confidence,
			Risks:           risks,
			Opportunities:   opportunities,
			NetIncome:       a.state.metricOr("net_income", 0),
			RevenueGrowth:   a.state.metricOr("revenue_growth", 0),
			OperatingMargin: a.state.metricOr("operating_margin", 0),
		}),
		Confidence: a.state.Confidence,
	}
	if a.filing != nil {
		report.CompanyName = a.filing.CompanyName
		report.FilingDate = a.filing.FilingDate
	} else {
		report.CompanyName = a.ticker
	}

	report.Summary = a.narrative(ctx, report)
	return report
}

// narrative asks the language model for a short investor-facing summary
// of the assembled report. Best effort: any failure leaves the summary
// empty.
func (a *Analyst) narrative(ctx context.Context, report *Report) string {
	if a.provider == nil {
		return ""
	}

	pt, err := prompt.Get().GetPrompt("report.narrative")
	if err != nil {
		return ""
	}

	var metricLines []string
	for name, m := range report.Metrics {
		metricLines = append(metricLines, "- "+name+": "+m.Display)
	}

	userPrompt, err := prompt.Render(pt, map[string]interface{}{
		"Ticker":         report.Ticker,
		"Metrics":        strings.Join(metricLines, "\n"),
		"Risks":          strings.Join(report.Risks, "\n"),
		"Opportunities":  strings.Join(report.Opportunities, "\n"),
		"Recommendation": report.Recommendation,
	})
	if err != nil {
		return ""
	}

	summary, err := a.provider.GenerateResponse(ctx, userPrompt, pt.SystemPrompt, map[string]interface{}{
		"temperature": 0.3,
	})
	if err != nil {
		logger.Log.Warnf("narrative summary failed: %v", err)
		return ""
	}
	cleaned := utils.CleanMarkdown(summary)
	if !utils.ValidateMarkdown(cleaned) {
		logger.Log.Warn("narrative summary is not renderable markdown, dropping")
		return ""
	}
	return cleaned
}
