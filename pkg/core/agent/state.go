// Package agent runs the observe-decide-act-evaluate analysis loop: it
// extracts a metric battery from an indexed filing, turns red flags
// into investigations, runs them against the filing and the web, and
// concludes with a BUY/HOLD/SELL recommendation once confidence is
// sufficient or the iteration budget runs out.
package agent

import (
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/search"
)

// Phase is the agent's position in the analysis state machine.
type Phase string

const (
	Observing  Phase = "observing"
	Deciding   Phase = "deciding"
	Acting     Phase = "acting"
	Evaluating Phase = "evaluating"
	Concluded  Phase = "concluded"
)

// Severity ranks how urgent an investigation is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Observation is one extracted metric. Value nil means the metric was
// not found; zero is a real value and never stands in for "missing".
type Observation struct {
	Value      *float64       `json:"value"`
	Raw        string         `json:"raw"`
	Confidence float64        `json:"confidence"`
	Section    rag.SectionTag `json:"section"`
}

// Decision is one unit of investigation produced by the rule table.
type Decision struct {
	Area     string   `json:"area"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
	Query    string   `json:"query"`
}

// ActionResult is the outcome of investigating one Decision: filing
// context and market context combined into a findings string.
type ActionResult struct {
	Decision       Decision              `json:"decision"`
	Findings       string                `json:"findings"`
	FilingSections []rag.SectionTag      `json:"filing_sections"`
	MarketSources  []search.SourceResult `json:"market_sources"`
	Confidence     float64               `json:"confidence"`
}

// State is the mutable record of one analysis run. It is owned by a
// single run and never shared across concurrent analyses.
type State struct {
	Ticker       string                 `json:"ticker"`
	Phase        Phase                  `json:"phase"`
	Observations map[string]Observation `json:"observations"`
	Decisions    []Decision             `json:"decisions"`
	Actions      []ActionResult         `json:"actions"`
	Confidence   float64                `json:"confidence"`
	Iteration    int                    `json:"iteration"`

	// pending is the work queue Act consumes; Decisions above is the
	// append-only log of everything ever decided.
	pending []Decision

	failureReason string
}

// NewState starts a run in the Observing phase.
func NewState(ticker string) *State {
	return &State{
		Ticker:       ticker,
		Phase:        Observing,
		Observations: make(map[string]Observation),
	}
}

// enqueue records a decision in the log and adds it to the pending
// work queue.
func (s *State) enqueue(d Decision) {
	s.Decisions = append(s.Decisions, d)
	s.pending = append(s.pending, d)
}

// metricValue returns an observed metric's value. The second return is
// false when the metric was never found.
func (s *State) metricValue(name string) (float64, bool) {
	obs, ok := s.Observations[name]
	if !ok || obs.Value == nil {
		return 0, false
	}
	return *obs.Value, true
}

// metricOr returns the observed value or a default when missing.
func (s *State) metricOr(name string, def float64) float64 {
	if v, ok := s.metricValue(name); ok {
		return v
	}
	return def
}
