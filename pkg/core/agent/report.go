package agent

import (
	"fmt"
	"strings"

	"filing_analyst/pkg/core/rag"
)

const (
	maxInsights       = 5
	maxOpportunities  = 5
	insightTextBudget = 300
	strongGrowthPct   = 15
	highMarginPct     = 20
	thinMarginPct     = 5
)

// MetricReport is one metric as presented to the report consumer.
type MetricReport struct {
	Value      *float64       `json:"value"`
	Display    string         `json:"display"`
	Confidence float64        `json:"confidence"`
	Section    rag.SectionTag `json:"section"`
}

// Report is the final output of an analysis run. Status is "success"
// or "failed"; on failure Error and Suggestions are populated and
// Confidence is 0.
type Report struct {
	Ticker         string                  `json:"ticker"`
	Status         string                  `json:"status"`
	CompanyName    string                  `json:"company_name,omitempty"`
	FilingType     string                  `json:"filing_type,omitempty"`
	FilingDate     string                  `json:"filing_date,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Suggestions    []string                `json:"suggestions,omitempty"`
	Metrics        map[string]MetricReport `json:"metrics,omitempty"`
	Insights       []string                `json:"insights,omitempty"`
	Risks          []string                `json:"risks,omitempty"`
	Opportunities  []string                `json:"opportunities,omitempty"`
	Recommendation string                  `json:"recommendation"`
	Summary        string                  `json:"summary,omitempty"`
	Confidence     float64                 `json:"confidence"`
}

// formatMetrics presents the observations for output.
func formatMetrics(s *State) map[string]MetricReport {
	formatted := make(map[string]MetricReport, len(s.Observations))
	for name, obs := range s.Observations {
		formatted[name] = MetricReport{
			Value:      obs.Value,
			Display:    obs.Raw,
			Confidence: obs.Confidence,
			Section:    obs.Section,
		}
	}
	return formatted
}

// insightFraming maps investigation areas to report headings.
var insightFraming = map[string]string{
	"profitability": "Profitability Analysis",
	"growth":        "Growth Drivers",
	"margins":       "Margin Analysis",
	"leverage":      "Debt Analysis",
}

// generateInsights turns each investigation into one insight line,
// truncated to the text budget.
func generateInsights(s *State) []string {
	var insights []string
	for _, action := range s.Actions {
		findings := action.Findings
		if len(findings) > insightTextBudget {
			findings = findings[:insightTextBudget] + "..."
		}

		heading, ok := insightFraming[action.Decision.Area]
		if !ok {
			heading = titleWord(action.Decision.Area)
		}
		insights = append(insights, heading+": "+findings)
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// identifyRisks collects high-severity investigations and metric-level
// red flags.
func identifyRisks(s *State) []string {
	var risks []string
	for _, action := range s.Actions {
		if action.Decision.Severity == SeverityHigh {
			risks = append(risks, fmt.Sprintf("%s Risk: %s",
				titleWord(action.Decision.Area),
				strings.ReplaceAll(action.Decision.Reason, "_", " ")))
		}
	}

	if s.metricOr("revenue_growth", 0) < 0 {
		risks = append(risks, "Revenue Decline Risk: Negative revenue growth trend")
	}
	if s.metricOr("operating_margin", 100) < thinMarginPct {
		risks = append(risks, "Margin Pressure Risk: Low operating margins")
	}
	return risks
}

// positiveSignals are the lexical markers scanned for in investigation
// findings.
var positiveSignals = []string{"growth", "expansion", "increasing", "opportunity", "market leader"}

// identifyOpportunities collects strong-metric flags and positive
// signals found during investigations, capped at maxOpportunities.
func identifyOpportunities(s *State) []string {
	var opportunities []string

	if growth, ok := s.metricValue("revenue_growth"); ok && growth > strongGrowthPct {
		opportunities = append(opportunities, fmt.Sprintf("Strong Growth: %.1f%% revenue growth", growth))
	}
	if margin, ok := s.metricValue("operating_margin"); ok && margin > highMarginPct {
		opportunities = append(opportunities, fmt.Sprintf("High Margins: %.1f%% operating margin", margin))
	}

	for _, action := range s.Actions {
		lower := strings.ToLower(action.Findings)
		for _, signal := range positiveSignals {
			if strings.Contains(lower, signal) {
				opportunities = append(opportunities, "Potential in "+action.Decision.Area)
				break
			}
		}
	}

	if len(opportunities) > maxOpportunities {
		opportunities = opportunities[:maxOpportunities]
	}
	return opportunities
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
