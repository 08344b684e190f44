package agent

import (
	"fmt"
	"strings"
)

// decisionRule maps an observed red flag to an investigation. Rules are
// evaluated in table order; every firing rule contributes a Decision.
type decisionRule struct {
	applies func(s *State) bool
	build   func(ticker string) Decision
}

// decisionRules is the ordered rule table for the Decide phase. The
// revenue rules are mutually exclusive by predicate (a growth rate is
// never both below -10 and above 20).
var decisionRules = []decisionRule{
	{
		applies: func(s *State) bool {
			v, ok := s.metricValue("net_income")
			return ok && v < 0
		},
		build: func(ticker string) Decision {
			return Decision{
				Area:     "profitability",
				Reason:   "negative_net_income",
				Severity: SeverityHigh,
				Query:    fmt.Sprintf("Why is %s unprofitable? What are the main cost drivers?", ticker),
			}
		},
	},
	{
		applies: func(s *State) bool {
			v, ok := s.metricValue("revenue_growth")
			return ok && v < -10
		},
		build: func(ticker string) Decision {
			return Decision{
				Area:     "revenue",
				Reason:   "declining_revenue",
				Severity: SeverityHigh,
				Query:    fmt.Sprintf("Why is %s revenue declining? Is this a strategic pivot or market issue?", ticker),
			}
		},
	},
	{
		applies: func(s *State) bool {
			v, ok := s.metricValue("revenue_growth")
			return ok && v > 20
		},
		build: func(ticker string) Decision {
			return Decision{
				Area:     "growth",
				Reason:   "strong_growth",
				Severity: SeverityLow,
				Query:    fmt.Sprintf("What is driving %s's strong revenue growth? Is it sustainable?", ticker),
			}
		},
	},
	{
		applies: func(s *State) bool {
			v, ok := s.metricValue("operating_margin")
			return ok && v < 5
		},
		build: func(ticker string) Decision {
			return Decision{
				Area:     "margins",
				Reason:   "low_margins",
				Severity: SeverityMedium,
				Query:    fmt.Sprintf("Why does %s have low operating margins? What is the industry average?", ticker),
			}
		},
	},
	{
		applies: func(s *State) bool {
			debt, okDebt := s.metricValue("total_debt")
			cash, okCash := s.metricValue("cash")
			return okDebt && okCash && debt > cash*3
		},
		build: func(ticker string) Decision {
			return Decision{
				Area:     "leverage",
				Reason:   "high_debt",
				Severity: SeverityMedium,
				Query:    fmt.Sprintf("Is %s's debt level sustainable? What are the covenant risks?", ticker),
			}
		},
	},
}

// standardDecision is emitted when no rule fires, so Act always has
// work to do.
func standardDecision(ticker string) Decision {
	return Decision{
		Area:     "competitive",
		Reason:   "standard_analysis",
		Severity: SeverityLow,
		Query:    fmt.Sprintf("What is %s's competitive position and market share?", ticker),
	}
}

// followUpDecision narrows a weak investigation area for the next Act
// pass.
func followUpDecision(ticker, area string) Decision {
	return Decision{
		Area:     area,
		Reason:   "insufficient_data",
		Severity: SeverityLow,
		Query:    fmt.Sprintf("More specific details on %s %s with numbers", ticker, area),
	}
}

// recommendationInput is everything the recommendation rule may look
// at; the rule is a pure function of these fields.
type recommendationInput struct {
	Confidence      float64
	Risks           []string
	Opportunities   []string
	NetIncome       float64
	RevenueGrowth   float64
	OperatingMargin float64
}

func (in recommendationInput) highRiskCount() int {
	n := 0
	for _, r := range in.Risks {
		if strings.Contains(r, "High") || strings.Contains(r, "Decline") {
			n++
		}
	}
	return n
}

// recommendationRule pairs a predicate with its label. First match
// wins; the table order is the priority order.
type recommendationRule struct {
	applies func(in recommendationInput) bool
	label   string
}

var recommendationRules = []recommendationRule{
	{
		applies: func(in recommendationInput) bool { return in.Confidence < 0.4 },
		label:   "HOLD - Insufficient data for strong conviction",
	},
	{
		applies: func(in recommendationInput) bool { return in.highRiskCount() >= 2 },
		label:   "SELL - Multiple significant risk factors identified",
	},
	{
		applies: func(in recommendationInput) bool { return in.NetIncome < 0 && in.RevenueGrowth < 0 },
		label:   "SELL - Unprofitable with declining revenue",
	},
	{
		applies: func(in recommendationInput) bool { return in.RevenueGrowth > 15 && in.OperatingMargin > 15 },
		label:   "BUY - Strong growth with healthy margins",
	},
	{
		applies: func(in recommendationInput) bool { return in.RevenueGrowth > 10 && in.NetIncome > 0 },
		label:   "BUY - Positive growth trajectory with profitability",
	},
	{
		applies: func(in recommendationInput) bool { return len(in.Opportunities) > in.highRiskCount()+1 },
		label:   "BUY - Opportunities outweigh risks",
	},
	{
		applies: func(in recommendationInput) bool { return in.highRiskCount() > len(in.Opportunities) },
		label:   "SELL - Risks outweigh opportunities",
	},
}

const recommendationDefault = "HOLD - Balanced risk/reward profile"

// recommend evaluates the recommendation table in priority order.
func recommend(in recommendationInput) string {
	for _, rule := range recommendationRules {
		if rule.applies(in) {
			return rule.label
		}
	}
	return recommendationDefault
}
