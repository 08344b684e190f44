// Package metrics extracts structured financial metrics from indexed
// filings: a metric-specific question goes through the RAG engine, and
// a second LLM pass parses the answer into a numeric value with a
// confidence score. A regex extractor backstops unparseable LLM output.
package metrics

import (
	"strings"

	"filing_analyst/pkg/core/rag"
)

// Unit is the canonical unit of a metric value.
type Unit string

const (
	UnitDollars         Unit = "dollars"
	UnitPercentage      Unit = "percentage"
	UnitRatio           Unit = "ratio"
	UnitDollarsPerShare Unit = "dollars_per_share"
	UnitUnknown         Unit = "unknown"
)

// Definition describes how a known metric is asked for and where the
// answer usually lives. TypicalSection is tried first; retrieval falls
// back to an unfiltered search when the section yields nothing.
type Definition struct {
	Aliases        []string
	Unit           Unit
	TypicalSection rag.SectionTag
	Question       string // contains a {ticker} placeholder
}

// Definitions is the fixed dictionary of known financial metrics.
var Definitions = map[string]Definition{
	"revenue": {
		Aliases:        []string{"total revenue", "net sales", "total net sales", "net revenue"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s total revenue or net sales for the most recent fiscal year? Provide the exact dollar amount.",
	},
	"net_income": {
		Aliases:        []string{"net income", "net earnings", "profit"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s net income for the most recent fiscal year? Provide the exact dollar amount.",
	},
	"gross_profit": {
		Aliases:        []string{"gross profit"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s gross profit for the most recent fiscal year? Provide the exact dollar amount.",
	},
	"operating_income": {
		Aliases:        []string{"operating income", "operating profit", "income from operations"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s operating income for the most recent fiscal year? Provide the exact dollar amount.",
	},
	"total_assets": {
		Aliases:        []string{"total assets"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What are {ticker}'s total assets? Provide the exact dollar amount.",
	},
	"total_debt": {
		Aliases:        []string{"total debt", "long-term debt", "total liabilities"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s total debt (including long-term and short-term)? Provide the exact dollar amount.",
	},
	"cash": {
		Aliases:        []string{"cash and cash equivalents", "cash equivalents"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s cash and cash equivalents? Provide the exact dollar amount.",
	},
	"operating_margin": {
		Aliases:        []string{"operating margin"},
		Unit:           UnitPercentage,
		TypicalSection: rag.SectionMDandA,
		Question:       "What is {ticker}'s operating margin percentage?",
	},
	"gross_margin": {
		Aliases:        []string{"gross margin"},
		Unit:           UnitPercentage,
		TypicalSection: rag.SectionMDandA,
		Question:       "What is {ticker}'s gross margin percentage?",
	},
	"revenue_growth": {
		Aliases:        []string{"revenue growth", "sales growth", "yoy growth"},
		Unit:           UnitPercentage,
		TypicalSection: rag.SectionMDandA,
		Question:       "What is {ticker}'s year-over-year revenue growth rate? Provide the percentage.",
	},
	"eps": {
		Aliases:        []string{"earnings per share", "diluted eps"},
		Unit:           UnitDollarsPerShare,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s earnings per share (EPS)? Provide both basic and diluted if available.",
	},
	"debt_to_equity": {
		Aliases:        []string{"debt to equity", "debt-to-equity ratio", "d/e ratio"},
		Unit:           UnitRatio,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s debt-to-equity ratio?",
	},
	"roe": {
		Aliases:        []string{"return on equity"},
		Unit:           UnitPercentage,
		TypicalSection: rag.SectionMDandA,
		Question:       "What is {ticker}'s return on equity (ROE)? Provide the percentage.",
	},
	"free_cash_flow": {
		Aliases:        []string{"free cash flow", "fcf"},
		Unit:           UnitDollars,
		TypicalSection: rag.SectionFinancialStatements,
		Question:       "What is {ticker}'s free cash flow? Provide the exact dollar amount.",
	},
}

// Resolve maps a user-supplied metric name to its canonical key and
// definition, falling back to a generic templated question for unknown
// metrics.
func Resolve(metricName string) (string, Definition) {
	key := strings.ToLower(metricName)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	if def, ok := Definitions[key]; ok {
		return key, def
	}

	lowerName := strings.ToLower(metricName)
	for canonical, def := range Definitions {
		for _, alias := range def.Aliases {
			if lowerName == strings.ToLower(alias) {
				return canonical, def
			}
		}
	}

	return key, Definition{
		Aliases:  []string{metricName},
		Unit:     UnitUnknown,
		Question: "What is {ticker}'s " + metricName + "? Provide the exact value.",
	}
}

// StandardMetrics is the battery used by batch extraction and the agent
// Observe phase.
var StandardMetrics = []string{
	"revenue",
	"net_income",
	"gross_profit",
	"operating_income",
	"operating_margin",
	"total_assets",
	"total_debt",
	"cash",
	"eps",
	"revenue_growth",
}
