package rag

import (
	"regexp"
	"strings"
)

var (
	dollarAmountRe = regexp.MustCompile(`\$[\d,]+`)
	percentageRe   = regexp.MustCompile(`\d+\.?\d*\s*%`)
)

// ClassifyContent labels a chunk by content type. First match wins:
// pipe table with dollar amounts or percentages -> financial_table;
// dollar amount or revenue/income wording -> financial_data; "risk"
// wording -> risk_factor; otherwise general.
func ClassifyContent(text string) ContentType {
	lower := strings.ToLower(text)

	hasDollars := dollarAmountRe.MatchString(text)
	hasPercentages := percentageRe.MatchString(text)
	hasTable := strings.Count(text, "|") > 3

	switch {
	case hasTable && (hasDollars || hasPercentages):
		return ContentFinancialTable
	case hasDollars || strings.Contains(lower, "revenue") || strings.Contains(lower, "income"):
		return ContentFinancialData
	case strings.Contains(lower, "risk"):
		return ContentRiskFactor
	default:
		return ContentGeneral
	}
}
