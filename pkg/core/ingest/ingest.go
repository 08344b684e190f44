// Package ingest fetches filing text from SEC EDGAR. The rest of the
// system consumes the FilingSource interface and treats the returned
// text as opaque input; the only structural assumption downstream is
// that section markers like "ITEM 1." may appear.
package ingest

import "context"

// Filing is the extracted text of one filing plus its metadata.
type Filing struct {
	Ticker      string `json:"ticker"`
	FilingType  string `json:"filing_type"`
	FilingDate  string `json:"filing_date"`
	CompanyName string `json:"company_name"`
	FilingURL   string `json:"filing_url"`
	FullText    string `json:"full_text"`
}

// FilingSource retrieves the latest filing of the given type for a
// ticker. filingType is a form name like "10-K" or "10-Q".
type FilingSource interface {
	FetchFiling(ctx context.Context, ticker, filingType string) (*Filing, error)
}
