// Package rag implements the smart chunking and retrieval-augmented
// query engine over SEC filings. Filings are split into section-tagged,
// table-aware chunks, indexed into a namespaced vector store keyed by
// ticker, and queried with a strict grounding prompt.
package rag

// SectionTag identifies the SEC filing item a chunk belongs to.
type SectionTag string

const (
	SectionBusiness             SectionTag = "business"
	SectionRiskFactors          SectionTag = "risk_factors"
	SectionUnresolvedComments   SectionTag = "unresolved_staff_comments"
	SectionProperties           SectionTag = "properties"
	SectionLegalProceedings     SectionTag = "legal_proceedings"
	SectionMineSafety           SectionTag = "mine_safety"
	SectionMarketInfo           SectionTag = "market_info"
	SectionSelectedFinancials   SectionTag = "selected_financial_data"
	SectionMDandA               SectionTag = "md_and_a"
	SectionMarketRisk           SectionTag = "market_risk"
	SectionFinancialStatements  SectionTag = "financial_statements"
	SectionChangesDisagreements SectionTag = "changes_disagreements"
	SectionControlsProcedures   SectionTag = "controls_procedures"
	SectionDirectorsOfficers    SectionTag = "directors_officers"
	SectionExecutiveComp        SectionTag = "executive_compensation"
	SectionSecurityOwnership    SectionTag = "security_ownership"
	SectionRelatedTransactions  SectionTag = "related_transactions"
	SectionPrincipalAccountant  SectionTag = "principal_accountant"
	SectionExhibits             SectionTag = "exhibits"
	SectionUnknown              SectionTag = "unknown"
)

// Label renders the tag for display, e.g. "Risk Factors".
func (s SectionTag) Label() string {
	return titleCase(string(s))
}

// ContentType is a heuristic label used to bias retrieval. It is a
// prefilter, not a ground-truth classification.
type ContentType string

const (
	ContentFinancialTable ContentType = "financial_table"
	ContentFinancialData  ContentType = "financial_data"
	ContentRiskFactor     ContentType = "risk_factor"
	ContentGeneral        ContentType = "general"
)

// Chunk is the unit of indexing and retrieval: a contiguous slice of
// filing text with its section tag and table flag.
type Chunk struct {
	Text     string
	Section  SectionTag
	HasTable bool
}

// IndexResult reports what an IndexFiling call wrote to the store.
type IndexResult struct {
	Ticker          string             `json:"ticker"`
	FilingType      string             `json:"filing_type"`
	ChunksIndexed   int                `json:"chunks_indexed"`
	SectionsIndexed map[SectionTag]int `json:"sections_indexed"`
	TablesPreserved int                `json:"tables_preserved"`
}

// SourceRef identifies one retrieved chunk backing an answer.
type SourceRef struct {
	FilingType  string      `json:"filing_type"`
	FilingDate  string      `json:"filing_date"`
	Section     SectionTag  `json:"section"`
	HasTable    bool        `json:"has_table"`
	ContentType ContentType `json:"content_type"`
	ChunkIndex  int         `json:"chunk_index"`
	Score       float64     `json:"score"`
}

// QueryRequest is one grounded question against an indexed ticker.
// Zero-valued filters are not applied.
type QueryRequest struct {
	Question          string
	Ticker            string
	TopK              int
	SectionFilter     SectionTag
	ContentTypeFilter ContentType
}

// QueryResult is ephemeral: recomputed per question, never persisted.
type QueryResult struct {
	Question         string       `json:"question"`
	Answer           string       `json:"answer"`
	Ticker           string       `json:"ticker"`
	Sources          []SourceRef  `json:"sources"`
	ContextUsed      int          `json:"context_used"`
	SectionsSearched []SectionTag `json:"sections_searched"`
}
