// Package vectorstore defines the namespaced similarity index the RAG
// engine persists into. The namespace is the ticker symbol and is the
// isolation unit: a search never crosses namespaces.
package vectorstore

import "context"

// Metadata is the payload stored alongside every vector.
type Metadata struct {
	Ticker      string `json:"ticker"`
	FilingType  string `json:"filing_type"`
	FilingDate  string `json:"filing_date"`
	ChunkIndex  int    `json:"chunk_index"`
	Section     string `json:"section"`
	HasTable    bool   `json:"has_table"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// Vector is one indexed chunk. IDs are deterministic
// (ticker_filingType_filingDate_ordinal) so re-indexing overwrites.
type Vector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// Filter restricts a similarity search by exact metadata match.
// Empty fields are not applied.
type Filter struct {
	Section     string
	ContentType string
}

// Match is a similarity search hit.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Store is the external similarity index. Upserts are last-write-wins at
// the vector-id level; no transactions.
type Store interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter *Filter) ([]Match, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}
