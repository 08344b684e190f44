// Package pinecone is a minimal REST client to a Pinecone serverless
// index. It speaks the data-plane API directly: upsert, query with
// metadata filter, delete-by-namespace.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"filing_analyst/pkg/core/vectorstore"
)

type Config struct {
	Host    string // index host, e.g. https://sec-filings-xxxx.svc.aped-4627-b74a.pinecone.io
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	host   string
	apiKey string
	client *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		host:   cfg.Host,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

var _ vectorstore.Store = (*Client)(nil)

type upsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace"`
}

type pineconeVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata"`
}

type queryRequest struct {
	Vector          []float32              `json:"vector"`
	TopK            int                    `json:"topK"`
	Namespace       string                 `json:"namespace"`
	IncludeMetadata bool                   `json:"includeMetadata"`
	Filter          map[string]interface{} `json:"filter,omitempty"`
}

type queryResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

type deleteRequest struct {
	DeleteAll bool   `json:"deleteAll"`
	Namespace string `json:"namespace"`
}

func (c *Client) Upsert(ctx context.Context, namespace string, vectors []vectorstore.Vector) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	payload := upsertRequest{Namespace: namespace, Vectors: make([]pineconeVector, 0, len(vectors))}
	for _, v := range vectors {
		payload.Vectors = append(payload.Vectors, pineconeVector{
			ID:     v.ID,
			Values: v.Values,
			Metadata: map[string]interface{}{
				"ticker":       v.Metadata.Ticker,
				"filing_type":  v.Metadata.FilingType,
				"filing_date":  v.Metadata.FilingDate,
				"chunk_index":  v.Metadata.ChunkIndex,
				"section":      v.Metadata.Section,
				"has_table":    v.Metadata.HasTable,
				"content_type": v.Metadata.ContentType,
				"text":         v.Metadata.Text,
			},
		})
	}
	return c.postJSON(ctx, c.host+"/vectors/upsert", payload, nil)
}

func (c *Client) Query(ctx context.Context, namespace string, vector []float32, topK int, filter *vectorstore.Filter) ([]vectorstore.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}
	if filter != nil {
		f := map[string]interface{}{}
		if filter.Section != "" {
			f["section"] = map[string]interface{}{"$eq": filter.Section}
		}
		if filter.ContentType != "" {
			f["content_type"] = map[string]interface{}{"$eq": filter.ContentType}
		}
		if len(f) > 0 {
			req.Filter = f
		}
	}

	var resp queryResponse
	if err := c.postJSON(ctx, c.host+"/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]vectorstore.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, vectorstore.Match{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: metadataFromPayload(m.Metadata),
		})
	}
	return matches, nil
}

func (c *Client) DeleteNamespace(ctx context.Context, namespace string) error {
	return c.postJSON(ctx, c.host+"/vectors/delete", deleteRequest{DeleteAll: true, Namespace: namespace}, nil)
}

func metadataFromPayload(payload map[string]interface{}) vectorstore.Metadata {
	md := vectorstore.Metadata{}
	if v, ok := payload["ticker"].(string); ok {
		md.Ticker = v
	}
	if v, ok := payload["filing_type"].(string); ok {
		md.FilingType = v
	}
	if v, ok := payload["filing_date"].(string); ok {
		md.FilingDate = v
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		md.ChunkIndex = int(v)
	}
	if v, ok := payload["section"].(string); ok {
		md.Section = v
	}
	if v, ok := payload["has_table"].(bool); ok {
		md.HasTable = v
	}
	if v, ok := payload["content_type"].(string); ok {
		md.ContentType = v
	}
	if v, ok := payload["text"].(string); ok {
		md.Text = v
	}
	return md
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pinecone POST %s failed: %s (%s)", url, resp.Status, string(msg))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
