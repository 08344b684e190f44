package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	tavilyEndpoint   = "https://api.tavily.com/search"
	tavilyMaxResults = 3
)

// TavilyClient implements Searcher against the Tavily search API.
type TavilyClient struct {
	apiKey     string
	httpClient *http.Client
	endpoint   string
}

var _ Searcher = (*TavilyClient)(nil)

// NewTavilyClient reads TAVILY_API_KEY from the environment.
func NewTavilyClient() (*TavilyClient, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY_MISSING: Please set TAVILY_API_KEY env var")
	}
	return &TavilyClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   tavilyEndpoint,
	}, nil
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, query string) ([]SourceResult, error) {
	jsonBytes, err := json.Marshal(tavilyRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: tavilyMaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("TAVILY_MARSHAL_ERROR: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("TAVILY_REQ_CREATE_ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TAVILY_API_CALL_ERROR: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("TAVILY_READ_BODY_ERROR: %v", err)
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("TAVILY_API_ERROR: status=%d body=%s", res.StatusCode, string(body))
	}

	var response tavilyResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("TAVILY_UNMARSHAL_ERROR: %v", err)
	}

	results := make([]SourceResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, SourceResult{
			Query:   query,
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	return results, nil
}
