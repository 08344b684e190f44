package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	companyTickersURL = "https://www.sec.gov/files/company_tickers.json"
	submissionsURL    = "https://data.sec.gov/submissions/CIK%s.json"
	archivesURL       = "https://www.sec.gov/Archives/edgar/data/%s/%s/%s"

	// SEC requires a descriptive User-Agent and caps clients at 10
	// requests per second.
	edgarUserAgent = "FilingAnalyst/1.0 (contact@example.com)"
	edgarRateLimit = 10
)

// EDGARClient implements FilingSource against the SEC EDGAR APIs:
// ticker -> CIK via the company tickers file, filing metadata via the
// submissions API, then the primary document from the archives.
type EDGARClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter

	// URL templates, overridable in tests.
	tickersURL     string
	submissionsFmt string
	archivesFmt    string
}

var _ FilingSource = (*EDGARClient)(nil)

func NewEDGARClient() *EDGARClient {
	return &EDGARClient{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(edgarRateLimit), edgarRateLimit),
		tickersURL:     companyTickersURL,
		submissionsFmt: submissionsURL,
		archivesFmt:    archivesURL,
	}
}

// submissionsResponse mirrors the SEC submissions API: filing
// attributes arrive as parallel arrays.
type submissionsResponse struct {
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// FetchFiling downloads and extracts the latest filing of the given
// form type for a ticker.
func (c *EDGARClient) FetchFiling(ctx context.Context, ticker, filingType string) (*Filing, error) {
	cik, err := c.resolveCIK(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("resolving CIK for %s: %w", ticker, err)
	}

	body, err := c.get(ctx, fmt.Sprintf(c.submissionsFmt, cik))
	if err != nil {
		return nil, fmt.Errorf("fetching submissions for %s: %w", ticker, err)
	}

	var subs submissionsResponse
	if err := json.Unmarshal(body, &subs); err != nil {
		return nil, fmt.Errorf("parsing submissions for %s: %w", ticker, err)
	}

	recent := subs.Filings.Recent
	for i, form := range recent.Form {
		if form != filingType {
			continue
		}
		if i >= len(recent.AccessionNumber) || i >= len(recent.PrimaryDocument) || i >= len(recent.FilingDate) {
			break
		}

		accession := strings.ReplaceAll(recent.AccessionNumber[i], "-", "")
		cikClean := strings.TrimLeft(cik, "0")
		docURL := fmt.Sprintf(c.archivesFmt, cikClean, accession, recent.PrimaryDocument[i])

		html, err := c.get(ctx, docURL)
		if err != nil {
			return nil, fmt.Errorf("downloading filing document: %w", err)
		}

		text, err := ExtractText(string(html))
		if err != nil {
			return nil, fmt.Errorf("extracting filing text: %w", err)
		}
		if text == "" {
			return nil, fmt.Errorf("filing document for %s contained no extractable text", ticker)
		}

		return &Filing{
			Ticker:      strings.ToUpper(ticker),
			FilingType:  filingType,
			FilingDate:  recent.FilingDate[i],
			CompanyName: subs.Name,
			FilingURL:   docURL,
			FullText:    text,
		}, nil
	}

	return nil, fmt.Errorf("no %s filing found for %s", filingType, ticker)
}

// resolveCIK maps a ticker symbol to its zero-padded 10-digit CIK.
func (c *EDGARClient) resolveCIK(ctx context.Context, ticker string) (string, error) {
	body, err := c.get(ctx, c.tickersURL)
	if err != nil {
		return "", err
	}

	var entries map[string]struct {
		CIK    int    `json:"cik_str"`
		Ticker string `json:"ticker"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("parsing company tickers: %w", err)
	}

	want := strings.ToUpper(ticker)
	for _, entry := range entries {
		if entry.Ticker == want {
			return fmt.Sprintf("%010d", entry.CIK), nil
		}
	}
	return "", fmt.Errorf("ticker %s not found in SEC company list", ticker)
}

func (c *EDGARClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", edgarUserAgent)
	req.Header.Set("Accept", "application/json,text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}
