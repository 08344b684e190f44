package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractTextConvertsTables(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
<p>ITEM 8. Financial Statements</p>
<table>
<tr><th>Metric</th><th>2023</th><th>2022</th></tr>
<tr><td>Revenue</td><td>$394.3</td><td>$365.8</td></tr>
<tr><td>Net income</td><td>$97.0</td><td>$99.8</td></tr>
</table>
<p>Revenue increased year over year.</p>
</body></html>`

	text, err := ExtractText(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "| Metric | 2023 | 2022 |") {
		t.Errorf("missing pipe header row in:\n%s", text)
	}
	if !strings.Contains(text, "| --- | --- | --- |") {
		t.Errorf("missing separator row in:\n%s", text)
	}
	if !strings.Contains(text, "| Revenue | $394.3 | $365.8 |") {
		t.Errorf("missing data row in:\n%s", text)
	}
	if !strings.Contains(text, "ITEM 8. Financial Statements") {
		t.Errorf("missing section marker in:\n%s", text)
	}
	if strings.Contains(text, "color:red") {
		t.Error("style content leaked into extracted text")
	}
}

func TestExtractTextDropsDegenerateTables(t *testing.T) {
	html := `<html><body><p>Some prose here.</p><table><tr><td>lonely</td></tr></table></body></html>`
	text, err := ExtractText(html)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(text, "|") {
		t.Errorf("single-row table should be dropped, got:\n%s", text)
	}
}

func TestFetchFiling(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Apple Inc.","filings":{"recent":{
			"accessionNumber":["0000320193-24-000001","0000320193-23-000106"],
			"filingDate":["2024-02-02","2023-11-03"],
			"form":["8-K","10-K"],
			"primaryDocument":["a8k.htm","aapl-20230930.htm"]}}}`))
	})
	mux.HandleFunc("/archives/320193/000032019323000106/aapl-20230930.htm", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>ITEM 1. Business</p><p>Apple designs smartphones.</p></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewEDGARClient()
	client.tickersURL = server.URL + "/company_tickers.json"
	client.submissionsFmt = server.URL + "/submissions/CIK%s.json"
	client.archivesFmt = server.URL + "/archives/%s/%s/%s"

	filing, err := client.FetchFiling(context.Background(), "aapl", "10-K")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filing.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", filing.Ticker)
	}
	if filing.FilingDate != "2023-11-03" {
		t.Errorf("filing date = %q, want 2023-11-03 (first matching form, not the 8-K)", filing.FilingDate)
	}
	if filing.CompanyName != "Apple Inc." {
		t.Errorf("company name = %q", filing.CompanyName)
	}
	if !strings.Contains(filing.FullText, "Apple designs smartphones.") {
		t.Errorf("full text missing body: %q", filing.FullText)
	}
}

func TestFetchFilingUnknownTicker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewEDGARClient()
	client.tickersURL = server.URL + "/company_tickers.json"

	_, err := client.FetchFiling(context.Background(), "ZZZZ", "10-K")
	if err == nil {
		t.Fatal("expected error for unknown ticker")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v", err)
	}
}
