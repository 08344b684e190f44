// Package analysis exposes the asynchronous analysis API: a POST
// starts a background job, and status polling returns the job record
// including the final report once the run completes.
package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"filing_analyst/pkg/api/jobs"
	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/logger"
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/store"
)

// Engine is the slice of the RAG engine the handlers use.
type Engine interface {
	IndexFiling(ctx context.Context, filingText, ticker, filingType, filingDate string) (*rag.IndexResult, error)
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
	DeleteFiling(ctx context.Context, ticker string) error
}

var (
	registry  *jobs.Registry
	source    ingest.FilingSource
	engine    Engine
	extractor agent.MetricExtractor
	searcher  agent.MarketSearcher
	provider  llm.Provider
	reports   *store.ReportRepo
	agentCfg  agent.Config
)

// InitHandler wires the handler's collaborators. reports may be nil to
// skip persistence.
func InitHandler(reg *jobs.Registry, src ingest.FilingSource, eng Engine, ext agent.MetricExtractor, sea agent.MarketSearcher, prov llm.Provider, repo *store.ReportRepo, cfg agent.Config) {
	registry = reg
	source = src
	engine = eng
	extractor = ext
	searcher = sea
	provider = prov
	reports = repo
	agentCfg = cfg
}

type analyzeRequest struct {
	Ticker     string `json:"ticker"`
	FilingType string `json:"filing_type"`
}

// HandleAnalyzeAsync starts a background analysis job and returns its
// id immediately.
func HandleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}
	if req.FilingType == "" {
		req.FilingType = "10-K"
	}

	job := registry.Create(strings.ToUpper(req.Ticker), req.FilingType)
	go runJob(job.ID, job.Ticker, job.FilingType)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

// runJob drives one analysis end to end, updating the job record at
// each stage. It is the only writer for its job id.
func runJob(jobID, ticker, filingType string) {
	ctx := context.Background()

	registry.Update(jobID, func(j *jobs.Job) { j.Status = jobs.StatusDownloading })
	filing, err := source.FetchFiling(ctx, ticker, filingType)
	if err != nil {
		logger.Log.Errorf("job %s: download failed: %v", jobID, err)
		registry.Update(jobID, func(j *jobs.Job) {
			j.Status = jobs.StatusFailed
			j.Error = "Failed to download filing"
		})
		return
	}
	registry.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusIndexing
		j.CompanyName = filing.CompanyName
		j.FilingDate = filing.FilingDate
	})

	indexResult, err := engine.IndexFiling(ctx, filing.FullText, ticker, filing.FilingType, filing.FilingDate)
	if err != nil {
		logger.Log.Errorf("job %s: indexing failed: %v", jobID, err)
		registry.Update(jobID, func(j *jobs.Job) {
			j.Status = jobs.StatusFailed
			j.Error = "Failed to index filing"
		})
		return
	}
	registry.Update(jobID, func(j *jobs.Job) {
		j.Status = jobs.StatusAnalyzing
		j.ChunksIndexed = indexResult.ChunksIndexed
	})

	cfg := agentCfg
	cfg.FilingType = filingType
	analyst := agent.NewAnalyst(ticker, cfg, source, engine, extractor, searcher, provider)
	analyst.SetFiling(filing)
	report := analyst.Run(ctx)

	if reports != nil {
		if err := reports.Save(ctx, report); err != nil {
			logger.Log.Warnf("job %s: saving report failed: %v", jobID, err)
		}
	}

	registry.Update(jobID, func(j *jobs.Job) {
		j.Report = report
		if report.Status == "success" {
			j.Status = jobs.StatusCompleted
		} else {
			j.Status = jobs.StatusFailed
			j.Error = report.Error
		}
	})
}

// HandleAnalysisStatus serves GET /analysis/{job_id}.
func HandleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/analysis/")
	if jobID == "" {
		http.Error(w, "job id is required", http.StatusBadRequest)
		return
	}

	job := registry.Get(jobID)
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// HandleListJobs serves GET /jobs.
func HandleListJobs(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"jobs": registry.List()})
}

// HandleDeleteFiling serves DELETE /filing/{ticker}: purges a ticker's
// indexed vectors.
func HandleDeleteFiling(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "DELETE" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ticker := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/filing/"))
	if ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	if err := engine.DeleteFiling(r.Context(), ticker); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "ticker": ticker})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
