package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filing_analyst/pkg/core/agent"
)

// ReportRepo stores final analysis reports keyed by ticker. With a
// database pool it upserts into Postgres; without one it writes JSON
// files under fileDir.
//
// Schema assumption (managed outside this package):
//
//	CREATE TABLE IF NOT EXISTS analysis_reports (
//	  ticker TEXT PRIMARY KEY,
//	  filing_type TEXT,
//	  recommendation TEXT,
//	  confidence DOUBLE PRECISION,
//	  report_json JSONB,
//	  updated_at TIMESTAMPTZ
//	);
type ReportRepo struct {
	pool    *pgxpool.Pool
	fileDir string
}

// NewReportRepo builds a repo. A nil pool with an empty dir defaults to
// a local .cache directory.
func NewReportRepo(pool *pgxpool.Pool, dir string) *ReportRepo {
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "reports")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Printf("[WARNING] report dir unavailable: %v\n", err)
		}
	}
	return &ReportRepo{pool: pool, fileDir: dir}
}

// Save upserts the report under its ticker; the latest analysis wins.
func (r *ReportRepo) Save(ctx context.Context, report *agent.Report) error {
	reportJSON, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if r.pool != nil {
		query := `
			INSERT INTO analysis_reports (ticker, filing_type, recommendation, confidence, report_json, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (ticker)
			DO UPDATE SET
				filing_type = EXCLUDED.filing_type,
				recommendation = EXCLUDED.recommendation,
				confidence = EXCLUDED.confidence,
				report_json = EXCLUDED.report_json,
				updated_at = EXCLUDED.updated_at
		`
		if _, err := r.pool.Exec(ctx, query,
			report.Ticker, report.FilingType, report.Recommendation,
			report.Confidence, reportJSON, time.Now()); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		return nil
	}

	if r.fileDir != "" {
		if err := os.WriteFile(r.tickerPath(report.Ticker), reportJSON, 0644); err != nil {
			return fmt.Errorf("failed to save report file: %w", err)
		}
	}
	return nil
}

// Load returns the stored report for a ticker, or nil when none exists.
func (r *ReportRepo) Load(ctx context.Context, ticker string) (*agent.Report, error) {
	ticker = strings.ToUpper(ticker)

	if r.pool != nil {
		var reportJSON []byte
		err := r.pool.QueryRow(ctx,
			`SELECT report_json FROM analysis_reports WHERE ticker = $1`, ticker).Scan(&reportJSON)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to load report: %w", err)
		}
		return unmarshalReport(reportJSON)
	}

	if r.fileDir != "" {
		reportJSON, err := os.ReadFile(r.tickerPath(ticker))
		if err != nil {
			return nil, nil
		}
		return unmarshalReport(reportJSON)
	}
	return nil, nil
}

func (r *ReportRepo) tickerPath(ticker string) string {
	return filepath.Join(r.fileDir, strings.ToUpper(ticker)+".json")
}

func unmarshalReport(data []byte) (*agent.Report, error) {
	var report agent.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
