// Package query exposes ad-hoc question answering against an indexed
// filing.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"filing_analyst/pkg/core/rag"
)

// Engine answers questions against indexed filings.
type Engine interface {
	Query(ctx context.Context, req rag.QueryRequest) (*rag.QueryResult, error)
	SuggestedQuestions(ticker string) []string
}

var engine Engine

func InitHandler(eng Engine) {
	engine = eng
}

type questionRequest struct {
	Ticker   string `json:"ticker"`
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// HandleQuestion serves POST /question.
func HandleQuestion(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != "POST" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Ticker == "" || req.Question == "" {
		http.Error(w, "ticker and question are required", http.StatusBadRequest)
		return
	}

	result, err := engine.Query(r.Context(), rag.QueryRequest{
		Question: req.Question,
		Ticker:   strings.ToUpper(req.Ticker),
		TopK:     req.TopK,
	})
	if err != nil {
		if errors.Is(err, rag.ErrNoIndexedData) {
			http.Error(w, "no indexed filing for "+strings.ToUpper(req.Ticker), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// HandleSuggestedQuestions serves GET /suggested-questions/{ticker}.
func HandleSuggestedQuestions(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	ticker := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/suggested-questions/"))
	if ticker == "" {
		http.Error(w, "ticker is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ticker":    ticker,
		"questions": engine.SuggestedQuestions(ticker),
	})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
