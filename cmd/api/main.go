package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"filing_analyst/pkg/api/analysis"
	"filing_analyst/pkg/api/jobs"
	"filing_analyst/pkg/api/query"
	"filing_analyst/pkg/core/agent"
	"filing_analyst/pkg/core/ingest"
	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/logger"
	"filing_analyst/pkg/core/metrics"
	"filing_analyst/pkg/core/rag"
	"filing_analyst/pkg/core/search"
	"filing_analyst/pkg/core/store"
	"filing_analyst/pkg/core/vectorstore"
	"filing_analyst/pkg/core/vectorstore/memory"
	"filing_analyst/pkg/core/vectorstore/pinecone"
)

type serverConfig struct {
	Port      string                `yaml:"port"`
	Providers agent.ProvidersConfig `yaml:"providers"`
	Agent     struct {
		MaxIterations       int     `yaml:"max_iterations"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	} `yaml:"agent"`
}

func main() {
	godotenv.Load()

	if err := logger.Init(os.Getenv("LOG_LEVEL"), ""); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	cfg := loadConfig("config/server.yaml")

	ctx := context.Background()

	mgr := agent.NewProviderManager(cfg.Providers)
	provider := mgr.ProviderFor("analysis")

	embedder, err := llm.NewGeminiEmbedder(ctx)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	defer embedder.Close()

	engine := rag.NewEngine(embedder, provider, buildVectorStore())
	extractor := metrics.NewExtractor(engine, provider)
	searchService := search.NewService(buildSearcher(), provider)

	var reportRepo *store.ReportRepo
	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[INFO] database unavailable (%v), using file reports\n", err)
		reportRepo = store.NewReportRepo(nil, "")
	} else {
		reportRepo = store.NewReportRepo(store.GetPool(), "")
		defer store.Close()
	}

	agentCfg := agent.DefaultConfig()
	if cfg.Agent.MaxIterations > 0 {
		agentCfg.MaxIterations = cfg.Agent.MaxIterations
	}
	if cfg.Agent.ConfidenceThreshold > 0 {
		agentCfg.ConfidenceThreshold = cfg.Agent.ConfidenceThreshold
	}

	analysis.InitHandler(jobs.NewRegistry(), ingest.NewEDGARClient(), engine, extractor, searchService, provider, reportRepo, agentCfg)
	query.InitHandler(engine)

	http.HandleFunc("/", handleRoot)
	http.HandleFunc("/analyze/async", analysis.HandleAnalyzeAsync)
	http.HandleFunc("/analysis/", analysis.HandleAnalysisStatus)
	http.HandleFunc("/jobs", analysis.HandleListJobs)
	http.HandleFunc("/filing/", analysis.HandleDeleteFiling)
	http.HandleFunc("/question", query.HandleQuestion)
	http.HandleFunc("/suggested-questions/", query.HandleSuggestedQuestions)

	port := cfg.Port
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	if port == "" {
		port = "8000"
	}

	fmt.Printf("Filing analysis API listening on :%s\n", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func loadConfig(path string) serverConfig {
	var cfg serverConfig
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("[INFO] no config at %s, using defaults\n", path)
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("[WARNING] bad config %s: %v\n", path, err)
	}
	return cfg
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "filing-analyst",
		"status":  "ok",
	})
}

func buildVectorStore() vectorstore.Store {
	host := os.Getenv("PINECONE_HOST")
	apiKey := os.Getenv("PINECONE_API_KEY")
	if host != "" && apiKey != "" {
		return pinecone.NewClient(pinecone.Config{Host: host, APIKey: apiKey})
	}
	fmt.Println("[INFO] PINECONE_HOST/PINECONE_API_KEY not set, using in-memory vector store")
	return memory.NewStore()
}

func buildSearcher() search.Searcher {
	tavily, err := search.NewTavilyClient()
	if err != nil {
		fmt.Println("[INFO] TAVILY_API_KEY not set, market search disabled")
		return search.DisabledSearcher{}
	}
	return tavily
}
