package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

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

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	ticker := flag.String("ticker", "", "stock ticker symbol (required)")
	filingType := flag.String("filing", "10-K", "filing type: 10-K or 10-Q")
	providerName := flag.String("provider", "gemini", "llm provider: gemini or deepseek")
	maxIterations := flag.Int("max-iterations", agent.DefaultMaxIterations, "agent iteration budget")
	threshold := flag.Float64("threshold", agent.DefaultConfidenceThreshold, "confidence threshold")
	flag.Parse()

	if *ticker == "" {
		fmt.Println("Usage: analyze -ticker AAPL [-filing 10-K] [-provider gemini]")
		os.Exit(1)
	}

	if err := logger.Init(os.Getenv("LOG_LEVEL"), ""); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	ctx := context.Background()

	mgr := agent.NewProviderManager(agent.ProvidersConfig{})
	if err := mgr.SetActiveProvider(*providerName); err != nil {
		log.Fatalf("unknown provider %q (use gemini or deepseek)", *providerName)
	}
	provider := mgr.ProviderFor("analysis")

	embedder, err := llm.NewGeminiEmbedder(ctx)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	defer embedder.Close()

	engine := rag.NewEngine(embedder, provider, buildVectorStore())
	extractor := metrics.NewExtractor(engine, provider)
	searchService := search.NewService(buildSearcher(), provider)

	cfg := agent.Config{
		FilingType:          *filingType,
		MaxIterations:       *maxIterations,
		ConfidenceThreshold: *threshold,
	}
	analyst := agent.NewAnalyst(*ticker, cfg, ingest.NewEDGARClient(), engine, extractor, searchService, provider)

	report := analyst.Run(ctx)
	printReport(report)

	repo := buildReportRepo(ctx)
	if err := repo.Save(ctx, report); err != nil {
		fmt.Printf("[WARNING] failed to persist report: %v\n", err)
	}

	if report.Status != "success" {
		os.Exit(1)
	}
}

// buildVectorStore uses Pinecone when configured, otherwise the
// in-process store (single-run analyses don't need persistence).
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

func buildReportRepo(ctx context.Context) *store.ReportRepo {
	if err := store.InitDB(ctx); err != nil {
		return store.NewReportRepo(nil, "")
	}
	return store.NewReportRepo(store.GetPool(), "")
}

func printReport(report *agent.Report) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("  ANALYSIS: %s (%s)\n", report.Ticker, report.CompanyName)
	fmt.Println(strings.Repeat("=", 60))

	if report.Status != "success" {
		fmt.Printf("Status: FAILED - %s\n", report.Error)
		for _, s := range report.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
		return
	}

	fmt.Printf("Filing: %s dated %s\n", report.FilingType, report.FilingDate)
	fmt.Printf("Confidence: %.0f%%\n\n", report.Confidence*100)

	fmt.Println("METRICS")
	names := make([]string, 0, len(report.Metrics))
	for name := range report.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := report.Metrics[name]
		fmt.Printf("  %-18s %s (confidence %.2f, %s)\n", name, m.Display, m.Confidence, m.Section)
	}

	printSection := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Printf("\n%s\n", title)
		for _, line := range lines {
			fmt.Printf("  - %s\n", line)
		}
	}
	printSection("INSIGHTS", report.Insights)
	printSection("RISKS", report.Risks)
	printSection("OPPORTUNITIES", report.Opportunities)

	fmt.Printf("\nRECOMMENDATION: %s\n", report.Recommendation)
	if report.Summary != "" {
		fmt.Printf("\n%s\n", report.Summary)
	}
	fmt.Println(strings.Repeat("=", 60))
}
