package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"filing_analyst/pkg/core/llm"
	"filing_analyst/pkg/core/logger"
	"filing_analyst/pkg/core/prompt"
)

const (
	angleCount = 5
	// qualityFactor caps confidence below 1 even at full angle coverage:
	// web search results are never authoritative.
	qualityFactor = 0.8
)

// Service fans a base query out into several search angles, runs them
// concurrently, and synthesizes the hits into one finding.
type Service struct {
	searcher Searcher
	provider llm.Provider
}

func NewService(searcher Searcher, provider llm.Provider) *Service {
	return &Service{searcher: searcher, provider: provider}
}

// searchAngles widens a query for better coverage.
func searchAngles(baseQuery string) []string {
	return []string{
		baseQuery,
		fmt.Sprintf("%s analysis %d", baseQuery, time.Now().Year()),
		baseQuery + " expert opinion",
		baseQuery + " SEC filing",
		baseQuery + " news recent",
	}
}

// MultiAngleSearch executes every angle concurrently and synthesizes the
// surviving results. A failed angle is dropped, not fatal; confidence is
// the fraction of surviving angles scaled by qualityFactor. With zero
// surviving angles the result carries no synthesis and confidence 0.
func (s *Service) MultiAngleSearch(ctx context.Context, baseQuery string) (*Result, error) {
	angles := searchAngles(baseQuery)

	perAngle := make([][]SourceResult, len(angles))
	g, gctx := errgroup.WithContext(ctx)
	for i, angle := range angles {
		g.Go(func() error {
			hits, err := s.searcher.Search(gctx, angle)
			if err != nil {
				logger.Log.Warnf("search angle %q failed: %v", angle, err)
				return nil
			}
			perAngle[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var sources []SourceResult
	survivingAngles := 0
	for _, hits := range perAngle {
		if len(hits) == 0 {
			continue
		}
		survivingAngles++
		sources = append(sources, hits...)
	}

	result := &Result{Query: baseQuery, Sources: sources}
	if survivingAngles == 0 {
		return result, nil
	}

	coverage := float64(survivingAngles) / float64(angleCount)
	if coverage > 1 {
		coverage = 1
	}
	result.Confidence = coverage * qualityFactor
	result.Synthesis = s.synthesize(ctx, baseQuery, sources)
	return result, nil
}

func (s *Service) synthesize(ctx context.Context, query string, sources []SourceResult) string {
	var sb strings.Builder
	for i, src := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if src.Title != "" {
			sb.WriteString(src.Title)
			sb.WriteString(": ")
		}
		sb.WriteString(src.Content)
	}

	pt, err := prompt.Get().GetPrompt("search.synthesis")
	if err != nil {
		return "Unable to synthesize results"
	}
	userPrompt, err := prompt.Render(pt, map[string]interface{}{
		"Query":   query,
		"Results": sb.String(),
	})
	if err != nil {
		return "Unable to synthesize results"
	}

	synthesis, err := s.provider.GenerateResponse(ctx, userPrompt, pt.SystemPrompt, map[string]interface{}{
		"temperature": 0.3,
	})
	if err != nil {
		logger.Log.Warnf("search synthesis failed: %v", err)
		return "Unable to synthesize results"
	}
	return synthesis
}
