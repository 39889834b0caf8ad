// Package enrich turns raw vacancy descriptions into a StructuredAnalysis
// through a tiered fallback chain: AI classifier, local heuristics, then a
// minimal regex extractor. Enrichment never fails; the final stage always
// yields a populated analysis.
package enrich

import (
	"context"
	"log/slog"

	"github.com/mkorchagin/vacradar/internal/model"
)

// Strategy is one stage of the fallback chain.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, title, description string) (model.StructuredAnalysis, error)
}

// Chain tries each strategy in order and returns the first success. The
// whole analysis comes from exactly one stage; stage outputs are never
// merged, so technologies and salary always share the same provenance.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewChain creates an enrichment chain. Strategies are attempted in the
// given order.
func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// Enrich runs the chain. Any error, timeout included, advances to the next
// stage; the minimal extractor at the end cannot fail, so the result is
// always usable.
func (c *Chain) Enrich(ctx context.Context, title, description string) model.StructuredAnalysis {
	for _, s := range c.strategies {
		analysis, err := s.Analyze(ctx, title, description)
		if err != nil {
			c.logger.Debug("enrichment stage failed, falling back",
				"stage", s.Name(),
				"error", err,
			)
			continue
		}
		analysis.Stage = s.Name()
		return analysis
	}

	// Reached only when the chain was built without a Minimal tail.
	analysis := minimalAnalysis(title, description)
	analysis.Stage = StageMinimal
	return analysis
}

// Stage names recorded on the produced analysis.
const (
	StageAI        = "ai"
	StageHeuristic = "heuristic"
	StageMinimal   = "minimal"
)
