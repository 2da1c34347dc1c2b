package rerank

import (
	"context"
	"fmt"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
)

const (
	StrategyMMR  = "mmr"
	StrategyNone = "none"
)

const DefaultLambda = 0.7

// Reranker selects a final candidate set from an over-fetched pool.
type Reranker interface {
	Rerank(ctx context.Context, matches []vectordb.Match, k int) []vectordb.Match
	Strategy() string
}

// Config selects the re-ranking strategy. Lambda weighs relevance against
// diversity for the MMR strategy and is ignored by the passthrough.
type Config struct {
	Strategy string
	Lambda   float64
}

// New builds a reranker. Unknown strategy names are construction errors.
func New(cfg Config) (Reranker, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyMMR
	}
	switch cfg.Strategy {
	case StrategyMMR:
		lambda := cfg.Lambda
		if lambda == 0 {
			lambda = DefaultLambda
		}
		if lambda < 0 || lambda > 1 {
			return nil, fmt.Errorf("rerank: lambda %v must be within [0,1]", cfg.Lambda)
		}
		return &mmrReranker{lambda: lambda}, nil
	case StrategyNone:
		return &noopReranker{}, nil
	default:
		return nil, fmt.Errorf("rerank: strategy %q is not supported", cfg.Strategy)
	}
}

// noopReranker truncates the similarity-ordered list to k.
type noopReranker struct{}

func (r *noopReranker) Strategy() string { return StrategyNone }

func (r *noopReranker) Rerank(_ context.Context, matches []vectordb.Match, k int) []vectordb.Match {
	if k <= 0 || len(matches) <= k {
		return matches
	}
	return matches[:k]
}

func sourceID(match *vectordb.Match) string {
	if value, ok := match.Metadata[evidence.MetaSourceID]; ok {
		return fmt.Sprint(value)
	}
	return match.ID
}
