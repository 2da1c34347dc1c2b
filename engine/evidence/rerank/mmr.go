package rerank

import (
	"context"

	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
)

// mmrReranker applies Maximal Marginal Relevance with a document-level
// diversity term: instead of pairwise embedding similarity, diversity is the
// fraction of distinct source documents a candidate would add to the selected
// set. This is a deliberate simplification kept for predictable behavior on
// small evidence pools.
type mmrReranker struct {
	lambda float64
}

func (r *mmrReranker) Strategy() string { return StrategyMMR }

func (r *mmrReranker) Rerank(_ context.Context, matches []vectordb.Match, k int) []vectordb.Match {
	if k <= 0 || len(matches) == 0 {
		return nil
	}
	if len(matches) <= 1 {
		return matches
	}
	remaining := make([]vectordb.Match, len(matches))
	copy(remaining, matches)

	// seed with the single most relevant candidate
	best := 0
	for i := 1; i < len(remaining); i++ {
		if remaining[i].Score > remaining[best].Score {
			best = i
		}
	}
	selected := make([]vectordb.Match, 0, k)
	selectedDocs := make(map[string]struct{})
	selected = append(selected, remaining[best])
	selectedDocs[sourceID(&remaining[best])] = struct{}{}
	remaining = append(remaining[:best], remaining[best+1:]...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := r.mmrScore(&remaining[0], selectedDocs, len(selected))
		for i := 1; i < len(remaining); i++ {
			if score := r.mmrScore(&remaining[i], selectedDocs, len(selected)); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		selectedDocs[sourceID(&remaining[bestIdx])] = struct{}{}
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// mmrScore blends relevance with the fraction of distinct source documents
// the candidate would contribute to the already-selected set.
func (r *mmrReranker) mmrScore(match *vectordb.Match, selectedDocs map[string]struct{}, selectedCount int) float64 {
	uniqueDocs := len(selectedDocs)
	if _, seen := selectedDocs[sourceID(match)]; !seen {
		uniqueDocs++
	}
	diversity := float64(uniqueDocs) / float64(selectedCount+1)
	return r.lambda*match.Score + (1-r.lambda)*diversity
}
