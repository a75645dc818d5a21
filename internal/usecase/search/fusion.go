package search

import (
	"sort"

	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/result"
)

// semanticWeight picks the semantic share of the fused score. A non-negative
// configured weight wins; otherwise the weight adapts to how specific the
// criteria are: vague queries lean on semantics, detailed ones on filters.
// With no structured fields at all the search is purely semantic.
func semanticWeight(c criteria.Criteria, configured float64) float64 {
	if configured >= 0 {
		return clamp01(configured)
	}
	n := c.NumSpecified()
	if n == 0 {
		return 1.0
	}
	if n > 4 {
		n = 4
	}
	w := 0.7 - 0.1*float64(n)
	if w < 0.3 {
		w = 0.3
	}
	return w
}

// fuse combines structured and semantic scores into the final ranking:
// fused = (1-w)*structured + w*semantic. Candidates without an embedding
// (negative semantic score) rank on their structured score alone. The sort is
// fused descending with the stable candidate rank as tie-break, so identical
// inputs always produce identical orderings.
func fuse(candidates []listing.Candidate, structured float64, semScores map[string]float64, w float64) []result.ScoredResult {
	scored := make([]result.ScoredResult, 0, len(candidates))
	for _, c := range candidates {
		sem, ok := semScores[c.ID]
		if !ok || sem < 0 {
			sem = 0
		}
		fused := (1-w)*structured + w*sem
		scored = append(scored, result.New(c.ID, c.Rank, structured, sem, fused))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Fused() != scored[j].Fused() {
			return scored[i].Fused() > scored[j].Fused()
		}
		return scored[i].Rank() < scored[j].Rank()
	})

	return scored
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
