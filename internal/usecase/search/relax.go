package search

import (
	"context"

	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/metrics"
)

// filterWithRelaxation runs the filter stage, progressively dropping
// constraint groups while the candidate set comes back empty. The budget and
// the fixed group order bound the loop, so it always terminates. Returns the
// candidates, the criteria that actually matched and the applied steps.
func (s *Service) filterWithRelaxation(
	ctx context.Context, c criteria.Criteria,
) ([]listing.Candidate, criteria.Criteria, []string, error) {
	var applied []string
	current := c

	for {
		expr, err := Compile(current)
		if err != nil {
			return nil, current, applied, err
		}

		candidates, err := s.repo.Candidates(ctx, expr, s.cfg.MaxCandidates)
		if err != nil {
			return nil, current, applied, err
		}
		if len(candidates) > 0 {
			return candidates, current, applied, nil
		}

		step, ok := s.nextRelaxation(current, len(applied))
		if !ok {
			// Nothing left to drop: a genuinely empty result.
			return nil, current, applied, nil
		}

		current = current.Drop(step)
		applied = append(applied, string(step))
		metrics.SearchRelaxationsTotal.WithLabelValues(string(step)).Inc()
	}
}

// nextRelaxation picks the next constraint group to drop, honoring the budget.
func (s *Service) nextRelaxation(c criteria.Criteria, alreadyApplied int) (criteria.RelaxationStep, bool) {
	if alreadyApplied >= s.cfg.RelaxationBudget {
		return "", false
	}
	for _, step := range criteria.RelaxationOrder {
		if c.Has(step) {
			return step, true
		}
	}
	return "", false
}
