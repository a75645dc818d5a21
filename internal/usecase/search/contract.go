package search

import (
	"context"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/filter"
	"github.com/casafind/casafind/internal/usecase/extract"
)

// ListingRepository defines the structured store contract for search.
type ListingRepository interface {
	// Candidates returns at most max candidates matching filters, in the
	// stable order (created_at desc, id asc) with ranks assigned.
	Candidates(ctx context.Context, filters filter.Expression, max int) ([]listing.Candidate, error)

	// KNN returns candidates by vector similarity over the whole index,
	// with their semantic scores. Serves the degraded path.
	KNN(ctx context.Context, vector []float32, k int) ([]listing.Candidate, map[string]float64, error)

	// GetMulti hydrates full listings, preserving input order.
	GetMulti(ctx context.Context, ids []string) ([]listing.Listing, error)
}

// VectorScorer scores candidate ids against a query embedding. Missing
// embeddings score negative.
type VectorScorer interface {
	Scores(ctx context.Context, queryVec []float32, ids []string) (map[string]float64, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Extractor extracts structured criteria from free text. It never fails: a
// provider outage degrades to residual-only criteria.
type Extractor interface {
	Extract(ctx context.Context, query string, prior criteria.Criteria) extract.Result
}
