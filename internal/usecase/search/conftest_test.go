package search

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/filter"
	"github.com/casafind/casafind/internal/usecase/extract"
)

// mockRepo implements ListingRepository for tests.
type mockRepo struct {
	candidatesFn func(ctx context.Context, filters filter.Expression, max int) ([]listing.Candidate, error)
	knnFn        func(ctx context.Context, vector []float32, k int) ([]listing.Candidate, map[string]float64, error)
	getMultiFn   func(ctx context.Context, ids []string) ([]listing.Listing, error)
}

func (m *mockRepo) Candidates(ctx context.Context, filters filter.Expression, max int) ([]listing.Candidate, error) {
	if m.candidatesFn != nil {
		return m.candidatesFn(ctx, filters, max)
	}
	return nil, nil
}

func (m *mockRepo) KNN(ctx context.Context, vector []float32, k int) ([]listing.Candidate, map[string]float64, error) {
	if m.knnFn != nil {
		return m.knnFn(ctx, vector, k)
	}
	return nil, nil, nil
}

func (m *mockRepo) GetMulti(ctx context.Context, ids []string) ([]listing.Listing, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, ids)
	}
	// Default: hydrate a bare listing per id.
	out := make([]listing.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, listing.Listing{ID: id})
	}
	return out, nil
}

// mockScorer implements VectorScorer for tests.
type mockScorer struct {
	scoresFn func(ctx context.Context, queryVec []float32, ids []string) (map[string]float64, error)
}

func (m *mockScorer) Scores(ctx context.Context, queryVec []float32, ids []string) (map[string]float64, error) {
	if m.scoresFn != nil {
		return m.scoresFn(ctx, queryVec, ids)
	}
	return map[string]float64{}, nil
}

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

// mockExtractor implements Extractor for tests.
type mockExtractor struct {
	extractFn func(ctx context.Context, query string, prior criteria.Criteria) extract.Result
}

func (m *mockExtractor) Extract(ctx context.Context, query string, prior criteria.Criteria) extract.Result {
	if m.extractFn != nil {
		return m.extractFn(ctx, query, prior)
	}
	return extract.Result{Criteria: criteria.Criteria{ResidualText: query}}
}

type testMocks struct {
	repo      *mockRepo
	scorer    *mockScorer
	embedder  *mockEmbedder
	extractor *mockExtractor
}

func newTestService(t *testing.T) (*Service, *testMocks) {
	t.Helper()
	m := &testMocks{
		repo:      &mockRepo{},
		scorer:    &mockScorer{},
		embedder:  &mockEmbedder{},
		extractor: &mockExtractor{},
	}
	svc := New(m.repo, m.scorer, m.embedder, m.extractor, Config{
		MaxCandidates:    300,
		DefaultLimit:     5,
		MaxLimit:         50,
		RelaxationBudget: 3,
		SemanticWeight:   -1,
		FilterTimeout:    time.Second,
		RankTimeout:      time.Second,
	}, zap.NewNop())
	return svc, m
}

// fixedCriteria returns an extractor that always yields the given criteria.
func fixedCriteria(c criteria.Criteria) func(context.Context, string, criteria.Criteria) extract.Result {
	return func(context.Context, string, criteria.Criteria) extract.Result {
		return extract.Result{Criteria: c}
	}
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
