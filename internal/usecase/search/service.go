// Package search orchestrates the hybrid pipeline: criteria extraction,
// structured filtering with relaxation, semantic scoring and weighted fusion.
// Every stage is allowed to degrade; only a dead structured store fails the
// search.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain"
	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/result"
	"github.com/casafind/casafind/internal/metrics"
)

// Degradation reasons reported to the caller.
const (
	DegradedExtraction = "extraction_fallback"
	DegradedSemantic   = "semantic_ranking_unavailable"
	DegradedStructured = "structured_filtering_unavailable"
)

// Config tunes the search pipeline.
type Config struct {
	MaxCandidates    int
	DefaultLimit     int
	MaxLimit         int
	RelaxationBudget int
	// SemanticWeight fixes the semantic share of the fused score; negative
	// means adapt to criteria specificity.
	SemanticWeight float64
	FilterTimeout  time.Duration
	RankTimeout    time.Duration
}

// Request is one search turn.
type Request struct {
	Query string
	// Prior carries the previous turn's criteria for conversational
	// refinement; zero value for a fresh search.
	Prior criteria.Criteria
	Limit int
}

// RankedListing pairs a hydrated listing with its scores.
type RankedListing struct {
	Listing listing.Listing
	Scores  result.ScoredResult
}

// Response is the outcome of one search turn.
type Response struct {
	Results []RankedListing
	// Criteria is what actually matched, after sanitization and relaxation.
	Criteria criteria.Criteria
	// MatchedFields lists the structured fields every result satisfied. Empty
	// on the semantic-only degraded path: nothing was filtered.
	MatchedFields   []string
	Warnings        []string
	Relaxations     []string
	Degraded        []string
	TotalCandidates int
}

// Service runs the search pipeline.
type Service struct {
	repo      ListingRepository
	scorer    VectorScorer
	embed     Embedder
	extractor Extractor
	cfg       Config
	logger    *zap.Logger
}

// New creates a search service.
func New(repo ListingRepository, scorer VectorScorer, embed Embedder, extractor Extractor, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		scorer:    scorer,
		embed:     embed,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Search executes one pipeline run. The only error it returns is
// domain.ErrInvalidQuery for unusable input and domain.ErrStoreUnavailable
// when the structured store cannot serve; everything else degrades.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, fmt.Errorf("empty query: %w", domain.ErrInvalidQuery)
	}
	limit := s.clampLimit(req.Limit)

	var resp Response

	// Stage 1: extraction. Never fails; provider outage means the whole
	// query becomes residual text.
	extStart := time.Now()
	ext := s.extractor.Extract(ctx, query, req.Prior)
	metrics.SearchStageDuration.WithLabelValues("extract").Observe(time.Since(extStart).Seconds())

	resp.Criteria = ext.Criteria
	resp.Warnings = ext.Warnings
	if ext.FellBack {
		resp.Degraded = append(resp.Degraded, DegradedExtraction)
	}

	// Stage 2: query embedding. Failure drops the semantic stage, not the
	// search.
	queryVec := s.embedQuery(ctx, query, ext.Criteria, &resp)

	// Stage 3: structured filtering with relaxation.
	candidates, knnScores, err := s.runFilterStage(ctx, queryVec, &resp)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}

	// Stage 4+5: semantic scoring and fusion.
	scored := s.rankCandidates(ctx, queryVec, candidates, knnScores, &resp)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	// Stage 6: hydration.
	results, err := s.hydrate(ctx, scored)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return Response{}, err
	}
	resp.Results = results

	status := "completed"
	if len(resp.Degraded) > 0 {
		status = "degraded"
		for _, reason := range resp.Degraded {
			metrics.SearchDegradedTotal.WithLabelValues(reason).Inc()
		}
	}
	metrics.SearchRequestsTotal.WithLabelValues(status).Inc()

	return resp, nil
}

// embedQuery vectorizes the residual intent, falling back to the full query
// text when extraction captured everything into structured fields.
func (s *Service) embedQuery(ctx context.Context, query string, c criteria.Criteria, resp *Response) []float32 {
	text := c.ResidualText
	if text == "" {
		text = query
	}

	embedCtx, cancel := s.stageContext(ctx, s.cfg.RankTimeout)
	defer cancel()

	start := time.Now()
	emb, err := s.embed.Embed(embedCtx, text)
	metrics.SearchStageDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Warn("query embedding failed, ranking without semantic stage", zap.Error(err))
		resp.Degraded = append(resp.Degraded, DegradedSemantic)
		return nil
	}
	return emb.Embedding
}

// runFilterStage filters with relaxation under the filter deadline. A timeout
// with a usable embedding degrades to a semantic-only KNN pass, whose scores
// come back in the second return value; any other store failure surfaces as
// ErrStoreUnavailable.
func (s *Service) runFilterStage(ctx context.Context, queryVec []float32, resp *Response) ([]listing.Candidate, map[string]float64, error) {
	filterCtx, cancel := s.stageContext(ctx, s.cfg.FilterTimeout)
	defer cancel()

	start := time.Now()
	candidates, matched, relaxations, err := s.filterWithRelaxation(filterCtx, resp.Criteria)
	metrics.SearchStageDuration.WithLabelValues("filter").Observe(time.Since(start).Seconds())

	if err == nil {
		resp.Criteria = matched
		resp.MatchedFields = matched.SpecifiedFields()
		resp.Relaxations = relaxations
		resp.TotalCandidates = len(candidates)
		return candidates, nil, nil
	}

	if errors.Is(err, context.DeadlineExceeded) && len(queryVec) > 0 {
		s.logger.Warn("filter stage timed out, degrading to semantic-only search", zap.Error(err))
		return s.semanticOnly(ctx, queryVec, resp)
	}

	return nil, nil, fmt.Errorf("filter stage: %v: %w", err, domain.ErrStoreUnavailable)
}

// semanticOnly is the degraded path: KNN over the whole index, no structured
// predicate.
func (s *Service) semanticOnly(ctx context.Context, queryVec []float32, resp *Response) ([]listing.Candidate, map[string]float64, error) {
	knnCtx, cancel := s.stageContext(ctx, s.cfg.RankTimeout)
	defer cancel()

	candidates, scores, err := s.repo.KNN(knnCtx, queryVec, s.cfg.MaxCandidates)
	if err != nil {
		return nil, nil, fmt.Errorf("semantic-only fallback: %v: %w", err, domain.ErrStoreUnavailable)
	}

	resp.Degraded = append(resp.Degraded, DegradedStructured)
	resp.TotalCandidates = len(candidates)

	return candidates, scores, nil
}

// rankCandidates scores and fuses. On the degraded semantic-only path the
// scores came with the KNN result; otherwise they are computed against the
// stored vectors. A scoring failure falls back to structured-only ranking.
func (s *Service) rankCandidates(ctx context.Context, queryVec []float32, candidates []listing.Candidate, knnScores map[string]float64, resp *Response) []result.ScoredResult {
	if len(candidates) == 0 {
		return nil
	}

	if knnScores != nil {
		return fuse(candidates, 0, knnScores, 1)
	}

	w := semanticWeight(resp.Criteria, s.cfg.SemanticWeight)

	var semScores map[string]float64
	if len(queryVec) > 0 && w > 0 {
		rankCtx, cancel := s.stageContext(ctx, s.cfg.RankTimeout)
		defer cancel()

		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}

		start := time.Now()
		scores, err := s.scorer.Scores(rankCtx, queryVec, ids)
		metrics.SearchStageDuration.WithLabelValues("rank").Observe(time.Since(start).Seconds())

		if err != nil {
			s.logger.Warn("semantic scoring failed, ranking on structured match only", zap.Error(err))
			resp.Degraded = append(resp.Degraded, DegradedSemantic)
		} else {
			semScores = scores
		}
	}
	if semScores == nil {
		w = 0
	}

	return fuse(candidates, 1, semScores, w)
}

// hydrate loads full listings in fused order, skipping ids that vanished.
func (s *Service) hydrate(ctx context.Context, scored []result.ScoredResult) ([]RankedListing, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]string, len(scored))
	for i, r := range scored {
		ids[i] = r.ID()
	}

	listings, err := s.repo.GetMulti(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %v: %w", err, domain.ErrStoreUnavailable)
	}

	byID := make(map[string]listing.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	results := make([]RankedListing, 0, len(scored))
	for _, r := range scored {
		l, ok := byID[r.ID()]
		if !ok {
			continue
		}
		results = append(results, RankedListing{Listing: l, Scores: r})
	}
	return results, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

func (s *Service) stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
