// Package extract runs criteria extraction with a deadline, a circuit breaker
// and a residual-only fallback, so a flaky LLM provider can slow a search down
// but never fail it.
package extract

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/metrics"
)

// Config tunes the extraction stage.
type Config struct {
	Timeout             time.Duration
	BreakerFailureRatio float64
	BreakerCooldown     time.Duration
}

// Result is the outcome of one extraction: sanitized criteria merged over the
// prior turn, plus what happened along the way.
type Result struct {
	Criteria criteria.Criteria
	Warnings []string
	// FellBack is true when the provider was skipped or failed and the whole
	// query became residual text.
	FellBack bool
}

// Service handles criteria extraction.
type Service struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates an extraction service.
func New(provider Provider, cfg Config, logger *zap.Logger) *Service {
	failureRatio := cfg.BreakerFailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "criteria-extraction",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("extraction breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Service{
		provider: provider,
		breaker:  breaker,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Extract extracts criteria from query, merges them over prior (a previous
// turn's criteria, empty for a fresh search) and sanitizes the merge. Provider
// failure of any kind degrades to residual-only criteria.
func (s *Service) Extract(ctx context.Context, query string, prior criteria.Criteria) Result {
	extracted, ok := s.tryProvider(ctx, query)
	if !ok {
		metrics.ExtractionFallbacksTotal.Inc()
		extracted = criteria.Criteria{ResidualText: query}
	}

	merged := criteria.Merge(prior, extracted)
	sanitized, warnings := merged.Sanitize()

	return Result{
		Criteria: sanitized,
		Warnings: warnings,
		FellBack: !ok,
	}
}

func (s *Service) tryProvider(ctx context.Context, query string) (criteria.Criteria, bool) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Extract(ctx, query)
	})
	if err != nil {
		s.logger.Warn("criteria extraction failed, using residual-only fallback", zap.Error(err))
		return criteria.Criteria{}, false
	}

	return out.(criteria.Criteria), true
}
