// Package vector scores candidate listings against a query embedding. It
// reads stored vectors in one pipelined round-trip and computes similarities
// locally on a bounded worker pool, so the candidate set never leaves the
// filter stage's stable order.
package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/casafind/casafind/internal/db"
	"github.com/casafind/casafind/internal/domain/listing"
)

// MissingScore marks a candidate without a stored embedding. Callers keep the
// candidate and treat the score as zero similarity.
const MissingScore = -1

// store is the consumer interface for vector reads (ISP).
type store interface {
	HGetFieldMulti(ctx context.Context, keys []string, field string) ([]string, error)
}

// Config holds storage layout and scoring parameters.
type Config struct {
	KeyPrefix string
	Workers   int
}

// Repo implements the semantic scorer consumed by usecase/search.
type Repo struct {
	store store
	cfg   Config
	pool  *ants.Pool
}

// New creates a vector repository with a bounded scoring pool.
func New(s store, cfg Config) (*Repo, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create scoring pool: %w", err)
	}
	return &Repo{store: s, cfg: cfg, pool: pool}, nil
}

// Release shuts down the scoring pool.
func (r *Repo) Release() {
	r.pool.Release()
}

// Scores returns the semantic similarity of each candidate id against the
// query vector. Candidates without a stored embedding score MissingScore; a
// store failure fails the whole batch.
func (r *Repo) Scores(ctx context.Context, queryVec []float32, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.cfg.KeyPrefix + "listing:" + id
	}

	raw, err := r.store.HGetFieldMulti(ctx, keys, listing.FieldVector)
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	scores := make([]float64, len(ids))
	var wg sync.WaitGroup
	for i := range ids {
		i := i
		wg.Add(1)
		if err := r.pool.Submit(func() {
			defer wg.Done()
			scores[i] = scoreOne(queryVec, raw[i])
		}); err != nil {
			// Pool rejected the task (released); score inline instead.
			scores[i] = scoreOne(queryVec, raw[i])
			wg.Done()
		}
	}
	wg.Wait()

	out := make(map[string]float64, len(ids))
	for i, id := range ids {
		out[id] = scores[i]
	}
	return out, nil
}

// scoreOne computes the similarity for a single stored vector. Missing or
// malformed vectors score MissingScore so the candidate survives ranking.
func scoreOne(queryVec []float32, stored string) float64 {
	if stored == "" {
		return MissingScore
	}
	vec := db.BytesToVector(stored)
	if vec == nil || len(vec) != len(queryVec) {
		return MissingScore
	}
	return similarity(queryVec, vec)
}
