// Package listing persists and queries real-estate listings in the structured
// store: one hash per listing, one FT index over the searchable fields.
package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/casafind/casafind/internal/db"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/filter"
)

// store is the consumer interface for listing operations (ISP).
type store interface {
	SearchFilter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Config holds storage layout and index tuning parameters.
type Config struct {
	KeyPrefix   string
	VectorDim   int
	HNSWM       int
	HNSWEFConst int
}

// Repo implements the listing repository consumed by usecase/search.
type Repo struct {
	store store
	cfg   Config
}

// New creates a listing repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// Candidates runs a structured filter query and returns at most max listing
// candidates in the stable order: created_at descending, then id ascending.
// Rank reflects that order and is reused unchanged as the fusion tie-break.
func (r *Repo) Candidates(ctx context.Context, filters filter.Expression, max int) ([]listing.Candidate, error) {
	q := &db.FilterQuery{
		IndexName:    r.indexName(),
		Filters:      filters,
		SortBy:       listing.FieldCreatedAt,
		SortDesc:     true,
		Limit:        max,
		ReturnFields: []string{listing.FieldCreatedAt},
	}

	sr, err := r.store.SearchFilter(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter listings: %w", err)
	}

	candidates := make([]listing.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		candidates = append(candidates, listing.Candidate{
			ID:        strings.TrimPrefix(entry.Key, r.keyPrefix()),
			CreatedAt: parseInt64(entry.Fields[listing.FieldCreatedAt]),
		})
	}

	// The store already sorts by created_at; ties keep arbitrary order there,
	// so re-sort with the id tie-break before assigning ranks.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CreatedAt != candidates[j].CreatedAt {
			return candidates[i].CreatedAt > candidates[j].CreatedAt
		}
		return candidates[i].ID < candidates[j].ID
	})
	for i := range candidates {
		candidates[i].Rank = i
	}

	return candidates, nil
}

// KNN runs a vector similarity search over the whole index and returns
// candidates in similarity order plus their semantic scores. Serves the
// degraded path when structured filtering is unavailable.
func (r *Repo) KNN(ctx context.Context, vector []float32, k int) ([]listing.Candidate, map[string]float64, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{listing.FieldCreatedAt},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, nil, fmt.Errorf("knn listings: %w", err)
	}

	candidates := make([]listing.Candidate, 0, len(sr.Entries))
	scores := make(map[string]float64, len(sr.Entries))
	for i, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, r.keyPrefix())
		candidates = append(candidates, listing.Candidate{
			ID:        id,
			CreatedAt: parseInt64(entry.Fields[listing.FieldCreatedAt]),
			Rank:      i,
		})
		scores[id] = entry.Score
	}

	return candidates, scores, nil
}

// GetMulti hydrates full listings for the given ids, preserving input order.
// Ids whose hash vanished between filtering and hydration are skipped.
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]listing.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hydrate listings: %w", err)
	}

	listings := make([]listing.Listing, 0, len(ids))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		listings = append(listings, hashToListing(ids[i], m))
	}

	return listings, nil
}

// Put stores listings as hashes, one HSET per listing in a single round-trip.
// Used by ingestion tooling; the search pipeline itself never writes.
func (r *Repo) Put(ctx context.Context, listings []listing.Listing, vectors map[string][]float32) error {
	if len(listings) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(listings))
	for _, l := range listings {
		fields := listingToHash(l)
		if vec, ok := vectors[l.ID]; ok && len(vec) > 0 {
			fields[listing.FieldVector] = db.VectorToBytes(vec)
		}
		items = append(items, db.HashSetItem{Key: r.key(l.ID), Fields: fields})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store listings: %w", err)
	}
	return nil
}

func (r *Repo) keyPrefix() string {
	return r.cfg.KeyPrefix + "listing:"
}

func (r *Repo) key(id string) string {
	return r.keyPrefix() + id
}

func (r *Repo) indexName() string {
	return r.cfg.KeyPrefix + "listing:idx"
}
