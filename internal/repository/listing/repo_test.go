package listing

import (
	"context"
	"errors"
	"testing"

	"github.com/casafind/casafind/internal/db"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/filter"
)

func TestCandidates_StableOrder(t *testing.T) {
	repo, ms := newTestRepo(t)

	// Store returns ties in arbitrary order; the repo must break them by id.
	ms.searchFilterFn = func(_ context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
		if q.IndexName != "casafind:listing:idx" {
			t.Errorf("unexpected index name: %q", q.IndexName)
		}
		if q.SortBy != listing.FieldCreatedAt || !q.SortDesc {
			t.Errorf("expected SORTBY created_at DESC, got %q desc=%v", q.SortBy, q.SortDesc)
		}
		return &db.SearchResult{
			Total: 3,
			Entries: []db.SearchEntry{
				{Key: "casafind:listing:b", Fields: map[string]string{"created_at": "100"}},
				{Key: "casafind:listing:a", Fields: map[string]string{"created_at": "100"}},
				{Key: "casafind:listing:c", Fields: map[string]string{"created_at": "200"}},
			},
		}, nil
	}

	candidates, err := repo.Candidates(context.Background(), filter.Expression{}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantIDs := []string{"c", "a", "b"}
	if len(candidates) != len(wantIDs) {
		t.Fatalf("expected %d candidates, got %d", len(wantIDs), len(candidates))
	}
	for i, want := range wantIDs {
		if candidates[i].ID != want {
			t.Errorf("candidate[%d] = %q, want %q", i, candidates[i].ID, want)
		}
		if candidates[i].Rank != i {
			t.Errorf("candidate[%d].Rank = %d, want %d", i, candidates[i].Rank, i)
		}
	}
}

func TestCandidates_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)

	wantErr := errors.New("connection refused")
	ms.searchFilterFn = func(context.Context, *db.FilterQuery) (*db.SearchResult, error) {
		return nil, wantErr
	}

	_, err := repo.Candidates(context.Background(), filter.Expression{}, 300)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestKNN_ScoresAndOrder(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.K != 5 {
			t.Errorf("unexpected k: %d", q.K)
		}
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "casafind:listing:x", Score: 0.9, Fields: map[string]string{"created_at": "10"}},
				{Key: "casafind:listing:y", Score: 0.4, Fields: map[string]string{"created_at": "20"}},
			},
		}, nil
	}

	candidates, scores, err := repo.KNN(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 || candidates[0].ID != "x" || candidates[0].Rank != 0 {
		t.Errorf("unexpected candidates: %+v", candidates)
	}
	if scores["x"] != 0.9 || scores["y"] != 0.4 {
		t.Errorf("unexpected scores: %v", scores)
	}
}

func TestGetMulti_SkipsVanished(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.hGetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 2 || keys[0] != "casafind:listing:a" {
			t.Errorf("unexpected keys: %v", keys)
		}
		return []map[string]string{
			{
				"title": "Sunny flat", "price": "300000", "rooms": "2",
				"city": "warsaw", "amenities": "garage,balcony", "created_at": "1700000000",
			},
			{}, // deleted between filtering and hydration
		}, nil
	}

	listings, err := repo.GetMulti(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}

	l := listings[0]
	if l.ID != "a" || l.Price != 300000 || l.Rooms != 2 || l.City != "warsaw" {
		t.Errorf("unexpected listing: %+v", l)
	}
	if len(l.Amenities) != 2 || l.Amenities[0] != "garage" {
		t.Errorf("unexpected amenities: %v", l.Amenities)
	}
}

func TestGetMulti_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	listings, err := repo.GetMulti(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listings != nil {
		t.Errorf("expected nil, got %v", listings)
	}
}

func TestPut_SerializesVector(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured []db.HashSetItem
	ms.hSetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		captured = items
		return nil
	}

	l := listing.Listing{ID: "p1", Price: 250000, City: "warsaw", CreatedAt: 1700000000}
	vec := []float32{0.5, -0.5}

	err := repo.Put(context.Background(), []listing.Listing{l}, map[string][]float32{"p1": vec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured) != 1 || captured[0].Key != "casafind:listing:p1" {
		t.Fatalf("unexpected items: %+v", captured)
	}

	raw, ok := captured[0].Fields[listing.FieldVector]
	if !ok {
		t.Fatal("vector field missing")
	}
	got := db.BytesToVector(raw)
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("vector round-trip failed: %v", got)
	}
}

func TestEnsureIndex_AlreadyExists(t *testing.T) {
	repo, ms := newTestRepo(t)

	created := false
	ms.indexExistsFn = func(_ context.Context, name string) (bool, error) {
		return true, nil
	}
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		created = true
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("index must not be recreated when it exists")
	}
}

func TestEnsureIndex_CreatesSchema(t *testing.T) {
	repo, ms := newTestRepo(t)

	var captured *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		captured = def
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured == nil {
		t.Fatal("expected index creation")
	}
	if captured.Name != "casafind:listing:idx" {
		t.Errorf("unexpected index name: %q", captured.Name)
	}

	byName := make(map[string]db.IndexField, len(captured.Fields))
	for _, f := range captured.Fields {
		byName[f.Name] = f
	}
	if f := byName[listing.FieldCreatedAt]; f.Type != db.IndexFieldNumeric || !f.Sortable {
		t.Errorf("created_at field misconfigured: %+v", f)
	}
	if f := byName[listing.FieldAmenities]; f.Type != db.IndexFieldTag || f.TagSeparator != "," {
		t.Errorf("amenities field misconfigured: %+v", f)
	}
	if f := byName[listing.FieldVector]; f.Type != db.IndexFieldVector || f.VectorDim != 8 {
		t.Errorf("vector field misconfigured: %+v", f)
	}
}

func TestEnsureIndex_ConcurrentCreate(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("concurrent creation must not fail: %v", err)
	}
}
