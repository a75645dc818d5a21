package vector

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hGetFieldMultiFn func(ctx context.Context, keys []string, field string) ([]string, error)
}

func (m *mockStore) HGetFieldMulti(ctx context.Context, keys []string, field string) ([]string, error) {
	if m.hGetFieldMultiFn != nil {
		return m.hGetFieldMultiFn(ctx, keys, field)
	}
	return make([]string, len(keys)), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo, err := New(ms, Config{KeyPrefix: "casafind:", Workers: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(repo.Release)
	return repo, ms
}
