package extract

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/casafind/casafind/internal/domain/criteria"
)

// mockProvider implements Provider for tests.
type mockProvider struct {
	extractFn func(ctx context.Context, query string) (criteria.Criteria, error)
	calls     int
}

func (m *mockProvider) Extract(ctx context.Context, query string) (criteria.Criteria, error) {
	m.calls++
	if m.extractFn != nil {
		return m.extractFn(ctx, query)
	}
	return criteria.Criteria{}, nil
}

func newTestService(t *testing.T) (*Service, *mockProvider) {
	t.Helper()
	mp := &mockProvider{}
	svc := New(mp, Config{
		Timeout:             time.Second,
		BreakerFailureRatio: 0.6,
		BreakerCooldown:     time.Minute,
	}, zap.NewNop())
	return svc, mp
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
