package extract

import (
	"context"

	"github.com/casafind/casafind/internal/domain/criteria"
)

// Provider turns a free-text query into structured criteria.
type Provider interface {
	Extract(ctx context.Context, query string) (criteria.Criteria, error)
}
