package db

import "github.com/casafind/casafind/internal/domain/search/filter"

// FilterQuery is the input for a structured filter search.
type FilterQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortBy       string // SORTABLE field used as the stable ordering key
	SortDesc     bool
	Limit        int
	ReturnFields []string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
