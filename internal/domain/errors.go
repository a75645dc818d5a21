package domain

import "errors"

var (
	// ErrStoreUnavailable signals that the listing store or vector index is
	// unreachable. The only pipeline condition surfaced to callers as a
	// failure; everything else degrades to a best-effort result.
	ErrStoreUnavailable = errors.New("listing store unavailable")
	// ErrListingNotFound signals a missing listing record.
	ErrListingNotFound = errors.New("listing not found")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExtractionUnavailable signals that the extraction service could not
	// be reached. Recovered locally by falling back to empty criteria; never
	// returned from the pipeline.
	ErrExtractionUnavailable = errors.New("extraction service unavailable")
)
