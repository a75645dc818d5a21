// Package result defines the scored unit the fusion stage sorts on.
package result

// ScoredResult carries one candidate's identifiers and scores through fusion.
// Rank is the candidate's position in the structured stage's stable order and
// doubles as the tie-break for equal fused scores.
type ScoredResult struct {
	id         string
	rank       int
	structured float64
	semantic   float64
	fused      float64
}

// New creates a scored result.
func New(id string, rank int, structured, semantic, fused float64) ScoredResult {
	return ScoredResult{
		id:         id,
		rank:       rank,
		structured: structured,
		semantic:   semantic,
		fused:      fused,
	}
}

// ID returns the listing identifier.
func (r ScoredResult) ID() string { return r.id }

// Rank returns the stable candidate position from the structured stage.
func (r ScoredResult) Rank() int { return r.rank }

// Structured returns the structured-match score (binary: 1.0 for candidates
// that passed all specified filters).
func (r ScoredResult) Structured() float64 { return r.structured }

// Semantic returns the normalized semantic similarity score in [0,1].
func (r ScoredResult) Semantic() float64 { return r.semantic }

// Fused returns the combined ranking score.
func (r ScoredResult) Fused() float64 { return r.fused }
