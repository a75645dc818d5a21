// Package filter holds the deterministic predicate model the filter compiler
// produces and the store adapter executes.
package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxConditions bounds the size of a compiled predicate.
const MaxConditions = 32

// Expression is a structured predicate: every must condition is required
// (AND), the any group matches when at least one of its conditions does (OR).
// Multi-district criteria compile into the any group; everything else,
// including each individual amenity, is a must condition.
type Expression struct {
	must []Condition
	any  []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, any []Condition) (Expression, error) {
	if len(must)+len(any) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: must, any: any}, nil
}

// Must returns the required conditions.
func (e Expression) Must() []Condition { return e.must }

// Any returns the one-of condition group.
func (e Expression) Any() []Condition { return e.any }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.any) == 0
}

// String renders the canonical form of the predicate. Compiling identical
// criteria yields byte-identical strings, which is what tests and cache keys
// compare.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "*"
	}

	parts := make([]string, 0, len(e.must)+1)
	for _, c := range e.must {
		parts = append(parts, c.String())
	}
	if len(e.any) > 0 {
		anyParts := make([]string, 0, len(e.any))
		for _, c := range e.any {
			anyParts = append(anyParts, c.String())
		}
		parts = append(parts, "("+strings.Join(anyParts, " | ")+")")
	}
	return strings.Join(parts, " ")
}

// Condition is a single predicate clause: either an exact tag match or a
// numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// String renders the canonical form of one clause.
func (c Condition) String() string {
	if c.IsMatch() {
		return "@" + c.key + ":{" + c.match + "}"
	}
	if c.IsRange() {
		return "@" + c.key + ":[" + c.rangeExpr.String() + "]"
	}
	return ""
}

// Range is an inclusive numeric interval. A nil boundary is open-ended:
// "only max" compiles to [-inf max], "only min" to [min +inf].
type Range struct {
	min *float64
	max *float64
}

// NewRangeBounds validates and creates a Range. At least one boundary is
// required and min must not exceed max.
func NewRangeBounds(min, max *float64) (Range, error) {
	if min == nil && max == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if min != nil && max != nil && *min > *max {
		return Range{}, fmt.Errorf("range min %g exceeds max %g", *min, *max)
	}
	return Range{min: min, max: max}, nil
}

// Exactly creates a degenerate range matching a single numeric value.
func Exactly(v float64) Range {
	return Range{min: &v, max: &v}
}

// Min returns the inclusive lower bound, nil when open.
func (r Range) Min() *float64 { return r.min }

// Max returns the inclusive upper bound, nil when open.
func (r Range) Max() *float64 { return r.max }

// String renders the canonical "min max" bounds with -inf/+inf for open ends.
func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.min != nil {
		lo = strconv.FormatFloat(*r.min, 'g', -1, 64)
	}
	if r.max != nil {
		hi = strconv.FormatFloat(*r.max, 'g', -1, 64)
	}
	return lo + " " + hi
}
