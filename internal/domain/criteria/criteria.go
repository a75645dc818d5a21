// Package criteria defines the structured representation of a user's search
// constraints extracted from free text. All fields are optional: absence
// means "unconstrained", never "zero".
package criteria

import (
	"fmt"
	"strings"

	"github.com/casafind/casafind/internal/domain/listing"
)

// Transaction type vocabulary.
const (
	TransactionSale = "sale"
	TransactionRent = "rent"
)

// Market type vocabulary.
const (
	MarketPrimary   = "primary"
	MarketSecondary = "secondary"
)

// AmenityVocabulary is the fixed set of amenity tags the listing index knows.
// Extracted amenities outside this set are dropped during sanitization.
var AmenityVocabulary = map[string]struct{}{
	"garage":           {},
	"parking":          {},
	"balcony":          {},
	"elevator":         {},
	"air_conditioning": {},
	"furnished":        {},
	"pets_allowed":     {},
}

// Criteria is the structured criteria object produced by the extractor.
// Pointer fields distinguish "not specified" from a zero value.
type Criteria struct {
	City          string   `json:"city,omitempty"`
	Districts     []string `json:"districts,omitempty"`
	Neighbourhood string   `json:"neighbourhood,omitempty"`
	Street        string   `json:"street,omitempty"`
	Transaction   string   `json:"transaction,omitempty"`
	Market        string   `json:"market,omitempty"`
	PriceMin      *float64 `json:"price_min,omitempty"`
	PriceMax      *float64 `json:"price_max,omitempty"`
	Rooms         *int     `json:"rooms,omitempty"`
	AreaMin       *float64 `json:"area_min,omitempty"`
	Floor         *int     `json:"floor,omitempty"`
	BuildYearMin  *int     `json:"build_year_min,omitempty"`
	BuildYearMax  *int     `json:"build_year_max,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`

	// ResidualText holds the free-text intent not captured by any structured
	// field; it drives the semantic ranking stage.
	ResidualText string `json:"residual_text,omitempty"`
}

// Sanitize returns a copy with out-of-vocabulary and inconsistent values
// dropped, plus a warning per dropped value. Partial criteria degrade to a
// broader search instead of failing the request.
func (c Criteria) Sanitize() (Criteria, []string) {
	out := c.clone()
	var warnings []string

	switch out.Transaction {
	case "", TransactionSale, TransactionRent:
	default:
		warnings = append(warnings, fmt.Sprintf("dropped unknown transaction type %q", out.Transaction))
		out.Transaction = ""
	}

	switch out.Market {
	case "", MarketPrimary, MarketSecondary:
	default:
		warnings = append(warnings, fmt.Sprintf("dropped unknown market type %q", out.Market))
		out.Market = ""
	}

	if out.PriceMin != nil && out.PriceMax != nil && *out.PriceMin > *out.PriceMax {
		warnings = append(warnings,
			fmt.Sprintf("dropped price range: min %g > max %g", *out.PriceMin, *out.PriceMax))
		out.PriceMin, out.PriceMax = nil, nil
	}
	if out.PriceMin != nil && *out.PriceMin < 0 {
		warnings = append(warnings, fmt.Sprintf("dropped negative price min %g", *out.PriceMin))
		out.PriceMin = nil
	}
	if out.BuildYearMin != nil && out.BuildYearMax != nil && *out.BuildYearMin > *out.BuildYearMax {
		warnings = append(warnings,
			fmt.Sprintf("dropped build year range: min %d > max %d", *out.BuildYearMin, *out.BuildYearMax))
		out.BuildYearMin, out.BuildYearMax = nil, nil
	}
	if out.Rooms != nil && *out.Rooms <= 0 {
		warnings = append(warnings, fmt.Sprintf("dropped non-positive room count %d", *out.Rooms))
		out.Rooms = nil
	}
	if out.AreaMin != nil && *out.AreaMin <= 0 {
		warnings = append(warnings, fmt.Sprintf("dropped non-positive area %g", *out.AreaMin))
		out.AreaMin = nil
	}

	if len(out.Amenities) > 0 {
		kept := make([]string, 0, len(out.Amenities))
		seen := make(map[string]struct{}, len(out.Amenities))
		for _, a := range out.Amenities {
			norm := strings.ToLower(strings.TrimSpace(a))
			if _, ok := AmenityVocabulary[norm]; !ok {
				warnings = append(warnings, fmt.Sprintf("dropped unknown amenity %q", a))
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			kept = append(kept, norm)
		}
		out.Amenities = kept
	}

	return out, warnings
}

// IsEmpty reports whether no structured field is specified. ResidualText is
// not a structured field: an empty Criteria with residual text means "pure
// semantic search".
func (c Criteria) IsEmpty() bool {
	return len(c.SpecifiedFields()) == 0
}

// SpecifiedFields lists the structured fields carrying a constraint, in the
// fixed compilation order. The list doubles as the caller-visible
// "matched fields" of a result.
func (c Criteria) SpecifiedFields() []string {
	var fields []string
	if c.City != "" {
		fields = append(fields, listing.FieldCity)
	}
	if len(c.Districts) > 0 {
		fields = append(fields, listing.FieldDistrict)
	}
	if c.Neighbourhood != "" {
		fields = append(fields, listing.FieldNeighbourhood)
	}
	if c.Street != "" {
		fields = append(fields, listing.FieldStreet)
	}
	if c.Transaction != "" {
		fields = append(fields, listing.FieldTransaction)
	}
	if c.Market != "" {
		fields = append(fields, listing.FieldMarket)
	}
	if len(c.Amenities) > 0 {
		fields = append(fields, listing.FieldAmenities)
	}
	if c.PriceMin != nil || c.PriceMax != nil {
		fields = append(fields, listing.FieldPrice)
	}
	if c.Rooms != nil {
		fields = append(fields, listing.FieldRooms)
	}
	if c.AreaMin != nil {
		fields = append(fields, listing.FieldArea)
	}
	if c.Floor != nil {
		fields = append(fields, listing.FieldFloor)
	}
	if c.BuildYearMin != nil || c.BuildYearMax != nil {
		fields = append(fields, listing.FieldBuildYear)
	}
	return fields
}

// NumSpecified returns the number of specified structured fields.
func (c Criteria) NumSpecified() int {
	return len(c.SpecifiedFields())
}

// clone returns a deep copy so derived Criteria never alias the original's
// slices or pointers.
func (c Criteria) clone() Criteria {
	out := c
	if c.Districts != nil {
		out.Districts = append([]string(nil), c.Districts...)
	}
	if c.Amenities != nil {
		out.Amenities = append([]string(nil), c.Amenities...)
	}
	out.PriceMin = clonePtr(c.PriceMin)
	out.PriceMax = clonePtr(c.PriceMax)
	out.Rooms = clonePtr(c.Rooms)
	out.AreaMin = clonePtr(c.AreaMin)
	out.Floor = clonePtr(c.Floor)
	out.BuildYearMin = clonePtr(c.BuildYearMin)
	out.BuildYearMax = clonePtr(c.BuildYearMax)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
