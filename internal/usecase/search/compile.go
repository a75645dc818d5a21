package search

import (
	"fmt"
	"strings"

	"github.com/casafind/casafind/internal/domain/criteria"
	"github.com/casafind/casafind/internal/domain/listing"
	"github.com/casafind/casafind/internal/domain/search/filter"
)

// Compile translates sanitized criteria into a filter expression. Conditions
// are emitted in a fixed field order, so identical criteria always compile to
// the byte-identical canonical predicate.
func Compile(c criteria.Criteria) (filter.Expression, error) {
	var must []filter.Condition
	var any []filter.Condition

	appendMatch := func(key, value string) error {
		cond, err := filter.NewMatch(key, strings.ToLower(value))
		if err != nil {
			return err
		}
		must = append(must, cond)
		return nil
	}
	appendRange := func(key string, minV, maxV *float64) error {
		r, err := filter.NewRangeBounds(minV, maxV)
		if err != nil {
			return err
		}
		cond, err := filter.NewRange(key, r)
		if err != nil {
			return err
		}
		must = append(must, cond)
		return nil
	}

	if c.City != "" {
		if err := appendMatch(listing.FieldCity, c.City); err != nil {
			return filter.Expression{}, err
		}
	}

	// A single district is a plain required match; several districts become
	// the one-of group (the user listed alternatives, not a conjunction).
	switch len(c.Districts) {
	case 0:
	case 1:
		if err := appendMatch(listing.FieldDistrict, c.Districts[0]); err != nil {
			return filter.Expression{}, err
		}
	default:
		for _, d := range c.Districts {
			cond, err := filter.NewMatch(listing.FieldDistrict, strings.ToLower(d))
			if err != nil {
				return filter.Expression{}, err
			}
			any = append(any, cond)
		}
	}

	if c.Neighbourhood != "" {
		if err := appendMatch(listing.FieldNeighbourhood, c.Neighbourhood); err != nil {
			return filter.Expression{}, err
		}
	}
	if c.Street != "" {
		if err := appendMatch(listing.FieldStreet, c.Street); err != nil {
			return filter.Expression{}, err
		}
	}
	if c.Transaction != "" {
		if err := appendMatch(listing.FieldTransaction, c.Transaction); err != nil {
			return filter.Expression{}, err
		}
	}
	if c.Market != "" {
		if err := appendMatch(listing.FieldMarket, c.Market); err != nil {
			return filter.Expression{}, err
		}
	}

	// Each amenity is required on its own: "garage and balcony" means both.
	for _, a := range c.Amenities {
		if err := appendMatch(listing.FieldAmenities, a); err != nil {
			return filter.Expression{}, err
		}
	}

	if c.PriceMin != nil || c.PriceMax != nil {
		if err := appendRange(listing.FieldPrice, c.PriceMin, c.PriceMax); err != nil {
			return filter.Expression{}, err
		}
	}
	if c.Rooms != nil {
		cond, err := filter.NewRange(listing.FieldRooms, filter.Exactly(float64(*c.Rooms)))
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}
	if c.AreaMin != nil {
		if err := appendRange(listing.FieldArea, c.AreaMin, nil); err != nil {
			return filter.Expression{}, err
		}
	}
	if c.Floor != nil {
		cond, err := filter.NewRange(listing.FieldFloor, filter.Exactly(float64(*c.Floor)))
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}
	if c.BuildYearMin != nil || c.BuildYearMax != nil {
		minV := intToFloatPtr(c.BuildYearMin)
		maxV := intToFloatPtr(c.BuildYearMax)
		if err := appendRange(listing.FieldBuildYear, minV, maxV); err != nil {
			return filter.Expression{}, err
		}
	}

	expr, err := filter.NewExpression(must, any)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("compile criteria: %w", err)
	}
	return expr, nil
}

func intToFloatPtr(p *int) *float64 {
	if p == nil {
		return nil
	}
	v := float64(*p)
	return &v
}
