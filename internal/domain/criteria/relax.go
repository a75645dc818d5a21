package criteria

// RelaxationStep names one group of constraints the orchestrator may drop
// when filtering comes back empty.
type RelaxationStep string

// Relaxation steps, least discriminating first. Location goes before
// amenities, amenities before numeric ranges.
const (
	RelaxLocation      RelaxationStep = "location"
	RelaxAmenities     RelaxationStep = "amenities"
	RelaxNumericRanges RelaxationStep = "numeric_ranges"
)

// RelaxationOrder is the fixed order in which constraint groups are dropped.
var RelaxationOrder = []RelaxationStep{RelaxLocation, RelaxAmenities, RelaxNumericRanges}

// Has reports whether the criteria carries any constraint of the given group.
func (c Criteria) Has(step RelaxationStep) bool {
	switch step {
	case RelaxLocation:
		return c.City != "" || len(c.Districts) > 0 || c.Neighbourhood != "" || c.Street != ""
	case RelaxAmenities:
		return len(c.Amenities) > 0
	case RelaxNumericRanges:
		return c.PriceMin != nil || c.PriceMax != nil || c.Rooms != nil ||
			c.AreaMin != nil || c.Floor != nil ||
			c.BuildYearMin != nil || c.BuildYearMax != nil
	}
	return false
}

// Drop returns a copy without the given constraint group. The receiver is
// unchanged; relaxation never mutates the criteria it started from.
func (c Criteria) Drop(step RelaxationStep) Criteria {
	out := c.clone()
	switch step {
	case RelaxLocation:
		out.City = ""
		out.Districts = nil
		out.Neighbourhood = ""
		out.Street = ""
	case RelaxAmenities:
		out.Amenities = nil
	case RelaxNumericRanges:
		out.PriceMin, out.PriceMax = nil, nil
		out.Rooms = nil
		out.AreaMin = nil
		out.Floor = nil
		out.BuildYearMin, out.BuildYearMax = nil, nil
	}
	return out
}
