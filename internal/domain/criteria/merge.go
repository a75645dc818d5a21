package criteria

// Merge combines the prior turn's criteria with a newly extracted one into a
// fresh Criteria: fields specified in next override the same-named prior
// fields, unspecified fields inherit from prior. Neither input is mutated, so
// each pipeline run stays side-effect-free.
func Merge(prior, next Criteria) Criteria {
	out := next.clone()
	prior = prior.clone()

	if out.City == "" {
		out.City = prior.City
	}
	if len(out.Districts) == 0 {
		out.Districts = prior.Districts
	}
	if out.Neighbourhood == "" {
		out.Neighbourhood = prior.Neighbourhood
	}
	if out.Street == "" {
		out.Street = prior.Street
	}
	if out.Transaction == "" {
		out.Transaction = prior.Transaction
	}
	if out.Market == "" {
		out.Market = prior.Market
	}
	// A price range is overridden as a unit: "under 250k" on a prior
	// "300k-400k" must not inherit the stale lower bound.
	if out.PriceMin == nil && out.PriceMax == nil {
		out.PriceMin = prior.PriceMin
		out.PriceMax = prior.PriceMax
	}
	if out.Rooms == nil {
		out.Rooms = prior.Rooms
	}
	if out.AreaMin == nil {
		out.AreaMin = prior.AreaMin
	}
	if out.Floor == nil {
		out.Floor = prior.Floor
	}
	if out.BuildYearMin == nil && out.BuildYearMax == nil {
		out.BuildYearMin = prior.BuildYearMin
		out.BuildYearMax = prior.BuildYearMax
	}
	if len(out.Amenities) == 0 {
		out.Amenities = prior.Amenities
	}
	if out.ResidualText == "" {
		out.ResidualText = prior.ResidualText
	}
	return out
}
