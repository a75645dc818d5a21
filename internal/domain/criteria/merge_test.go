package criteria

import "testing"

func TestMerge_NewFieldsOverride(t *testing.T) {
	prior := Criteria{City: "warsaw", Rooms: intPtr(2), PriceMax: floatPtr(400000)}
	next := Criteria{PriceMax: floatPtr(300000)}

	out := Merge(prior, next)
	if out.PriceMax == nil || *out.PriceMax != 300000 {
		t.Errorf("PriceMax = %v, want 300000", out.PriceMax)
	}
	if out.City != "warsaw" {
		t.Errorf("City = %q, want inherited %q", out.City, "warsaw")
	}
	if out.Rooms == nil || *out.Rooms != 2 {
		t.Errorf("Rooms = %v, want inherited 2", out.Rooms)
	}
}

func TestMerge_PriceRangeOverriddenAsUnit(t *testing.T) {
	prior := Criteria{PriceMin: floatPtr(300000), PriceMax: floatPtr(400000)}
	next := Criteria{PriceMax: floatPtr(250000)}

	out := Merge(prior, next)
	if out.PriceMin != nil {
		t.Errorf("PriceMin = %v, want nil (stale lower bound must not survive)", *out.PriceMin)
	}
	if out.PriceMax == nil || *out.PriceMax != 250000 {
		t.Errorf("PriceMax = %v, want 250000", out.PriceMax)
	}
}

func TestMerge_ResidualTextInherited(t *testing.T) {
	prior := Criteria{ResidualText: "near a park"}
	next := Criteria{Rooms: intPtr(3)}

	out := Merge(prior, next)
	if out.ResidualText != "near a park" {
		t.Errorf("ResidualText = %q, want inherited", out.ResidualText)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	prior := Criteria{Districts: []string{"mokotow"}}
	next := Criteria{Districts: []string{"wola"}}

	out := Merge(prior, next)
	out.Districts[0] = "changed"

	if prior.Districts[0] != "mokotow" || next.Districts[0] != "wola" {
		t.Error("Merge output aliases an input slice")
	}
}

func TestMerge_EmptyPrior(t *testing.T) {
	next := Criteria{City: "gdansk", ResidualText: "sea view"}

	out := Merge(Criteria{}, next)
	if out.City != "gdansk" || out.ResidualText != "sea view" {
		t.Errorf("Merge with empty prior changed next: %+v", out)
	}
}
