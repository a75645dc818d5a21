package listing

import (
	"strconv"
	"strings"

	"github.com/casafind/casafind/internal/domain/listing"
)

// hashToListing hydrates a listing from its flat hash fields. Unparseable
// numerics degrade to zero values instead of failing the whole batch.
func hashToListing(id string, m map[string]string) listing.Listing {
	return listing.Listing{
		ID:            id,
		Title:         m[listing.FieldTitle],
		Price:         parseFloat(m[listing.FieldPrice]),
		Rooms:         parseInt(m[listing.FieldRooms]),
		Area:          parseFloat(m[listing.FieldArea]),
		Floor:         parseInt(m[listing.FieldFloor]),
		BuildYear:     parseInt(m[listing.FieldBuildYear]),
		City:          m[listing.FieldCity],
		District:      m[listing.FieldDistrict],
		Neighbourhood: m[listing.FieldNeighbourhood],
		Street:        m[listing.FieldStreet],
		Transaction:   m[listing.FieldTransaction],
		Market:        m[listing.FieldMarket],
		Amenities:     splitAmenities(m[listing.FieldAmenities]),
		Description:   m[listing.FieldDescription],
		URL:           m[listing.FieldURL],
		CreatedAt:     parseInt64(m[listing.FieldCreatedAt]),
	}
}

// listingToHash flattens a listing into hash fields. Zero-valued numerics are
// stored anyway so numeric range filters see an explicit value.
func listingToHash(l listing.Listing) map[string]string {
	fields := map[string]string{
		listing.FieldPrice:     formatFloat(l.Price),
		listing.FieldRooms:     strconv.Itoa(l.Rooms),
		listing.FieldArea:      formatFloat(l.Area),
		listing.FieldFloor:     strconv.Itoa(l.Floor),
		listing.FieldBuildYear: strconv.Itoa(l.BuildYear),
		listing.FieldCreatedAt: strconv.FormatInt(l.CreatedAt, 10),
	}

	setIfPresent(fields, listing.FieldTitle, l.Title)
	setIfPresent(fields, listing.FieldCity, l.City)
	setIfPresent(fields, listing.FieldDistrict, l.District)
	setIfPresent(fields, listing.FieldNeighbourhood, l.Neighbourhood)
	setIfPresent(fields, listing.FieldStreet, l.Street)
	setIfPresent(fields, listing.FieldTransaction, l.Transaction)
	setIfPresent(fields, listing.FieldMarket, l.Market)
	setIfPresent(fields, listing.FieldDescription, l.Description)
	setIfPresent(fields, listing.FieldURL, l.URL)
	if len(l.Amenities) > 0 {
		fields[listing.FieldAmenities] = strings.Join(l.Amenities, ",")
	}

	return fields
}

func setIfPresent(fields map[string]string, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func splitAmenities(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
