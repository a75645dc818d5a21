// Package listing defines the long-lived real-estate record the pipeline
// reads. Listings are owned by the ingestion collaborator; the pipeline never
// writes them.
package listing

// Index field names shared between the index schema, the filter compiler and
// the store adapter. Renaming one without the others silently breaks filters,
// so they live here.
const (
	FieldPrice         = "price"
	FieldRooms         = "rooms"
	FieldArea          = "area"
	FieldFloor         = "floor"
	FieldBuildYear     = "build_year"
	FieldCity          = "city"
	FieldDistrict      = "district"
	FieldNeighbourhood = "neighbourhood"
	FieldStreet        = "street"
	FieldTransaction   = "transaction"
	FieldMarket        = "market"
	FieldAmenities     = "amenities"
	FieldDescription   = "description"
	FieldTitle         = "title"
	FieldURL           = "url"
	FieldCreatedAt     = "created_at"
	FieldVector        = "__vector"
)

// Listing is one real-estate record hydrated from the structured store.
type Listing struct {
	ID            string   `json:"id"`
	Title         string   `json:"title,omitempty"`
	Price         float64  `json:"price,omitempty"`
	Rooms         int      `json:"rooms,omitempty"`
	Area          float64  `json:"area,omitempty"`
	Floor         int      `json:"floor,omitempty"`
	BuildYear     int      `json:"build_year,omitempty"`
	City          string   `json:"city,omitempty"`
	District      string   `json:"district,omitempty"`
	Neighbourhood string   `json:"neighbourhood,omitempty"`
	Street        string   `json:"street,omitempty"`
	Transaction   string   `json:"transaction,omitempty"`
	Market        string   `json:"market,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	Description   string   `json:"description,omitempty"`
	URL           string   `json:"url,omitempty"`
	CreatedAt     int64    `json:"created_at,omitempty"`
}

// Candidate is one entry of the bounded CandidateSet produced by structured
// filtering: a listing identifier plus its stable position. Rank is assigned
// by the store adapter (recency desc, then id asc) and reused unchanged as
// the fusion tie-break so identical inputs rank identically across runs.
type Candidate struct {
	ID        string
	CreatedAt int64
	Rank      int
}
