package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/casafind/casafind/internal/db"
	"github.com/casafind/casafind/internal/domain/listing"
)

// EnsureIndex creates the listing FT index if it does not exist yet. Safe to
// call on every startup; concurrent creation resolves via ErrIndexExists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := r.buildIndex()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

func (r *Repo) buildIndex() (*db.IndexDefinition, error) {
	return db.NewIndex(r.indexName()).
		Prefix(r.keyPrefix()).
		NumericSortable(listing.FieldCreatedAt).
		Numeric(listing.FieldPrice).
		Numeric(listing.FieldRooms).
		Numeric(listing.FieldArea).
		Numeric(listing.FieldFloor).
		Numeric(listing.FieldBuildYear).
		Tag(listing.FieldCity).
		Tag(listing.FieldDistrict).
		Tag(listing.FieldNeighbourhood).
		Tag(listing.FieldStreet).
		Tag(listing.FieldTransaction).
		Tag(listing.FieldMarket).
		TagWithSeparator(listing.FieldAmenities, ",").
		Text(listing.FieldDescription).
		VectorHNSW(listing.FieldVector, r.cfg.VectorDim, db.DistanceCosine, r.cfg.HNSWM, r.cfg.HNSWEFConst).
		Build()
}
