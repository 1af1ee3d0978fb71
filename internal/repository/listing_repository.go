package repository

import (
	"context"
	"sort"

	"github.com/stwalsh4118/carprice/internal/dataset"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/parse"
)

// ListingRepository defines read access to the listings table.
type ListingRepository interface {
	// All returns every normalized listing in source order.
	All(ctx context.Context) ([]models.NormalizedRecord, error)

	// Head returns the first n listings. n larger than the table returns
	// everything.
	Head(ctx context.Context, n int) ([]models.NormalizedRecord, error)

	// Shape returns the row and column counts of the table.
	Shape(ctx context.Context) (rows, cols int)

	// Columns lists source columns followed by derived columns.
	Columns(ctx context.Context) []string

	// DistinctCompanies returns the sorted unique non-missing companies.
	DistinctCompanies(ctx context.Context) ([]string, error)

	// DistinctFuelTypes returns the sorted unique non-missing fuel types.
	DistinctFuelTypes(ctx context.Context) ([]string, error)
}

// listingRepository serves listings from the dataset loaded at startup.
type listingRepository struct {
	ds *dataset.Dataset
}

// NewListingRepository creates a ListingRepository over a loaded dataset.
func NewListingRepository(ds *dataset.Dataset) ListingRepository {
	return &listingRepository{ds: ds}
}

func (r *listingRepository) All(ctx context.Context) ([]models.NormalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ds.Records(), nil
}

func (r *listingRepository) Head(ctx context.Context, n int) ([]models.NormalizedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ds.Head(n), nil
}

func (r *listingRepository) Shape(_ context.Context) (int, int) {
	return r.ds.Shape()
}

func (r *listingRepository) Columns(_ context.Context) []string {
	return r.ds.Columns()
}

func (r *listingRepository) DistinctCompanies(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(rec models.NormalizedRecord) string { return rec.Company })
}

func (r *listingRepository) DistinctFuelTypes(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(rec models.NormalizedRecord) string { return rec.FuelType })
}

func (r *listingRepository) distinct(ctx context.Context, field func(models.NormalizedRecord) string) ([]string, error) {
	records, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, rec := range records {
		value := field(rec)
		if parse.IsMissing(value) {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out, nil
}
