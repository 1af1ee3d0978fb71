package services

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/repository"
)

// Preview limit bounds
const (
	MinPreviewRows = 1
	MaxPreviewRows = 500
)

// Preview is the head of the raw table together with its shape.
type Preview struct {
	Records []models.NormalizedRecord `json:"records"`
	Rows    int                       `json:"rows"`
	Cols    int                       `json:"cols"`
	Columns []string                  `json:"columns"`
}

// Options lists the values the single-prediction form offers.
type Options struct {
	Companies []string `json:"companies"`
	FuelTypes []string `json:"fuel_types"`
}

// CleaningResult is the cleaned subset and the price statistics over it.
type CleaningResult struct {
	Records []models.NormalizedRecord `json:"-"`
	Count   int                       `json:"rows_after_cleaning"`
	Summary models.PriceSummary       `json:"price_summary"`
}

// ListingService defines the read-side operations over the listings table.
type ListingService interface {
	// Preview returns the first limit listings plus the table shape.
	// Returns ErrInvalidLimit if limit is outside 1..500.
	Preview(ctx context.Context, limit int) (*Preview, error)

	// Options returns the distinct companies and fuel types.
	Options(ctx context.Context) (*Options, error)

	// CleaningSummary filters the table and describes price_num over the
	// result. It is recomputed on every call.
	CleaningSummary(ctx context.Context) (*CleaningResult, error)
}

// listingService is the concrete implementation of ListingService.
type listingService struct {
	repo repository.ListingRepository
	log  *logger.Logger
}

// NewListingService creates a new instance of ListingService.
func NewListingService(repo repository.ListingRepository, log *logger.Logger) ListingService {
	return &listingService{
		repo: repo,
		log:  log,
	}
}

func (s *listingService) Preview(ctx context.Context, limit int) (*Preview, error) {
	if limit < MinPreviewRows || limit > MaxPreviewRows {
		s.log.Warn("Invalid preview limit provided", map[string]interface{}{
			"limit": limit,
		})
		return nil, fmt.Errorf("%w: must be between %d and %d, got %d",
			ErrInvalidLimit, MinPreviewRows, MaxPreviewRows, limit)
	}

	records, err := s.repo.Head(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}

	rows, cols := s.repo.Shape(ctx)
	return &Preview{
		Records: records,
		Rows:    rows,
		Cols:    cols,
		Columns: s.repo.Columns(ctx),
	}, nil
}

func (s *listingService) Options(ctx context.Context) (*Options, error) {
	companies, err := s.repo.DistinctCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	fuels, err := s.repo.DistinctFuelTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fuel types: %w", err)
	}
	return &Options{Companies: companies, FuelTypes: fuels}, nil
}

func (s *listingService) CleaningSummary(ctx context.Context) (*CleaningResult, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		s.log.Error("Failed to read listings for cleaning", err, nil)
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}

	cleaned := Clean(records)
	result := &CleaningResult{
		Records: cleaned,
		Count:   len(cleaned),
		Summary: Describe(Prices(cleaned)),
	}

	s.log.Debug("Cleaning summary computed", map[string]interface{}{
		"rows_before": len(records),
		"rows_after":  result.Count,
	})

	return result, nil
}
