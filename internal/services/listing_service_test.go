package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/models"
)

// MockListingRepository is a mock implementation of ListingRepository for testing
type MockListingRepository struct {
	mock.Mock
}

func (m *MockListingRepository) All(ctx context.Context) ([]models.NormalizedRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.NormalizedRecord)
	return records, args.Error(1)
}

func (m *MockListingRepository) Head(ctx context.Context, n int) ([]models.NormalizedRecord, error) {
	args := m.Called(ctx, n)
	records, _ := args.Get(0).([]models.NormalizedRecord)
	return records, args.Error(1)
}

func (m *MockListingRepository) Shape(ctx context.Context) (int, int) {
	args := m.Called(ctx)
	return args.Int(0), args.Int(1)
}

func (m *MockListingRepository) Columns(ctx context.Context) []string {
	args := m.Called(ctx)
	columns, _ := args.Get(0).([]string)
	return columns
}

func (m *MockListingRepository) DistinctCompanies(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	values, _ := args.Get(0).([]string)
	return values, args.Error(1)
}

func (m *MockListingRepository) DistinctFuelTypes(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	values, _ := args.Get(0).([]string)
	return values, args.Error(1)
}

func TestPreview_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	head := []models.NormalizedRecord{record("Maruti", "Petrol", 450000, 2015, 45000)}
	columns := append(append([]string{}, models.RawColumns...), models.ColPriceNum, models.ColKmsNum, models.ColYearNum)

	mockRepo.On("Head", ctx, 30).Return(head, nil)
	mockRepo.On("Shape", ctx).Return(816, 9)
	mockRepo.On("Columns", ctx).Return(columns)

	// Act
	preview, err := service.Preview(ctx, 30)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, head, preview.Records)
	assert.Equal(t, 816, preview.Rows)
	assert.Equal(t, 9, preview.Cols)
	assert.Equal(t, columns, preview.Columns)
	mockRepo.AssertExpectations(t)
}

func TestPreview_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1, MaxPreviewRows + 1} {
		// Arrange
		mockRepo := new(MockListingRepository)
		service := NewListingService(mockRepo, logger.Nop())

		// Act
		preview, err := service.Preview(context.Background(), limit)

		// Assert
		assert.Nil(t, preview)
		assert.ErrorIs(t, err, ErrInvalidLimit)
		assert.Contains(t, err.Error(), "must be between 1 and 500")
		// Repository should not be called for validation errors
		mockRepo.AssertNotCalled(t, "Head")
	}
}

func TestPreview_RepositoryError(t *testing.T) {
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("Head", ctx, 5).Return(nil, context.Canceled)

	preview, err := service.Preview(ctx, 5)

	assert.Nil(t, preview)
	assert.ErrorIs(t, err, context.Canceled)
	mockRepo.AssertNotCalled(t, "Shape")
}

func TestOptions_Success(t *testing.T) {
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("DistinctCompanies", ctx).Return([]string{"Hyundai", "Maruti"}, nil)
	mockRepo.On("DistinctFuelTypes", ctx).Return([]string{"Diesel", "Petrol"}, nil)

	options, err := service.Options(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"Hyundai", "Maruti"}, options.Companies)
	assert.Equal(t, []string{"Diesel", "Petrol"}, options.FuelTypes)
	mockRepo.AssertExpectations(t)
}

func TestOptions_CompaniesError(t *testing.T) {
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()
	repoErr := errors.New("boom")

	mockRepo.On("DistinctCompanies", ctx).Return(nil, repoErr)

	options, err := service.Options(ctx)

	assert.Nil(t, options)
	assert.ErrorIs(t, err, repoErr)
	mockRepo.AssertNotCalled(t, "DistinctFuelTypes", mock.Anything)
}

func TestCleaningSummary_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("All", ctx).Return([]models.NormalizedRecord{
		record("Maruti", "Petrol", 200000, 2015, 45000),
		record("Hyundai", "Diesel", 400000, 2018, 30000),
		record("Tata", "Petrol", 5000, 2012, 80000),
		record("Ford", "Diesel", 600000, 1990, 80000),
	}, nil)

	// Act
	result, err := service.CleaningSummary(ctx)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 2, result.Summary.Count)
	assert.InDelta(t, 300000, result.Summary.Mean, 1e-9)
	assert.Equal(t, 200000.0, result.Summary.Min)
	assert.Equal(t, 400000.0, result.Summary.Max)
	mockRepo.AssertExpectations(t)
}

func TestCleaningSummary_NothingSurvives(t *testing.T) {
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("All", ctx).Return([]models.NormalizedRecord{
		record("Tata", "Petrol", 5000, 2012, 80000),
	}, nil)

	result, err := service.CleaningSummary(ctx)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
	assert.True(t, math.IsNaN(result.Summary.Mean))
}

func TestCleaningSummary_RepositoryError(t *testing.T) {
	mockRepo := new(MockListingRepository)
	service := NewListingService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("All", ctx).Return(nil, context.DeadlineExceeded)

	result, err := service.CleaningSummary(ctx)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
