package estimator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/carprice/internal/models"
)

func loadFixture(t *testing.T) *Pipeline {
	t.Helper()
	p, err := LoadArtifact("testdata/model.yaml")
	require.NoError(t, err)
	return p
}

func row(company, fuel string, year int64, kms float64) models.FeatureRow {
	return models.PredictionInput{Company: company, FuelType: fuel, YearNum: year, KmsNum: kms}.Row()
}

func TestLoadArtifact_YAML(t *testing.T) {
	p := loadFixture(t)

	assert.Equal(t, KindLinear, p.Kind)
	assert.Equal(t, "2024-05-01", p.Version)
	assert.Equal(t, []string{"company", "fuel_type", "year_num", "kms_num"}, p.Features())
	assert.Equal(t, []string{"Hyundai", "Maruti", "Toyota"}, p.Categories("company"))
	assert.Nil(t, p.Categories("year_num"))
}

func TestLoadArtifact_JSON(t *testing.T) {
	p, err := LoadArtifact("testdata/model.json")
	require.NoError(t, err)

	got, err := p.Predict(context.Background(), []models.FeatureRow{row("Maruti", "Petrol", 2000, 1000)})
	require.NoError(t, err)
	assert.InDelta(t, 2001.0, got[0], 1e-9)
}

func TestLoadArtifact_MissingFile(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "model.yaml"))
	assert.ErrorIs(t, err, ErrArtifact)
}

func TestParseArtifact_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "Not YAML", body: "kind: [unclosed"},
		{name: "Unsupported kind", body: "kind: forest"},
		{
			name: "Length mismatch",
			body: `
categorical:
  - {feature: company, categories: [A, B], coefficients: [1]}
  - {feature: fuel_type, categories: [P], coefficients: [1]}
numeric:
  - {feature: year_num, coefficient: 1}
  - {feature: kms_num, coefficient: 1}`,
		},
		{
			name: "Missing feature",
			body: `
categorical:
  - {feature: company, categories: [A], coefficients: [1]}
numeric:
  - {feature: year_num, coefficient: 1}
  - {feature: kms_num, coefficient: 1}`,
		},
		{
			name: "Numeric feature declared categorical",
			body: `
categorical:
  - {feature: year_num, categories: ["2015"], coefficients: [1]}`,
		},
		{
			name: "Bad unknown policy",
			body: `
categorical:
  - {feature: company, categories: [A], coefficients: [1], handle_unknown: guess}`,
		},
		{
			name: "Duplicate category",
			body: `
categorical:
  - {feature: company, categories: [A, A], coefficients: [1, 2]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseArtifact([]byte(tc.body))
			assert.ErrorIs(t, err, ErrArtifact)
		})
	}
}

func TestPredict_Linear(t *testing.T) {
	p := loadFixture(t)

	got, err := p.Predict(context.Background(), []models.FeatureRow{
		row("Maruti", "Petrol", 2015, 45000),
		row("Toyota", "Diesel", 2019, 5000),
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 281500.0, got[0], 1e-6)
	// -20,000,000 + 400,000 + 100,000 + 10,100*2019 - 5,000
	assert.InDelta(t, 886900.0, got[1], 1e-6)
}

func TestPredict_UnknownCategoryFails(t *testing.T) {
	p := loadFixture(t)

	_, err := p.Predict(context.Background(), []models.FeatureRow{
		row("Maruti", "Petrol", 2015, 45000),
		row("Lamborghini", "Petrol", 2015, 45000),
	})

	assert.ErrorIs(t, err, ErrUnknownCategory)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "Lamborghini")
}

func TestPredict_IgnoredUnknownCategoryContributesNothing(t *testing.T) {
	p := loadFixture(t)

	known, err := p.Predict(context.Background(), []models.FeatureRow{row("Maruti", "Petrol", 2015, 45000)})
	require.NoError(t, err)
	unknown, err := p.Predict(context.Background(), []models.FeatureRow{row("Maruti", "Electric", 2015, 45000)})
	require.NoError(t, err)

	// Petrol carries a zero weight, so an ignored fuel type prices the same.
	assert.Equal(t, known, unknown)
}

func TestPredict_MissingNumericFails(t *testing.T) {
	p := loadFixture(t)

	_, err := p.Predict(context.Background(), []models.FeatureRow{{
		Company:  "Maruti",
		FuelType: "Petrol",
		YearNum:  pgtype.Int8{Int64: 2015, Valid: true},
		KmsNum:   pgtype.Float8{},
	}})

	assert.ErrorIs(t, err, ErrMissingValue)
	assert.Contains(t, err.Error(), "kms_num")
}

func TestPredict_EmptyBatch(t *testing.T) {
	p := loadFixture(t)

	got, err := p.Predict(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPredict_CancelledContext(t *testing.T) {
	p := loadFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Predict(ctx, []models.FeatureRow{row("Maruti", "Petrol", 2015, 45000)})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_ImplementsModel(t *testing.T) {
	var _ Model = loadFixture(t)
}
