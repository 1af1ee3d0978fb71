package services

import (
	"math"
	"sort"

	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/parse"
	"gonum.org/v1/gonum/stat"
)

// Plausibility bounds for a cleaned listing. Price bounds are exclusive,
// year and distance bounds inclusive.
const (
	MinPriceExclusive = 10000.0
	MaxPriceExclusive = 15000000.0
	MinYear           = 1995
	MaxYear           = 2025
	MinKms            = 0.0
	MaxKms            = 500000.0
)

// Clean returns the listings that pass every validity predicate. The input
// is not modified and the result depends on nothing but the input.
func Clean(records []models.NormalizedRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, 0, len(records))
	for _, r := range records {
		if IsClean(r) {
			out = append(out, r)
		}
	}
	return out
}

// IsClean reports whether one listing passes all five predicates.
func IsClean(r models.NormalizedRecord) bool {
	if !r.PriceNum.Valid || !r.KmsNum.Valid || !r.YearNum.Valid {
		return false
	}
	if parse.IsMissing(r.Company) || parse.IsMissing(r.FuelType) {
		return false
	}
	price, year, kms := r.PriceNum.Float64, r.YearNum.Int64, r.KmsNum.Float64
	if price <= MinPriceExclusive || price >= MaxPriceExclusive {
		return false
	}
	if year < MinYear || year > MaxYear {
		return false
	}
	return kms >= MinKms && kms <= MaxKms
}

// Prices extracts price_num from records that have one.
func Prices(records []models.NormalizedRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if r.PriceNum.Valid {
			out = append(out, r.PriceNum.Float64)
		}
	}
	return out
}

// Describe computes count, mean, sample standard deviation, min, quartiles
// and max. Quartiles interpolate linearly between closest ranks. With no
// values every statistic except Count is NaN; with one value Std is NaN.
func Describe(values []float64) models.PriceSummary {
	nan := math.NaN()
	summary := models.PriceSummary{
		Count: len(values),
		Mean:  nan, Std: nan, Min: nan, P25: nan, P50: nan, P75: nan, Max: nan,
	}
	if len(values) == 0 {
		return summary
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	summary.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		summary.Std = stat.StdDev(sorted, nil)
	}
	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	summary.P25 = quantile(sorted, 0.25)
	summary.P50 = quantile(sorted, 0.50)
	summary.P75 = quantile(sorted, 0.75)
	return summary
}

// quantile expects sorted, non-empty input.
func quantile(sorted []float64, p float64) float64 {
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
