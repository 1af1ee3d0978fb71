package models

import (
	"encoding/json"
	"math"

	"github.com/jackc/pgx/v5/pgtype"
)

// Column names of the source listings table.
const (
	ColName      = "name"
	ColCompany   = "company"
	ColYear      = "year"
	ColPrice     = "Price"
	ColKmsDriven = "kms_driven"
	ColFuelType  = "fuel_type"
)

// Derived and prediction column names.
const (
	ColPriceNum       = "price_num"
	ColKmsNum         = "kms_num"
	ColYearNum        = "year_num"
	ColPredictedPrice = "predicted_price"
)

// RawColumns lists the columns the source table must carry.
var RawColumns = []string{ColName, ColCompany, ColYear, ColPrice, ColKmsDriven, ColFuelType}

// PredictionColumns is the exact feature schema the price model expects, in order.
var PredictionColumns = []string{ColCompany, ColFuelType, ColYearNum, ColKmsNum}

// RawRecord is one row of the source table, every field kept as the original text.
type RawRecord struct {
	Name      string `json:"name"`
	Company   string `json:"company"`
	Year      string `json:"year"`
	Price     string `json:"Price"`
	KmsDriven string `json:"kms_driven"`
	FuelType  string `json:"fuel_type"`
}

// NormalizedRecord is a RawRecord with its numeric fields parsed.
// A derived field is either a finite number or invalid (missing).
type NormalizedRecord struct {
	RawRecord
	PriceNum pgtype.Float8 `json:"price_num"`
	KmsNum   pgtype.Float8 `json:"kms_num"`
	YearNum  pgtype.Int8   `json:"year_num"`
}

// PredictionInput is a single fully specified feature vector.
type PredictionInput struct {
	Company  string  `json:"company"`
	FuelType string  `json:"fuel_type"`
	YearNum  int64   `json:"year_num"`
	KmsNum   float64 `json:"kms_num"`
}

// FeatureRow is one row handed to the price model. Numeric features may be
// missing when they come from an uploaded table; the model decides what to
// do with them.
type FeatureRow struct {
	Company  string
	FuelType string
	YearNum  pgtype.Int8
	KmsNum   pgtype.Float8
}

// Row converts a PredictionInput into a FeatureRow with every field present.
func (p PredictionInput) Row() FeatureRow {
	return FeatureRow{
		Company:  p.Company,
		FuelType: p.FuelType,
		YearNum:  pgtype.Int8{Int64: p.YearNum, Valid: true},
		KmsNum:   pgtype.Float8{Float64: p.KmsNum, Valid: true},
	}
}

// PriceSummary holds descriptive statistics of a price column.
// Location and spread fields are NaN when Count is zero.
type PriceSummary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"25%"`
	P50   float64 `json:"50%"`
	P75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// MarshalJSON renders NaN statistics as null, since JSON has no NaN.
func (s PriceSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int      `json:"count"`
		Mean  *float64 `json:"mean"`
		Std   *float64 `json:"std"`
		Min   *float64 `json:"min"`
		P25   *float64 `json:"25%"`
		P50   *float64 `json:"50%"`
		P75   *float64 `json:"75%"`
		Max   *float64 `json:"max"`
	}{
		Count: s.Count,
		Mean:  finite(s.Mean),
		Std:   finite(s.Std),
		Min:   finite(s.Min),
		P25:   finite(s.P25),
		P50:   finite(s.P50),
		P75:   finite(s.P75),
		Max:   finite(s.Max),
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
