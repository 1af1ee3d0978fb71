package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stwalsh4118/carprice/internal/dataset"
	"github.com/stwalsh4118/carprice/internal/estimator"
	"github.com/stwalsh4118/carprice/internal/logger"
	"github.com/stwalsh4118/carprice/internal/metrics"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/parse"
)

// PredictionService shapes user input for the price model and runs it.
// Every model call is a single attempt.
type PredictionService interface {
	// PredictSingle prices one fully specified listing.
	// Returns a *PredictionError if the model rejects the input.
	PredictSingle(ctx context.Context, in models.PredictionInput) (float64, error)

	// PredictBatch prices every row of an uploaded table and returns that
	// table with a predicted_price column appended.
	// Returns a *SchemaError, without calling the model, if prediction
	// columns are missing after year_num and kms_num were derived.
	// Returns a *PredictionError if the model rejects any row.
	PredictBatch(ctx context.Context, table dataframe.DataFrame) (dataframe.DataFrame, error)
}

// predictionService is the concrete implementation of PredictionService.
type predictionService struct {
	model   estimator.Model
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewPredictionService creates a new instance of PredictionService.
// m may be nil.
func NewPredictionService(model estimator.Model, log *logger.Logger, m *metrics.Metrics) PredictionService {
	return &predictionService{
		model:   model,
		log:     log,
		metrics: m,
	}
}

func (s *predictionService) PredictSingle(ctx context.Context, in models.PredictionInput) (float64, error) {
	fields := map[string]interface{}{
		"company":   in.Company,
		"fuel_type": in.FuelType,
		"year_num":  in.YearNum,
		"kms_num":   in.KmsNum,
	}

	prices, err := s.model.Predict(ctx, []models.FeatureRow{in.Row()})
	if err == nil && len(prices) != 1 {
		err = fmt.Errorf("model returned %d predictions for 1 row", len(prices))
	}
	if err != nil {
		s.log.Warn("Single prediction failed", withErr(fields, err))
		s.metrics.ObservePrediction(metrics.ModeSingle, metrics.OutcomePredictionError, 0)
		return 0, &PredictionError{Cause: err}
	}

	fields["predicted_price"] = prices[0]
	s.log.Info("Single prediction completed", fields)
	s.metrics.ObservePrediction(metrics.ModeSingle, metrics.OutcomeSuccess, 1)

	return prices[0], nil
}

func (s *predictionService) PredictBatch(ctx context.Context, table dataframe.DataFrame) (dataframe.DataFrame, error) {
	table, err := deriveFeatureColumns(table)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	if err := dataset.RequireColumns(table, models.PredictionColumns); err != nil {
		var missing *dataset.MissingColumnsError
		if errors.As(err, &missing) {
			s.log.Warn("Batch upload is missing prediction columns", map[string]interface{}{
				"missing": missing.Missing,
				"columns": table.Names(),
			})
			s.metrics.ObservePrediction(metrics.ModeBatch, metrics.OutcomeSchemaError, 0)
			return dataframe.DataFrame{}, &SchemaError{Missing: missing.Missing}
		}
		return dataframe.DataFrame{}, err
	}

	rows, err := featureRows(table)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	prices, err := s.model.Predict(ctx, rows)
	if err == nil && len(prices) != len(rows) {
		err = fmt.Errorf("model returned %d predictions for %d rows", len(prices), len(rows))
	}
	if err != nil {
		s.log.Warn("Batch prediction failed", map[string]interface{}{
			"rows":  len(rows),
			"error": err.Error(),
		})
		s.metrics.ObservePrediction(metrics.ModeBatch, metrics.OutcomePredictionError, 0)
		return dataframe.DataFrame{}, &PredictionError{Cause: err}
	}

	text := make([]string, len(prices))
	for i, p := range prices {
		text[i] = parse.FormatFloat(p)
	}
	out := table.Mutate(series.New(text, series.String, models.ColPredictedPrice))
	if out.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to append %s: %w", models.ColPredictedPrice, out.Err)
	}

	s.log.Info("Batch prediction completed", map[string]interface{}{
		"rows": len(rows),
	})
	s.metrics.ObservePrediction(metrics.ModeBatch, metrics.OutcomeSuccess, len(rows))

	return out, nil
}

// deriveFeatureColumns adds year_num from year and kms_num from kms_driven
// when the upload has the raw column but not the derived one.
func deriveFeatureColumns(table dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !dataset.HasColumn(table, models.ColYearNum) && dataset.HasColumn(table, models.ColYear) {
		raw, err := dataset.Column(table, models.ColYear)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		derived := make([]string, len(raw))
		for i, v := range raw {
			derived[i] = formatInt8(parse.Year(v))
		}
		table = table.Mutate(series.New(derived, series.String, models.ColYearNum))
		if table.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to derive %s: %w", models.ColYearNum, table.Err)
		}
	}

	if !dataset.HasColumn(table, models.ColKmsNum) && dataset.HasColumn(table, models.ColKmsDriven) {
		raw, err := dataset.Column(table, models.ColKmsDriven)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		derived := make([]string, len(raw))
		for i, v := range raw {
			derived[i] = formatFloat8(parse.Kms(v))
		}
		table = table.Mutate(series.New(derived, series.String, models.ColKmsNum))
		if table.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("failed to derive %s: %w", models.ColKmsNum, table.Err)
		}
	}

	return table, nil
}

// featureRows reads the four prediction columns. Unparseable numbers become
// missing values and are left for the model to reject.
func featureRows(table dataframe.DataFrame) ([]models.FeatureRow, error) {
	cols := make(map[string][]string, len(models.PredictionColumns))
	for _, name := range models.PredictionColumns {
		values, err := dataset.Column(table, name)
		if err != nil {
			return nil, err
		}
		cols[name] = values
	}

	rows := make([]models.FeatureRow, table.Nrow())
	for i := range rows {
		rows[i] = models.FeatureRow{
			Company:  categorical(cols[models.ColCompany][i]),
			FuelType: categorical(cols[models.ColFuelType][i]),
			YearNum:  yearNum(cols[models.ColYearNum][i]),
			KmsNum:   parse.Kms(cols[models.ColKmsNum][i]),
		}
	}
	return rows, nil
}

func categorical(raw string) string {
	if parse.IsMissing(raw) {
		return ""
	}
	return raw
}

// yearNum accepts an integer or an integral float such as "2015.0", which is
// how a year_num column looks after a round trip through a float column.
func yearNum(raw string) pgtype.Int8 {
	if y := parse.Year(raw); y.Valid {
		return y
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(f), Valid: true}
}

func formatInt8(v pgtype.Int8) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func formatFloat8(v pgtype.Float8) string {
	if !v.Valid {
		return ""
	}
	return parse.FormatFloat(v.Float64)
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
