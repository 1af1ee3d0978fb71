package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/carprice/internal/dataset"
	apierrors "github.com/stwalsh4118/carprice/internal/errors"
	"github.com/stwalsh4118/carprice/internal/middleware"
	"github.com/stwalsh4118/carprice/internal/models"
	"github.com/stwalsh4118/carprice/internal/services"
)

const (
	// BatchFormField is the multipart field carrying the uploaded table.
	BatchFormField = "file"
	// BatchDownloadName is the filename offered for batch results.
	BatchDownloadName = "car_price_predictions.csv"
)

// PredictionHandler exposes the price model over HTTP.
type PredictionHandler struct {
	service  services.PredictionService
	maxBytes int64
}

// NewPredictionHandler creates a new PredictionHandler. Uploads larger than
// maxBytes are rejected.
func NewPredictionHandler(service services.PredictionService, maxBytes int64) *PredictionHandler {
	return &PredictionHandler{
		service:  service,
		maxBytes: maxBytes,
	}
}

// PredictRequest is the body of a single prediction.
type PredictRequest struct {
	Company  string `json:"company" binding:"required"`
	FuelType string `json:"fuel_type" binding:"required"`
	YearNum  *int64 `json:"year_num" binding:"required,gte=1990,lte=2026"`
	KmsNum   *int64 `json:"kms_num" binding:"required,gte=0,lte=1000000"`
}

// PredictResponse is the result of a single prediction.
type PredictResponse struct {
	PredictedPrice float64                `json:"predicted_price"`
	Input          models.PredictionInput `json:"input"`
}

// BatchRequest represents the query parameters for batch prediction.
type BatchRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=csv json"`
}

// BatchResponse is the JSON rendering of a priced table.
type BatchResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

// Predict handles POST /api/v1/predictions.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	in := models.PredictionInput{
		Company:  req.Company,
		FuelType: req.FuelType,
		YearNum:  *req.YearNum,
		KmsNum:   float64(*req.KmsNum),
	}

	price, err := h.service.PredictSingle(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, services.ErrPrediction) {
			apierrors.PredictionError(c, err.Error())
			return
		}
		apierrors.InternalServerError(c, "Failed to run prediction", err)
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		PredictedPrice: price,
		Input:          in,
	})
}

// PredictBatch handles POST /api/v1/predictions/batch. The table is read from
// the multipart field "file" as CSV, or as XLSX when the filename says so.
// The priced table is returned as a CSV attachment unless format=json.
// The route is expected to sit behind middleware.BodyLimit.
func (h *PredictionHandler) PredictBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	header, err := c.FormFile(BatchFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.PayloadTooLarge(c, h.maxBytes)
			return
		}
		apierrors.BadRequest(c, "A table must be uploaded in the \"file\" field", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		apierrors.InternalServerError(c, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	table, err := dataset.ReadTable(file, dataset.FormatFromFilename(header.Filename))
	if err != nil {
		apierrors.BadRequest(c, "Could not read the uploaded table", map[string]interface{}{
			"filename": header.Filename,
			"reason":   err.Error(),
		})
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing batch upload", map[string]interface{}{
			"filename": header.Filename,
			"size":     header.Size,
			"rows":     table.Nrow(),
			"columns":  table.Ncol(),
		})
	}

	priced, err := h.service.PredictBatch(c.Request.Context(), table)
	if err != nil {
		var schemaErr *services.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			apierrors.SchemaError(c, schemaErr.Error(), schemaErr.Missing)
		case errors.Is(err, services.ErrPrediction):
			apierrors.PredictionError(c, err.Error())
		default:
			apierrors.InternalServerError(c, "Failed to run batch prediction", err)
		}
		return
	}

	if req.Format == "json" {
		records := priced.Records()
		c.JSON(http.StatusOK, BatchResponse{
			Columns: records[0],
			Rows:    records[1:],
			Count:   len(records) - 1,
		})
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, priced); err != nil {
		apierrors.InternalServerError(c, "Failed to encode predictions", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+BatchDownloadName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
