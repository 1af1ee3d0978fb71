package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/carprice/internal/errors"
	"github.com/stwalsh4118/carprice/internal/services"
)

// ListingHandler serves the read-only views over the listings table.
type ListingHandler struct {
	service      services.ListingService
	defaultLimit int
}

// NewListingHandler creates a new ListingHandler. defaultLimit is used when
// the preview request omits limit.
func NewListingHandler(service services.ListingService, defaultLimit int) *ListingHandler {
	return &ListingHandler{
		service:      service,
		defaultLimit: defaultLimit,
	}
}

// PreviewRequest represents the query parameters for the preview endpoint.
type PreviewRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Preview handles GET /api/v1/listings/preview.
func (h *ListingHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}
	if req.Limit == 0 {
		req.Limit = h.defaultLimit
	}

	preview, err := h.service.Preview(c.Request.Context(), req.Limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to read listings", err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Options handles GET /api/v1/listings/options.
func (h *ListingHandler) Options(c *gin.Context) {
	options, err := h.service.Options(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to list prediction options", err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// Summary handles GET /api/v1/listings/summary.
func (h *ListingHandler) Summary(c *gin.Context) {
	result, err := h.service.CleaningSummary(c.Request.Context())
	if err != nil {
		apierrors.InternalServerError(c, "Failed to compute cleaning summary", err)
		return
	}

	c.JSON(http.StatusOK, result)
}
