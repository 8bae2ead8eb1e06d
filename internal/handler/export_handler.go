package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/service"
	"github.com/noah-isme/sma-facility-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, format service.ExportFormat, filter models.BookingFilter) (*service.ExportResult, error)
}

// ExportHandler streams schedule exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler builds a new handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Download godoc
// @Summary Export the booking schedule
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format: csv or pdf (default csv)"
// @Param resource query string false "Resource filter"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /bookings/export [get]
func (h *ExportHandler) Download(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	filter := models.BookingFilter{
		Resource: c.Query("resource"),
		DateFrom: c.Query("from"),
		DateTo:   c.Query("to"),
	}

	result, err := h.service.Generate(c.Request.Context(), format, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
