package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
	"github.com/noah-isme/sma-facility-api/pkg/response"
)

type calendarService interface {
	MonthGrid(ctx context.Context, year, month int, resource string) (*dto.MonthGridResponse, error)
}

// CalendarHandler serves projected month calendars.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler builds a new handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// MonthGrid godoc
// @Summary Get the projected month calendar
// @Tags Calendar
// @Produce json
// @Param year path int true "Year"
// @Param month path int true "Month (1-12)"
// @Param resource query string false "Resource filter; empty means all resources"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/{year}/{month} [get]
func (h *CalendarHandler) MonthGrid(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be a number"))
		return
	}

	grid, err := h.service.MonthGrid(c.Request.Context(), year, month, c.Query("resource"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grid, nil)
}
