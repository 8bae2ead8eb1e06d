package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/schedule"
	"github.com/noah-isme/sma-facility-api/internal/service"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
	"github.com/noah-isme/sma-facility-api/pkg/response"
)

type bookingService interface {
	Submit(ctx context.Context, req dto.SubmitBookingRequest, claims *models.JWTClaims) (*models.Booking, error)
	CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (*schedule.Availability, error)
	Decide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error)
	ForceDecide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error)
	Withdraw(ctx context.Context, bookingID string, claims *models.JWTClaims) error
	List(ctx context.Context, req service.ListBookingsRequest, claims *models.JWTClaims) ([]models.Booking, *models.Pagination, error)
	Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error)
}

type metricsRecorder interface {
	RecordBookingSubmitted()
	RecordBookingDecided(outcome models.BookingStatus)
}

// BookingHandler exposes the booking workflow endpoints.
type BookingHandler struct {
	service bookingService
	metrics metricsRecorder
}

// NewBookingHandler builds a new handler.
func NewBookingHandler(service bookingService, metrics metricsRecorder) *BookingHandler {
	return &BookingHandler{service: service, metrics: metrics}
}

// Submit godoc
// @Summary Submit a booking request
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	var req dto.SubmitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	booking, err := h.service.Submit(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordBookingSubmitted()
	}
	response.Created(c, booking)
}

// List godoc
// @Summary List bookings visible to the caller
// @Tags Bookings
// @Produce json
// @Param resource query string false "Resource filter"
// @Param status query string false "Status filter (PENDING, APPROVED, REJECTED)"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	bookings, pagination, err := h.service.List(c.Request.Context(), service.ListBookingsRequest{
		Resource: c.Query("resource"),
		Status:   c.Query("status"),
		DateFrom: c.Query("from"),
		DateTo:   c.Query("to"),
		Page:     page,
		PageSize: pageSize,
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get one booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	booking, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Availability godoc
// @Summary Check whether a slot is free
// @Tags Bookings
// @Produce json
// @Param resource query string true "Resource"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param time query string true "Time slot label"
// @Success 200 {object} response.Envelope
// @Router /bookings/availability [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	availability, err := h.service.CheckAvailability(c.Request.Context(), dto.AvailabilityRequest{
		Resource: c.Query("resource"),
		Date:     c.Query("date"),
		Time:     c.Query("time"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Decide godoc
// @Summary Approve or reject a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.DecideBookingRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/decision [post]
func (h *BookingHandler) Decide(c *gin.Context) {
	h.decide(c, h.service.Decide)
}

// ForceDecide godoc
// @Summary Re-decide a booking regardless of its current status
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.DecideBookingRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/force-decision [post]
func (h *BookingHandler) ForceDecide(c *gin.Context) {
	h.decide(c, h.service.ForceDecide)
}

func (h *BookingHandler) decide(c *gin.Context, op func(context.Context, string, dto.DecideBookingRequest, *models.JWTClaims) (*models.Booking, error)) {
	claims := claimsFromContext(c)
	var req dto.DecideBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	booking, err := op(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordBookingDecided(booking.Status)
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Withdraw godoc
// @Summary Withdraw a pending booking
// @Tags Bookings
// @Param id path string true "Booking ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
