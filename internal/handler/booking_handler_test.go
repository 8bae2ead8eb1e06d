package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	"github.com/noah-isme/sma-facility-api/internal/middleware"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/schedule"
	"github.com/noah-isme/sma-facility-api/internal/service"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type bookingServiceMock struct {
	submitResp   *models.Booking
	submitErr    error
	availResp    *schedule.Availability
	availErr     error
	decideResp   *models.Booking
	decideErr    error
	withdrawErr  error
	listResp     []models.Booking
	listErr      error
	getResp      *models.Booking
	getErr       error
	lastList     service.ListBookingsRequest
	submitCalled bool
	forceCalled  bool
}

func (m *bookingServiceMock) Submit(ctx context.Context, req dto.SubmitBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	m.submitCalled = true
	return m.submitResp, m.submitErr
}

func (m *bookingServiceMock) CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (*schedule.Availability, error) {
	return m.availResp, m.availErr
}

func (m *bookingServiceMock) Decide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	return m.decideResp, m.decideErr
}

func (m *bookingServiceMock) ForceDecide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	m.forceCalled = true
	return m.decideResp, m.decideErr
}

func (m *bookingServiceMock) Withdraw(ctx context.Context, bookingID string, claims *models.JWTClaims) error {
	return m.withdrawErr
}

func (m *bookingServiceMock) List(ctx context.Context, req service.ListBookingsRequest, claims *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	m.lastList = req
	return m.listResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.listResp)}, m.listErr
}

func (m *bookingServiceMock) Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error) {
	return m.getResp, m.getErr
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})
	return c, w
}

func TestBookingHandlerSubmit(t *testing.T) {
	mockSvc := &bookingServiceMock{
		submitResp: &models.Booking{ID: "booking-1", Status: models.BookingPending},
	}
	handler := NewBookingHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	})
	c, w := testContext(t, http.MethodPost, "/bookings", payload)

	handler.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.submitCalled)
}

func TestBookingHandlerSubmitInvalidBody(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, nil)

	c, w := testContext(t, http.MethodPost, "/bookings", []byte(`{"activity":`))

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerSubmitConflict(t *testing.T) {
	mockSvc := &bookingServiceMock{submitErr: appErrors.ErrSlotConflict}
	handler := NewBookingHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	})
	c, w := testContext(t, http.MethodPost, "/bookings", payload)

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandlerList(t *testing.T) {
	mockSvc := &bookingServiceMock{
		listResp: []models.Booking{{ID: "booking-1"}},
	}
	handler := NewBookingHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodGet, "/bookings?status=PENDING&resource=Library", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PENDING", mockSvc.lastList.Status)
	assert.Equal(t, "Library", mockSvc.lastList.Resource)
}

func TestBookingHandlerAvailability(t *testing.T) {
	mockSvc := &bookingServiceMock{
		availResp: &schedule.Availability{OK: true, Reason: "available"},
	}
	handler := NewBookingHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodGet, "/bookings/availability?resource=Library&date=2025-03-15&time=10:00+AM", nil)

	handler.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "available")
}

func TestBookingHandlerDecide(t *testing.T) {
	mockSvc := &bookingServiceMock{
		decideResp: &models.Booking{ID: "booking-1", Status: models.BookingApproved},
	}
	handler := NewBookingHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DecideBookingRequest{Outcome: "APPROVED"})
	c, w := testContext(t, http.MethodPost, "/bookings/booking-1/decision", payload)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.Decide(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, mockSvc.forceCalled)
}

func TestBookingHandlerDecideInvalidState(t *testing.T) {
	mockSvc := &bookingServiceMock{decideErr: appErrors.ErrInvalidState}
	handler := NewBookingHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DecideBookingRequest{Outcome: "REJECTED"})
	c, w := testContext(t, http.MethodPost, "/bookings/booking-1/decision", payload)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.Decide(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestBookingHandlerForceDecide(t *testing.T) {
	mockSvc := &bookingServiceMock{
		decideResp: &models.Booking{ID: "booking-1", Status: models.BookingRejected},
	}
	handler := NewBookingHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.DecideBookingRequest{Outcome: "REJECTED", Reason: "double booked"})
	c, w := testContext(t, http.MethodPost, "/bookings/booking-1/force-decision", payload)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.ForceDecide(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.forceCalled)
}

func TestBookingHandlerWithdraw(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, nil)

	c, w := testContext(t, http.MethodDelete, "/bookings/booking-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.Withdraw(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestBookingHandlerWithdrawForbidden(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{withdrawErr: appErrors.ErrForbidden}, nil)

	c, w := testContext(t, http.MethodDelete, "/bookings/booking-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.Withdraw(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
