package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/repository"
	"github.com/noah-isme/sma-facility-api/internal/schedule"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	ListBySlot(ctx context.Context, resource, date, timeSlot string) ([]models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	UpdateDecision(ctx context.Context, decision models.BookingDecision, reviewedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type bookingNotifier interface {
	BookingSubmitted(ctx context.Context, booking *models.Booking) error
	BookingDecided(ctx context.Context, booking *models.Booking) error
}

type bookingEventPublisher interface {
	Publish(ctx context.Context, event repository.BookingEvent) error
}

type bookingAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BookingService runs the booking approval workflow: submission with an
// advisory conflict pre-check, admin review, and owner withdrawal.
type BookingService struct {
	repo      bookingRepository
	notifier  bookingNotifier
	feed      bookingEventPublisher
	audit     bookingAuditor
	validator *validator.Validate
	logger    *zap.Logger

	resources map[string]struct{}
	slots     map[string]struct{}
	location  *time.Location
	now       func() time.Time
}

// NewBookingService constructs the service. The resource and time-slot sets
// come from configuration and are closed: submissions outside them are
// validation failures, not new enum values.
func NewBookingService(repo bookingRepository, notifier bookingNotifier, feed bookingEventPublisher, audit bookingAuditor, validate *validator.Validate, logger *zap.Logger, cfg config.BookingConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		location = time.Local
	}

	svc := &BookingService{
		repo:      repo,
		notifier:  notifier,
		feed:      feed,
		audit:     audit,
		validator: validate,
		logger:    logger,
		resources: toSet(cfg.Resources),
		slots:     toSet(cfg.TimeSlots),
		location:  location,
		now:       time.Now,
	}
	svc.validator.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		switch models.BookingStatus(strings.ToUpper(fl.Field().String())) {
		case models.BookingApproved, models.BookingRejected:
			return true
		default:
			return false
		}
	})
	return svc
}

// Submit validates a request, runs the advisory conflict check and persists a
// pending booking. The check and the write are not transactional: two racing
// submissions for one slot can both land as pending, and the admin review
// step is the arbiter that rejects the loser.
func (s *BookingService) Submit(ctx context.Context, req dto.SubmitBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.Time == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "time slot is required")
	}
	if strings.TrimSpace(claims.FullName) == "" || strings.TrimSpace(claims.Department) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "requester name and department are required")
	}
	if _, ok := s.resources[req.Resource]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resource %q", req.Resource))
	}
	if _, ok := s.slots[req.Time]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown time slot %q", req.Time))
	}

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted YYYY-MM-DD")
	}

	availability, err := s.availability(ctx, schedule.Candidate{Resource: req.Resource, Date: date, TimeSlot: req.Time})
	if err != nil {
		return nil, err
	}
	if !availability.OK {
		if availability.Code == schedule.SlotPast {
			return nil, appErrors.Clone(appErrors.ErrPastDate, availability.Reason)
		}
		return nil, appErrors.Clone(appErrors.ErrSlotConflict, availability.Reason)
	}

	booking := &models.Booking{
		TeacherID:    claims.UserID,
		TeacherEmail: claims.Email,
		TeacherName:  claims.FullName,
		Department:   claims.Department,
		Activity:     req.Activity,
		Resource:     req.Resource,
		Date:         date.String(),
		TimeSlot:     req.Time,
		Status:       models.BookingPending,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		booking.Notes = &notes
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.publish(ctx, repository.BookingEventCreated, booking)
	if err := s.notifier.BookingSubmitted(ctx, booking); err != nil {
		s.logger.Warn("failed to notify admins of new booking", zap.String("booking_id", booking.ID), zap.Error(err))
	}
	return booking, nil
}

// CheckAvailability runs the advisory conflict check without writing anything.
func (s *BookingService) CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (*schedule.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be formatted YYYY-MM-DD")
	}
	availability, err := s.availability(ctx, schedule.Candidate{Resource: req.Resource, Date: date, TimeSlot: req.Time})
	if err != nil {
		return nil, err
	}
	return availability, nil
}

// Decide moves a pending booking to approved or rejected and notifies the
// requester. Non-pending bookings are refused; re-review goes through
// ForceDecide so it is never an accidental back door.
func (s *BookingService) Decide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	return s.decide(ctx, bookingID, req, claims, false)
}

// ForceDecide re-decides a booking regardless of its current status. The
// transition is written to the audit log with both states.
func (s *BookingService) ForceDecide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims) (*models.Booking, error) {
	return s.decide(ctx, bookingID, req, claims, true)
}

func (s *BookingService) decide(ctx context.Context, bookingID string, req dto.DecideBookingRequest, claims *models.JWTClaims, force bool) (*models.Booking, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if !force && booking.Status != models.BookingPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("booking has already been %s", strings.ToLower(string(booking.Status))))
	}

	previousStatus := booking.Status
	decision := models.BookingDecision{
		BookingID:  bookingID,
		NewStatus:  models.BookingStatus(strings.ToUpper(req.Outcome)),
		ReviewerID: claims.UserID,
		Reason:     strings.TrimSpace(req.Reason),
	}

	reviewedAt := s.now().UTC()
	if err := s.repo.UpdateDecision(ctx, decision, reviewedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}

	booking.Status = decision.NewStatus
	booking.ReviewedBy = &decision.ReviewerID
	booking.ReviewedAt = &reviewedAt
	booking.UpdatedAt = reviewedAt
	if decision.Reason != "" {
		booking.ReviewReason = &decision.Reason
	}

	if force {
		s.recordForceDecide(ctx, claims, booking, previousStatus)
	}

	s.publish(ctx, repository.BookingEventDecided, booking)
	if err := s.notifier.BookingDecided(ctx, booking); err != nil {
		s.logger.Warn("failed to notify teacher of decision", zap.String("booking_id", booking.ID), zap.Error(err))
	}
	return booking, nil
}

// Withdraw deletes a pending booking on behalf of its owner.
func (s *BookingService) Withdraw(ctx context.Context, bookingID string, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.TeacherID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester may withdraw a booking")
	}
	if booking.Status != models.BookingPending {
		return appErrors.Clone(appErrors.ErrInvalidState, "only pending bookings can be withdrawn")
	}
	if err := s.repo.Delete(ctx, bookingID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw booking")
	}
	s.publish(ctx, repository.BookingEventWithdrawn, booking)
	return nil
}

// ListBookingsRequest describes filters for listing bookings.
type ListBookingsRequest struct {
	Resource string
	Status   string
	DateFrom string
	DateTo   string
	Page     int
	PageSize int
}

// List returns bookings visible to the caller: teachers see their own
// requests, admins see everything.
func (s *BookingService) List(ctx context.Context, req ListBookingsRequest, claims *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.BookingFilter{
		Resource: req.Resource,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if claims.Role != models.RoleAdmin {
		filter.TeacherID = claims.UserID
	}
	if req.Status != "" {
		status := models.BookingStatus(strings.ToUpper(req.Status))
		switch status {
		case models.BookingPending, models.BookingApproved, models.BookingRejected:
			filter.Status = &status
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return bookings, pagination, nil
}

// Get returns one booking, restricted to its owner for non-admin callers.
func (s *BookingService) Get(ctx context.Context, bookingID string, claims *models.JWTClaims) (*models.Booking, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if claims.Role != models.RoleAdmin && booking.TeacherID != claims.UserID {
		return nil, appErrors.ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) availability(ctx context.Context, candidate schedule.Candidate) (*schedule.Availability, error) {
	existing, err := s.repo.ListBySlot(ctx, candidate.Resource, candidate.Date.String(), candidate.TimeSlot)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for slot")
	}
	availability := schedule.CheckAvailability(candidate, existing, schedule.DateOf(s.now().In(s.location)))
	return &availability, nil
}

func (s *BookingService) publish(ctx context.Context, eventType repository.BookingEventType, booking *models.Booking) {
	if s.feed == nil {
		return
	}
	event := repository.BookingEvent{
		Type:      eventType,
		BookingID: booking.ID,
		Resource:  booking.Resource,
		Date:      booking.Date,
		TimeSlot:  booking.TimeSlot,
		Status:    booking.Status,
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish booking event", zap.String("booking_id", booking.ID), zap.Error(err))
	}
}

func (s *BookingService) recordForceDecide(ctx context.Context, claims *models.JWTClaims, booking *models.Booking, previous models.BookingStatus) {
	if s.audit == nil {
		return
	}
	oldValues, _ := json.Marshal(map[string]string{"status": string(previous)})
	newValues, _ := json.Marshal(map[string]string{"status": string(booking.Status)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &claims.UserID,
		Action:     models.AuditActionForceDecide,
		Resource:   "bookings",
		ResourceID: &booking.ID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record force-decide audit log", zap.String("booking_id", booking.ID), zap.Error(err))
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
