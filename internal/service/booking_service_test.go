package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-facility-api/internal/dto"
	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/internal/repository"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type bookingRepoStub struct {
	created     []*models.Booking
	createErr   error
	byID        map[string]*models.Booking
	getErr      error
	slotItems   []models.Booking
	slotErr     error
	listItems   []models.Booking
	listTotal   int
	listErr     error
	lastFilter  models.BookingFilter
	decisions   []models.BookingDecision
	decisionErr error
	deleted     []string
	deleteErr   error
}

func (s *bookingRepoStub) Create(ctx context.Context, booking *models.Booking) error {
	if s.createErr != nil {
		return s.createErr
	}
	booking.ID = "booking-new"
	s.created = append(s.created, booking)
	return nil
}

func (s *bookingRepoStub) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if b, ok := s.byID[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingRepoStub) ListBySlot(ctx context.Context, resource, date, timeSlot string) ([]models.Booking, error) {
	return s.slotItems, s.slotErr
}

func (s *bookingRepoStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	s.lastFilter = filter
	return s.listItems, s.listTotal, s.listErr
}

func (s *bookingRepoStub) UpdateDecision(ctx context.Context, decision models.BookingDecision, reviewedAt time.Time) error {
	if s.decisionErr != nil {
		return s.decisionErr
	}
	s.decisions = append(s.decisions, decision)
	return nil
}

func (s *bookingRepoStub) Delete(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type notifierStub struct {
	submitted []string
	decided   []string
	err       error
}

func (s *notifierStub) BookingSubmitted(ctx context.Context, booking *models.Booking) error {
	s.submitted = append(s.submitted, booking.ID)
	return s.err
}

func (s *notifierStub) BookingDecided(ctx context.Context, booking *models.Booking) error {
	s.decided = append(s.decided, booking.ID)
	return s.err
}

type feedStub struct {
	events []repository.BookingEvent
	err    error
}

func (s *feedStub) Publish(ctx context.Context, event repository.BookingEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (s *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return s.err
}

func bookingTestConfig() config.BookingConfig {
	return config.BookingConfig{
		Resources: []string{"Library", "Gymnasium"},
		TimeSlots: []string{"08:00 AM", "10:00 AM"},
		Timezone:  "UTC",
	}
}

func newTestBookingService(repo *bookingRepoStub, notifier *notifierStub, feed *feedStub, audit *auditStub) *BookingService {
	svc := NewBookingService(repo, notifier, feed, audit, nil, nil, bookingTestConfig())
	svc.now = func() time.Time {
		return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func teacherClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:     "teacher-1",
		Role:       models.RoleTeacher,
		Email:      "sari@school.test",
		FullName:   "Ms. Sari",
		Department: "Science",
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:   "admin-1",
		Role:     models.RoleAdmin,
		Email:    "admin@school.test",
		FullName: "Principal",
	}
}

func TestBookingSubmit(t *testing.T) {
	repo := &bookingRepoStub{}
	notifier := &notifierStub{}
	feed := &feedStub{}
	svc := newTestBookingService(repo, notifier, feed, &auditStub{})

	booking, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "teacher-1", booking.TeacherID)
	assert.Equal(t, "Science", booking.Department)
	require.Len(t, repo.created, 1)
	require.Len(t, feed.events, 1)
	assert.Equal(t, repository.BookingEventCreated, feed.events[0].Type)
	assert.Equal(t, []string{"booking-new"}, notifier.submitted)
}

func TestBookingSubmitNormalizesStartTime(t *testing.T) {
	repo := &bookingRepoStub{}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	booking, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity:  "Basketball",
		Resource:  "Gymnasium",
		Date:      "2025-03-20",
		StartTime: "10:00",
		EndTime:   "11:00",
	}, teacherClaims())

	require.NoError(t, err)
	assert.Equal(t, "10:00 AM", booking.TimeSlot)
}

func TestBookingSubmitPastDate(t *testing.T) {
	svc := newTestBookingService(&bookingRepoStub{}, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-09",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastDate.Code, appErrors.FromError(err).Code)
}

func TestBookingSubmitTodayAllowed(t *testing.T) {
	repo := &bookingRepoStub{}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-10",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func slotHolder(department string, status models.BookingStatus) models.Booking {
	return models.Booking{
		ID:         "booking-existing",
		Department: department,
		Resource:   "Library",
		Date:       "2025-03-15",
		TimeSlot:   "10:00 AM",
		Status:     status,
	}
}

func TestBookingSubmitConflict(t *testing.T) {
	repo := &bookingRepoStub{
		slotItems: []models.Booking{slotHolder("Arts", models.BookingApproved)},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.Error(t, err)
	fromErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, fromErr.Code)
	assert.Contains(t, fromErr.Message, "Arts")
	assert.Contains(t, fromErr.Message, "approved")
	assert.Empty(t, repo.created)
}

func TestBookingSubmitConflictWithPastLikeDepartment(t *testing.T) {
	// The conflict reason embeds the blocking department's name; a department
	// that happens to contain "past" must still classify as a slot conflict.
	repo := &bookingRepoStub{
		slotItems: []models.Booking{slotHolder("pastoral care", models.BookingPending)},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.Error(t, err)
	fromErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, fromErr.Code)
	assert.Equal(t, appErrors.ErrSlotConflict.Status, fromErr.Status)
	assert.Contains(t, fromErr.Message, "pastoral care")
	assert.Empty(t, repo.created)
}

func TestBookingSubmitRejectedSlotIsFree(t *testing.T) {
	repo := &bookingRepoStub{
		slotItems: []models.Booking{slotHolder("Arts", models.BookingRejected)},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
}

func TestBookingSubmitUnknownResource(t *testing.T) {
	svc := newTestBookingService(&bookingRepoStub{}, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Rooftop",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingSubmitNotifierFailureIsSwallowed(t *testing.T) {
	repo := &bookingRepoStub{}
	notifier := &notifierStub{err: assert.AnError}
	svc := newTestBookingService(repo, notifier, &feedStub{}, &auditStub{})

	booking, err := svc.Submit(context.Background(), dto.SubmitBookingRequest{
		Activity: "Physics Club",
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	}, teacherClaims())

	require.NoError(t, err)
	assert.NotNil(t, booking)
}

func TestBookingDecideApprove(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", TeacherID: "teacher-1", Status: models.BookingPending},
		},
	}
	notifier := &notifierStub{}
	feed := &feedStub{}
	svc := newTestBookingService(repo, notifier, feed, &auditStub{})

	booking, err := svc.Decide(context.Background(), "booking-1", dto.DecideBookingRequest{
		Outcome: "APPROVED",
		Reason:  "room is free",
	}, adminClaims())

	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, booking.Status)
	require.NotNil(t, booking.ReviewedBy)
	assert.Equal(t, "admin-1", *booking.ReviewedBy)
	require.Len(t, repo.decisions, 1)
	require.Len(t, feed.events, 1)
	assert.Equal(t, repository.BookingEventDecided, feed.events[0].Type)
	assert.Equal(t, []string{"booking-1"}, notifier.decided)
}

func TestBookingDecideAlreadyDecided(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", Status: models.BookingApproved},
		},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Decide(context.Background(), "booking-1", dto.DecideBookingRequest{Outcome: "REJECTED"}, adminClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.decisions)
}

func TestBookingDecideNotFound(t *testing.T) {
	svc := newTestBookingService(&bookingRepoStub{}, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Decide(context.Background(), "missing", dto.DecideBookingRequest{Outcome: "APPROVED"}, adminClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBookingDecideInvalidOutcome(t *testing.T) {
	svc := newTestBookingService(&bookingRepoStub{}, &notifierStub{}, &feedStub{}, &auditStub{})

	_, err := svc.Decide(context.Background(), "booking-1", dto.DecideBookingRequest{Outcome: "PENDING"}, adminClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBookingForceDecideRewritesDecidedBooking(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", Status: models.BookingApproved},
		},
	}
	audit := &auditStub{}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, audit)

	booking, err := svc.ForceDecide(context.Background(), "booking-1", dto.DecideBookingRequest{
		Outcome: "REJECTED",
		Reason:  "double-booked by mistake",
	}, adminClaims())

	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, booking.Status)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionForceDecide, audit.logs[0].Action)
	assert.Contains(t, string(audit.logs[0].OldValues), "APPROVED")
	assert.Contains(t, string(audit.logs[0].NewValues), "REJECTED")
}

func TestBookingWithdraw(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", TeacherID: "teacher-1", Status: models.BookingPending},
		},
	}
	feed := &feedStub{}
	svc := newTestBookingService(repo, &notifierStub{}, feed, &auditStub{})

	require.NoError(t, svc.Withdraw(context.Background(), "booking-1", teacherClaims()))
	assert.Equal(t, []string{"booking-1"}, repo.deleted)
	require.Len(t, feed.events, 1)
	assert.Equal(t, repository.BookingEventWithdrawn, feed.events[0].Type)
}

func TestBookingWithdrawNotOwner(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", TeacherID: "teacher-2", Status: models.BookingPending},
		},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	err := svc.Withdraw(context.Background(), "booking-1", teacherClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestBookingWithdrawDecided(t *testing.T) {
	repo := &bookingRepoStub{
		byID: map[string]*models.Booking{
			"booking-1": {ID: "booking-1", TeacherID: "teacher-1", Status: models.BookingApproved},
		},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	err := svc.Withdraw(context.Background(), "booking-1", teacherClaims())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestBookingListScopesTeacherToOwnBookings(t *testing.T) {
	repo := &bookingRepoStub{}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	_, _, err := svc.List(context.Background(), ListBookingsRequest{}, teacherClaims())
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", repo.lastFilter.TeacherID)

	_, _, err = svc.List(context.Background(), ListBookingsRequest{}, adminClaims())
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.TeacherID)
}

func TestBookingCheckAvailability(t *testing.T) {
	repo := &bookingRepoStub{
		slotItems: []models.Booking{slotHolder("Arts", models.BookingRejected)},
	}
	svc := newTestBookingService(repo, &notifierStub{}, &feedStub{}, &auditStub{})

	availability, err := svc.CheckAvailability(context.Background(), dto.AvailabilityRequest{
		Resource: "Library",
		Date:     "2025-03-15",
		Time:     "10:00 AM",
	})

	require.NoError(t, err)
	assert.True(t, availability.OK)
	assert.NotEmpty(t, availability.Note)
}
