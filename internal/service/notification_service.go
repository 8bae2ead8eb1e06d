package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
	"github.com/noah-isme/sma-facility-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string, role models.UserRole) (int64, error)
}

// NotificationService delivers booking lifecycle notifications through an
// in-memory worker queue and serves the resulting inbox. Delivery is
// fire-and-forget: a failed notification is retried by the queue and then
// logged, never surfaced to the booking operation that triggered it.
type NotificationService struct {
	repo   notificationRepository
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue. Call
// Start before enqueueing anything.
func NewNotificationService(repo notificationRepository, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers. Buffered notifications that never reached
// a worker are lost; the count is logged so the gap is visible.
func (s *NotificationService) Stop() {
	if pending := s.queue.Depth(); pending > 0 {
		s.logger.Warn("stopping notification queue with undelivered notifications", zap.Int("pending", pending))
	}
	s.queue.Stop()
}

// BookingSubmitted notifies the admin role that a new request awaits review.
func (s *NotificationService) BookingSubmitted(ctx context.Context, booking *models.Booking) error {
	role := models.RoleAdmin
	return s.enqueue(models.Notification{
		RecipientRole: &role,
		Kind:          models.NotificationBookingSubmitted,
		Title:         "New booking request",
		Body:          fmt.Sprintf("%s (%s) requested %s on %s at %s for %q.", booking.TeacherName, booking.Department, booking.Resource, booking.Date, booking.TimeSlot, booking.Activity),
		BookingID:     &booking.ID,
	})
}

// BookingDecided notifies the requester of the review outcome.
func (s *NotificationService) BookingDecided(ctx context.Context, booking *models.Booking) error {
	body := fmt.Sprintf("Your booking of %s on %s at %s was %s.", booking.Resource, booking.Date, booking.TimeSlot, strings.ToLower(string(booking.Status)))
	if booking.ReviewReason != nil && *booking.ReviewReason != "" {
		body += fmt.Sprintf(" Reason: %s", *booking.ReviewReason)
	}
	recipient := booking.TeacherID
	return s.enqueue(models.Notification{
		RecipientID: &recipient,
		Kind:        models.NotificationBookingDecided,
		Title:       fmt.Sprintf("Booking %s", strings.ToLower(string(booking.Status))),
		Body:        body,
		BookingID:   &booking.ID,
	})
}

// List returns the caller's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, claims *models.JWTClaims, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	filter := models.NotificationFilter{
		RecipientID: claims.UserID,
		Role:        claims.Role,
		UnreadOnly:  unreadOnly,
		Page:        page,
		PageSize:    pageSize,
	}
	notifications, total, err := s.repo.ListForRecipient(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// MarkRead flags one inbox entry as read. The repository guard restricts the
// update to entries addressed to the caller, so a zero row count means the
// notification either does not exist or belongs to someone else.
func (s *NotificationService) MarkRead(ctx context.Context, id string, claims *models.JWTClaims) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	affected, err := s.repo.MarkRead(ctx, id, claims.UserID, claims.Role)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

func (s *NotificationService) enqueue(notification models.Notification) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(notification.Kind),
		Payload: notification,
	})
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &notification)
}
