package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-facility-api/internal/models"
	"github.com/noah-isme/sma-facility-api/pkg/config"
	appErrors "github.com/noah-isme/sma-facility-api/pkg/errors"
)

type notificationRepoStub struct {
	mu        sync.Mutex
	created   []models.Notification
	createErr error
	items     []models.Notification
	total     int
	listErr   error
	affected  int64
	markErr   error
	markedIDs []string
}

func (s *notificationRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *notification)
	return nil
}

func (s *notificationRepoStub) ListForRecipient(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	return s.items, s.total, s.listErr
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, recipientID string, role models.UserRole) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return 0, s.markErr
	}
	s.markedIDs = append(s.markedIDs, id)
	return s.affected, nil
}

func (s *notificationRepoStub) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func notificationTestConfig() config.NotificationsConfig {
	return config.NotificationsConfig{Workers: 1, BufferSize: 8, MaxRetries: 1, RetryDelay: 10 * time.Millisecond}
}

func TestNotificationBookingSubmittedDelivers(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, notificationTestConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	booking := &models.Booking{
		ID:          "booking-1",
		TeacherID:   "teacher-1",
		TeacherName: "Ms. Sari",
		Department:  "Science",
		Activity:    "Physics Club",
		Resource:    "Library",
		Date:        "2025-03-15",
		TimeSlot:    "10:00 AM",
		Status:      models.BookingPending,
	}
	require.NoError(t, svc.BookingSubmitted(ctx, booking))

	require.Eventually(t, func() bool { return repo.createdCount() == 1 }, time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	created := repo.created[0]
	assert.Equal(t, models.NotificationBookingSubmitted, created.Kind)
	require.NotNil(t, created.RecipientRole)
	assert.Equal(t, models.RoleAdmin, *created.RecipientRole)
	assert.Nil(t, created.RecipientID)
	assert.Contains(t, created.Body, "Library")
	assert.Contains(t, created.Body, "Ms. Sari")
}

func TestNotificationBookingDecidedDelivers(t *testing.T) {
	repo := &notificationRepoStub{}
	svc := NewNotificationService(repo, notificationTestConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	reason := "slot needed for exams"
	booking := &models.Booking{
		ID:           "booking-1",
		TeacherID:    "teacher-1",
		Resource:     "Library",
		Date:         "2025-03-15",
		TimeSlot:     "10:00 AM",
		Status:       models.BookingRejected,
		ReviewReason: &reason,
	}
	require.NoError(t, svc.BookingDecided(ctx, booking))

	require.Eventually(t, func() bool { return repo.createdCount() == 1 }, time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	created := repo.created[0]
	assert.Equal(t, models.NotificationBookingDecided, created.Kind)
	require.NotNil(t, created.RecipientID)
	assert.Equal(t, "teacher-1", *created.RecipientID)
	assert.Contains(t, created.Body, "rejected")
	assert.Contains(t, created.Body, reason)
}

func TestNotificationEnqueueBeforeStart(t *testing.T) {
	svc := NewNotificationService(&notificationRepoStub{}, notificationTestConfig(), nil)

	err := svc.BookingSubmitted(context.Background(), &models.Booking{ID: "booking-1"})
	require.Error(t, err)
}

func TestNotificationList(t *testing.T) {
	repo := &notificationRepoStub{
		items: []models.Notification{{ID: "n-1"}},
		total: 1,
	}
	svc := NewNotificationService(repo, notificationTestConfig(), nil)

	items, pagination, err := svc.List(context.Background(), teacherClaims(), false, 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := &notificationRepoStub{affected: 1}
	svc := NewNotificationService(repo, notificationTestConfig(), nil)

	require.NoError(t, svc.MarkRead(context.Background(), "n-1", teacherClaims()))
	assert.Equal(t, []string{"n-1"}, repo.markedIDs)
}

func TestNotificationMarkReadNotOwned(t *testing.T) {
	repo := &notificationRepoStub{affected: 0}
	svc := NewNotificationService(repo, notificationTestConfig(), nil)

	err := svc.MarkRead(context.Background(), "n-1", teacherClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
