package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-facility-api/internal/models"
)

func TestNotificationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	role := models.RoleAdmin
	bookingID := "booking-1"
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), nil, role, models.NotificationBookingSubmitted, "New booking request", "body", bookingID, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	notification := &models.Notification{
		RecipientRole: &role,
		Kind:          models.NotificationBookingSubmitted,
		Title:         "New booking request",
		Body:          "body",
		BookingID:     &bookingID,
	}
	require.NoError(t, repo.Create(context.Background(), notification))
	assert.NotEmpty(t, notification.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListForRecipient(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows([]string{"id", "recipient_id", "recipient_role", "kind", "title", "body", "booking_id", "read", "created_at"}).
		AddRow("n-1", "teacher-1", nil, "BOOKING_DECIDED", "Booking approved", "body", nil, false, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM notifications WHERE \\(recipient_id = \\$1 OR recipient_role = \\$2\\) AND read = FALSE").
		WithArgs("teacher-1", models.RoleTeacher).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM notifications").
		WithArgs("teacher-1", models.RoleTeacher).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notifications, total, err := repo.ListForRecipient(context.Background(), models.NotificationFilter{
		RecipientID: "teacher-1",
		Role:        models.RoleTeacher,
		UnreadOnly:  true,
	})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadGuard(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET read = TRUE").
		WithArgs("n-1", "teacher-1", models.RoleTeacher).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.MarkRead(context.Background(), "n-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
