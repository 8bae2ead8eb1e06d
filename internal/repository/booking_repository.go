package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-facility-api/internal/models"
)

// bookingColumns reads the date column back as text so the calendar key never
// round-trips through a timezone-bearing instant.
const bookingColumns = `id, teacher_id, teacher_email, teacher_name, department, activity, resource, date::text AS date, time_slot, notes, status, reviewed_by, reviewed_at, review_reason, created_at, updated_at`

// BookingRepository persists facility bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new booking.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, teacher_id, teacher_email, teacher_name, department, activity, resource, date, time_slot, notes, status, created_at, updated_at)
VALUES (:id, :teacher_id, :teacher_email, :teacher_name, :department, :activity, :resource, :date, :time_slot, :notes, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByID returns a booking by identifier.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBySlot returns every booking recorded for the (resource, date, slot)
// triple, rejected entries included. The conflict detector decides which of
// them actually block.
func (r *BookingRepository) ListBySlot(ctx context.Context, resource, date, timeSlot string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE resource = $1 AND date = $2 AND time_slot = $3 ORDER BY created_at`, bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, resource, date, timeSlot); err != nil {
		return nil, fmt.Errorf("list bookings by slot: %w", err)
	}
	return bookings, nil
}

// ListByDateRange returns bookings whose date falls inside [from, to],
// optionally restricted to one resource. Used by the month projector.
func (r *BookingRepository) ListByDateRange(ctx context.Context, from, to, resource string) ([]models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE date BETWEEN $1 AND $2`, bookingColumns)
	args := []interface{}{from, to}
	if resource != "" {
		query += " AND resource = $3"
		args = append(args, resource)
	}
	query += " ORDER BY date, time_slot"

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings by date range: %w", err)
	}
	return bookings, nil
}

// List returns bookings matching the filter with pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.TeacherID != "" {
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Resource != "" {
		where = append(where, fmt.Sprintf("resource = $%d", len(args)+1))
		args = append(args, filter.Resource)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != "" {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE %s ORDER BY date DESC, time_slot, created_at DESC LIMIT %d OFFSET %d`, bookingColumns, whereClause, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM bookings WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateDecision stamps the review outcome onto a booking.
func (r *BookingRepository) UpdateDecision(ctx context.Context, decision models.BookingDecision, reviewedAt time.Time) error {
	const query = `UPDATE bookings SET status = $1, reviewed_by = $2, reviewed_at = $3, review_reason = $4, updated_at = $5 WHERE id = $6`
	reason := decision.Reason
	var reasonArg interface{}
	if reason != "" {
		reasonArg = reason
	}
	if _, err := r.db.ExecContext(ctx, query, decision.NewStatus, decision.ReviewerID, reviewedAt, reasonArg, reviewedAt, decision.BookingID); err != nil {
		return fmt.Errorf("update booking decision: %w", err)
	}
	return nil
}

// Delete removes a booking outright. Only withdrawals of pending requests
// reach this path.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}
