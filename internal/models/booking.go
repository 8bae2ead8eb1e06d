package models

import "time"

// BookingStatus enumerates the approval states of a facility booking.
type BookingStatus string

const (
	BookingPending  BookingStatus = "PENDING"
	BookingApproved BookingStatus = "APPROVED"
	BookingRejected BookingStatus = "REJECTED"
)

// IsActive reports whether the booking still occupies its slot. Rejected
// bookings free the slot for new submissions.
func (s BookingStatus) IsActive() bool {
	return s == BookingPending || s == BookingApproved
}

// Booking represents a facility reservation request. The requester identity
// is captured as a snapshot at submission time, not a live reference.
type Booking struct {
	ID           string        `db:"id" json:"id"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	TeacherEmail string        `db:"teacher_email" json:"teacher_email"`
	TeacherName  string        `db:"teacher_name" json:"teacher_name"`
	Department   string        `db:"department" json:"department"`
	Activity     string        `db:"activity" json:"activity"`
	Resource     string        `db:"resource" json:"resource"`
	Date         string        `db:"date" json:"date"`
	TimeSlot     string        `db:"time_slot" json:"time"`
	Notes        *string       `db:"notes" json:"notes,omitempty"`
	Status       BookingStatus `db:"status" json:"status"`
	ReviewedBy   *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewReason *string       `db:"review_reason" json:"review_reason,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter narrows down bookings for listing.
type BookingFilter struct {
	TeacherID string
	Resource  string
	Status    *BookingStatus
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
}

// BookingDecision is the ephemeral input to a review transition. It is never
// persisted as its own entity.
type BookingDecision struct {
	BookingID  string
	NewStatus  BookingStatus
	ReviewerID string
	Reason     string
}
