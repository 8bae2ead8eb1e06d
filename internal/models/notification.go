package models

import "time"

// NotificationKind labels what triggered a notification.
type NotificationKind string

const (
	NotificationBookingSubmitted NotificationKind = "BOOKING_SUBMITTED"
	NotificationBookingDecided   NotificationKind = "BOOKING_DECIDED"
)

// Notification is an inbox entry delivered by the dispatcher. Exactly one of
// RecipientID or RecipientRole is set: role-addressed notifications fan out to
// every active user holding that role at delivery time.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	RecipientID   *string          `db:"recipient_id" json:"recipient_id,omitempty"`
	RecipientRole *UserRole        `db:"recipient_role" json:"recipient_role,omitempty"`
	Kind          NotificationKind `db:"kind" json:"kind"`
	Title         string           `db:"title" json:"title"`
	Body          string           `db:"body" json:"body"`
	BookingID     *string          `db:"booking_id" json:"booking_id,omitempty"`
	Read          bool             `db:"read" json:"read"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows down inbox listings.
type NotificationFilter struct {
	RecipientID string
	Role        UserRole
	UnreadOnly  bool
	Page        int
	PageSize    int
}
