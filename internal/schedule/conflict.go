package schedule

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-facility-api/internal/models"
)

// Candidate is the slot a submission wants to claim.
type Candidate struct {
	Resource string
	Date     CivilDate
	TimeSlot string
}

// AvailabilityCode classifies the outcome of an availability check. Callers
// branch on the code; Reason is display text and may embed free-form input
// such as department names.
type AvailabilityCode string

const (
	SlotAvailable AvailabilityCode = "AVAILABLE"
	SlotPast      AvailabilityCode = "PAST_DATE"
	SlotConflict  AvailabilityCode = "CONFLICT"
)

// Availability is the advisory result of a conflict check. Note carries
// purely informational context and never changes OK.
type Availability struct {
	OK     bool             `json:"ok"`
	Code   AvailabilityCode `json:"code"`
	Reason string           `json:"reason"`
	Note   string           `json:"note,omitempty"`
}

// CheckAvailability decides whether the candidate slot may be submitted.
// The check is advisory: it reads a snapshot of the booking set and nothing
// prevents a concurrent submission from claiming the same slot before the
// write lands. Admin review is the arbiter for such duplicates.
//
// Past-date rejection takes precedence over every other check. Rejected
// bookings never block a slot; they are consulted only to annotate the
// result when a previously denied request held the same triple.
func CheckAvailability(candidate Candidate, existing []models.Booking, today CivilDate) Availability {
	if IsPast(candidate.Date, today) {
		return Availability{OK: false, Code: SlotPast, Reason: "cannot book a past date"}
	}

	dateKey := candidate.Date.String()
	rejectedHeld := false
	for _, b := range existing {
		if b.Resource != candidate.Resource || b.Date != dateKey || b.TimeSlot != candidate.TimeSlot {
			continue
		}
		if b.Status == models.BookingRejected {
			rejectedHeld = true
			continue
		}
		return Availability{
			OK:     false,
			Code:   SlotConflict,
			Reason: fmt.Sprintf("conflict with %s booking, status %s", b.Department, strings.ToLower(string(b.Status))),
		}
	}

	result := Availability{OK: true, Code: SlotAvailable, Reason: "available"}
	if rejectedHeld {
		result.Note = "a previous booking for this slot was rejected; the slot is free again"
	}
	return result
}
