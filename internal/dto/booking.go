package dto

import (
	"strings"
	"time"
)

// SubmitBookingRequest is the teacher-side submission payload. The requester
// identity fields come from the access token, not the body. The admin screen
// historically sent a start/end pair instead of a slot label; Normalize folds
// both shapes into the single canonical Time slot.
type SubmitBookingRequest struct {
	Activity  string `json:"activity" validate:"required"`
	Resource  string `json:"resource" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes"`
}

// Normalize computes the canonical slot label when only a start/end pair was
// provided, so the conflict detector and projector reason about one shape.
func (r *SubmitBookingRequest) Normalize() {
	r.Activity = strings.TrimSpace(r.Activity)
	r.Resource = strings.TrimSpace(r.Resource)
	r.Date = strings.TrimSpace(r.Date)
	r.Time = strings.TrimSpace(r.Time)
	if r.Time != "" || r.StartTime == "" {
		return
	}
	if label, ok := slotLabel(r.StartTime); ok {
		r.Time = label
	}
}

// slotLabel converts a clock string in either 24-hour or 12-hour form into
// the slot label format ("08:00 AM").
func slotLabel(clock string) (string, bool) {
	clock = strings.TrimSpace(clock)
	for _, layout := range []string{"15:04", "03:04 PM", "3:04 PM"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return t.Format("03:04 PM"), true
		}
	}
	return "", false
}

// DecideBookingRequest is the admin review payload.
type DecideBookingRequest struct {
	Outcome string `json:"outcome" validate:"required,decision"`
	Reason  string `json:"reason"`
}

// AvailabilityRequest asks whether a slot is free before submitting.
type AvailabilityRequest struct {
	Resource string `json:"resource" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Time     string `json:"time" validate:"required"`
}
