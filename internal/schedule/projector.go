package schedule

import (
	"time"

	"github.com/noah-isme/sma-facility-api/internal/models"
)

// DayStatus is the rendering-agnostic occupancy state of one calendar cell.
type DayStatus string

const (
	DayEmpty     DayStatus = "EMPTY"
	DayPast      DayStatus = "PAST"
	DayAvailable DayStatus = "AVAILABLE"
	DayBooked    DayStatus = "BOOKED"
)

// DayCell pairs a grid cell with its projected status. Date is empty for
// placeholder cells outside the month.
type DayCell struct {
	Date   string    `json:"date,omitempty"`
	Status DayStatus `json:"status"`
}

// StatusFor projects the status of a single grid cell from the booking set.
// It is a pure function of its inputs: the same cell always projects the
// same status no matter how many viewers run the projection concurrently.
// Past wins over booked so historical days never render as occupied.
func StatusFor(cell *CivilDate, today CivilDate, bookings []models.Booking) DayStatus {
	if cell == nil {
		return DayEmpty
	}
	if IsPast(*cell, today) {
		return DayPast
	}

	dateKey := cell.String()
	for _, b := range bookings {
		if b.Date == dateKey && b.Status.IsActive() {
			return DayBooked
		}
	}
	return DayAvailable
}

// ProjectMonth renders the full month grid with per-day statuses.
func ProjectMonth(year int, month time.Month, today CivilDate, bookings []models.Booking) []DayCell {
	cells := MonthCells(year, month)
	projected := make([]DayCell, 0, len(cells))
	for _, cell := range cells {
		dc := DayCell{Status: StatusFor(cell, today, bookings)}
		if cell != nil {
			dc.Date = cell.String()
		}
		projected = append(projected, dc)
	}
	return projected
}
