package dto

import "github.com/noah-isme/sma-facility-api/internal/schedule"

// MonthGridResponse is the projected month calendar for one resource or for
// all resources combined.
type MonthGridResponse struct {
	Year     int                `json:"year"`
	Month    int                `json:"month"`
	Resource string             `json:"resource,omitempty"`
	Cells    []schedule.DayCell `json:"cells"`
}
