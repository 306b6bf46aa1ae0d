package scheduling

import (
	"time"

	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// DefaultPlannedHours derives planned hours from an interval: whole minutes
// rounded up to hours, never less than one.
func DefaultPlannedHours(start, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = 0
	}
	minutes := int(diff / time.Minute)
	hours := (minutes + 59) / 60
	if hours < 1 {
		return 1
	}
	return hours
}

// BillableHours is the single source of billable hours for any status.
func BillableHours(status models.EventStatus, plannedHours int) int {
	if status != models.EventStatusCompleted {
		return 0
	}
	if plannedHours < 0 {
		return 0
	}
	return plannedHours
}
