package scheduling

import (
	"time"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

// NewInterval builds a half-open interval, rejecting empty or inverted bounds.
func NewInterval(start, end time.Time, activity models.ActivityType) (models.EventInterval, error) {
	if !end.After(start) {
		return models.EventInterval{}, appErrors.Clone(appErrors.ErrInvalidInterval, "planned end must be later than planned start")
	}
	if !activity.Valid() {
		return models.EventInterval{}, appErrors.Clone(appErrors.ErrValidation, "unsupported activity type")
	}
	return models.EventInterval{Start: start, End: end, ActivityType: activity}, nil
}

// OccupyingLessons keeps the lesson intervals of events whose status occupies a slot.
func OccupyingLessons(events []models.Event, excludeID string) []models.EventInterval {
	intervals := make([]models.EventInterval, 0, len(events))
	for _, e := range events {
		if e.ID == excludeID || !e.Status.OccupiesSlot() || !e.ActivityType.IsLesson() {
			continue
		}
		intervals = append(intervals, e.Interval())
	}
	return intervals
}
