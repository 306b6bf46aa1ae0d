package scheduling

import (
	"sort"
	"time"

	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// Slot ceilings for lesson-type events.
const (
	MaxSimultaneousLessons = 2
	MaxGroupLessons        = 1
)

// Conflict messages surfaced verbatim to callers.
const (
	MsgTooManyLessons      = "too many simultaneous lessons"
	MsgTooManyGroups       = "more than one group lesson in the same slot"
	MsgGroupPlusIndividual = "group lesson combined with individual lessons exceeds slot capacity"
)

type boundary struct {
	at       time.Time
	delta    int
	activity models.ActivityType
}

// ValidateLessonOccupancy decides whether candidate may join the existing
// intervals. It returns nil when the candidate is admitted. Non-lesson
// candidates are always admitted and non-lesson existing intervals are
// ignored. Callers pass only intervals whose status occupies a slot.
func ValidateLessonOccupancy(existing []models.EventInterval, candidate models.EventInterval) *models.SlotConflictError {
	if !candidate.ActivityType.IsLesson() {
		return nil
	}

	points := make([]boundary, 0, 2*len(existing)+2)
	add := func(iv models.EventInterval) {
		points = append(points,
			boundary{at: iv.Start, delta: 1, activity: iv.ActivityType},
			boundary{at: iv.End, delta: -1, activity: iv.ActivityType},
		)
	}
	for _, iv := range existing {
		if iv.ActivityType.IsLesson() {
			add(iv)
		}
	}
	add(candidate)

	// Endings sort before starts at the same instant so back-to-back lessons
	// never count as concurrent.
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].at.Equal(points[j].at) {
			return points[i].delta < points[j].delta
		}
		return points[i].at.Before(points[j].at)
	})

	individual, group := 0, 0
	for _, p := range points {
		switch p.activity {
		case models.ActivityIndividualLesson:
			individual += p.delta
		case models.ActivityGroupLesson:
			group += p.delta
		}

		if conflict := checkCeilings(individual, group, p.at); conflict != nil {
			return conflict
		}
	}
	return nil
}

// checkCeilings reports the first violated ceiling. A group lesson next to two
// or more individual lessons is reported as such rather than as a plain
// capacity overflow, which it always also is.
func checkCeilings(individual, group int, at time.Time) *models.SlotConflictError {
	switch {
	case group >= 1 && individual >= 2:
		return &models.SlotConflictError{Rule: models.SlotRuleGroupPlusIndividual, Message: MsgGroupPlusIndividual, At: at}
	case individual+group > MaxSimultaneousLessons:
		return &models.SlotConflictError{Rule: models.SlotRuleTooManyLessons, Message: MsgTooManyLessons, At: at}
	case group > MaxGroupLessons:
		return &models.SlotConflictError{Rule: models.SlotRuleTooManyGroups, Message: MsgTooManyGroups, At: at}
	default:
		return nil
	}
}
