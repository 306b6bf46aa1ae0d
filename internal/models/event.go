package models

import "time"

// ActivityType classifies a scheduled event.
type ActivityType string

const (
	ActivityIndividualLesson     ActivityType = "INDIVIDUAL_LESSON"
	ActivityGroupLesson          ActivityType = "GROUP_LESSON"
	ActivityLeisureGroup         ActivityType = "LEISURE_GROUP"
	ActivityOffsiteEvent         ActivityType = "OFFSITE_EVENT"
	ActivityPedagogicalConsilium ActivityType = "PEDAGOGICAL_CONSILIUM"
	ActivityStaffMeeting         ActivityType = "TEACHERS_GENERAL_MEETING"
	ActivityPsychologistSession  ActivityType = "PSYCHOLOGIST_SESSION"
)

// Valid returns true when the activity type is a supported value.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityIndividualLesson, ActivityGroupLesson, ActivityLeisureGroup,
		ActivityOffsiteEvent, ActivityPedagogicalConsilium, ActivityStaffMeeting, ActivityPsychologistSession:
		return true
	default:
		return false
	}
}

// IsLesson reports whether the type is subject to slot occupancy limits.
func (a ActivityType) IsLesson() bool {
	return a == ActivityIndividualLesson || a == ActivityGroupLesson
}

// IsAdministrative reports whether the type must not carry student participants.
func (a ActivityType) IsAdministrative() bool {
	switch a {
	case ActivityOffsiteEvent, ActivityPedagogicalConsilium, ActivityStaffMeeting, ActivityPsychologistSession:
		return true
	default:
		return false
	}
}

// ScheduleCategory is the calendar display bucket of an activity type.
type ScheduleCategory string

const (
	CategoryIndividual     ScheduleCategory = "individual"
	CategoryGroup          ScheduleCategory = "group"
	CategoryAdministrative ScheduleCategory = "administrative"
)

// Category maps the activity type to its display bucket. Leisure groups are
// shown with group lessons even though they do not occupy lesson slots.
func (a ActivityType) Category() ScheduleCategory {
	switch a {
	case ActivityIndividualLesson:
		return CategoryIndividual
	case ActivityGroupLesson, ActivityLeisureGroup:
		return CategoryGroup
	default:
		return CategoryAdministrative
	}
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusPlanned   EventStatus = "PLANNED"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCanceled  EventStatus = "CANCELED"
)

// Valid returns true when the status is a supported value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPlanned, EventStatusCompleted, EventStatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further status change is modeled.
func (s EventStatus) Terminal() bool {
	return s == EventStatusCompleted || s == EventStatusCanceled
}

// OccupiesSlot reports whether a lesson in this status counts against slot capacity.
func (s EventStatus) OccupiesSlot() bool {
	return s == EventStatusPlanned || s == EventStatusCompleted
}

// ParticipantRole describes how a person takes part in an event.
type ParticipantRole string

const (
	ParticipantStudent      ParticipantRole = "STUDENT"
	ParticipantTeacher      ParticipantRole = "TEACHER"
	ParticipantCurator      ParticipantRole = "CURATOR"
	ParticipantPsychologist ParticipantRole = "PSYCHOLOGIST"
	ParticipantParent       ParticipantRole = "PARENT"
)

// Valid returns true when the role is a supported value.
func (r ParticipantRole) Valid() bool {
	switch r {
	case ParticipantStudent, ParticipantTeacher, ParticipantCurator, ParticipantPsychologist, ParticipantParent:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role is listed as responsible staff in notifications.
func (r ParticipantRole) IsStaff() bool {
	return r == ParticipantTeacher || r == ParticipantCurator || r == ParticipantPsychologist
}

// Event is the schedulable unit.
type Event struct {
	ID                string             `db:"id" json:"id"`
	Title             string             `db:"title" json:"title"`
	Subject           *string            `db:"subject" json:"subject,omitempty"`
	ActivityType      ActivityType       `db:"activity_type" json:"activityType"`
	PlannedStartAt    time.Time          `db:"planned_start_at" json:"plannedStartAt"`
	PlannedEndAt      time.Time          `db:"planned_end_at" json:"plannedEndAt"`
	FactStartAt       *time.Time         `db:"fact_start_at" json:"factStartAt"`
	FactEndAt         *time.Time         `db:"fact_end_at" json:"factEndAt"`
	PlannedHours      int                `db:"planned_hours" json:"plannedHours"`
	BillableHours     int                `db:"billable_hours" json:"billableHours"`
	Status            EventStatus        `db:"status" json:"status"`
	CancelReasonID    *string            `db:"cancel_reason_id" json:"cancelReasonId"`
	CancelComment     *string            `db:"cancel_comment" json:"cancelComment"`
	CompletionComment *string            `db:"completion_comment" json:"completionComment"`
	IsPaid            bool               `db:"is_paid" json:"isPaid"`
	Location          *string            `db:"location" json:"location,omitempty"`
	Notes             *string            `db:"notes" json:"notes,omitempty"`
	CreatedByUserID   string             `db:"created_by_user_id" json:"createdByUserId"`
	Version           int                `db:"version" json:"version"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updatedAt"`
	Participants      []EventParticipant `db:"-" json:"participants"`
	CancelReason      *CancelReason      `db:"-" json:"cancelReason,omitempty"`
}

// Interval returns the planned interval tagged with the activity type.
func (e Event) Interval() EventInterval {
	return EventInterval{Start: e.PlannedStartAt, End: e.PlannedEndAt, ActivityType: e.ActivityType}
}

// StudentIDs returns user ids of student participants in order.
func (e Event) StudentIDs() []string {
	var ids []string
	for _, p := range e.Participants {
		if p.Role == ParticipantStudent {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// HasStudents reports whether any participant has the student role.
func (e Event) HasStudents() bool {
	return len(e.StudentIDs()) > 0
}

// EventParticipant links a person to an event in a role.
type EventParticipant struct {
	ID       string          `db:"id" json:"id"`
	EventID  string          `db:"event_id" json:"eventId"`
	UserID   string          `db:"user_id" json:"userId"`
	Role     ParticipantRole `db:"participant_role" json:"participantRole"`
	Position int             `db:"position" json:"-"`
	FullName string          `db:"full_name" json:"fullName,omitempty"`
}

// EventInterval is a half-open interval [Start, End) tagged with an activity type.
type EventInterval struct {
	Start        time.Time    `db:"planned_start_at" json:"start"`
	End          time.Time    `db:"planned_end_at" json:"end"`
	ActivityType ActivityType `db:"activity_type" json:"activityType"`
}

// Overlaps reports whether two half-open intervals share any instant.
func (i EventInterval) Overlaps(other EventInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// EventFilter narrows event listings.
type EventFilter struct {
	From     *time.Time
	To       *time.Time
	Status   *EventStatus
	Page     int
	PageSize int
}

// CancelReason is a catalog entry explaining why an event was canceled.
type CancelReason struct {
	ID        string `db:"id" json:"id"`
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
	SortOrder int    `db:"sort_order" json:"sortOrder"`
	IsActive  bool   `db:"is_active" json:"isActive"`
}

// SlotConflictRule names the occupancy ceiling a candidate lesson violated.
type SlotConflictRule string

const (
	SlotRuleTooManyLessons      SlotConflictRule = "TOO_MANY_SIMULTANEOUS"
	SlotRuleTooManyGroups       SlotConflictRule = "TOO_MANY_GROUP"
	SlotRuleGroupPlusIndividual SlotConflictRule = "GROUP_PLUS_INDIVIDUAL_OVERFLOW"
)

// SlotConflictError is returned when admitting a lesson would exceed slot capacity.
type SlotConflictError struct {
	Rule    SlotConflictRule `json:"rule"`
	Message string           `json:"message"`
	At      time.Time        `json:"at"`
}

// Error implements the error interface for slot conflicts.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
