package models

import "time"

// ReportPeriod echoes the requested date range.
type ReportPeriod struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// ReportFilter bounds report queries by planned start.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
}

// EventHoursRow is the projection aggregated by the hours summary.
type EventHoursRow struct {
	Status        EventStatus `db:"status"`
	PlannedHours  int         `db:"planned_hours"`
	BillableHours int         `db:"billable_hours"`
}

// EventCounts tallies events by status.
type EventCounts struct {
	Total     int `json:"total"`
	Planned   int `json:"planned"`
	Completed int `json:"completed"`
	Canceled  int `json:"canceled"`
}

// HoursTotals sums hours across a period.
type HoursTotals struct {
	Planned  int `json:"planned"`
	Factual  int `json:"factual"`
	Billable int `json:"billable"`
}

// HoursSummary is the period hours report.
type HoursSummary struct {
	Period         ReportPeriod `json:"period"`
	EventCounts    EventCounts  `json:"eventCounts"`
	Hours          HoursTotals  `json:"hours"`
	AttendanceRate float64      `json:"attendanceRate"`
}

// CancelReasonStat counts canceled events per reason.
type CancelReasonStat struct {
	ReasonID   *string `db:"cancel_reason_id" json:"reasonId"`
	ReasonName string  `db:"reason_name" json:"reasonName"`
	Count      int     `db:"count" json:"count"`
}

// TeacherScheduleItem is an event row in a teacher's calendar.
type TeacherScheduleItem struct {
	ID             string           `db:"id" json:"id"`
	Title          string           `db:"title" json:"title"`
	ActivityType   ActivityType     `db:"activity_type" json:"activityType"`
	PlannedStartAt time.Time        `db:"planned_start_at" json:"plannedStartAt"`
	PlannedEndAt   time.Time        `db:"planned_end_at" json:"plannedEndAt"`
	Status         EventStatus      `db:"status" json:"status"`
	Category       ScheduleCategory `db:"-" json:"category"`
}

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid returns true when the format is supported.
func (f ReportFormat) Valid() bool {
	return f == ReportFormatCSV || f == ReportFormatPDF
}
