package models

// GuardianContact is a parent linked to a student who opted into lesson
// notifications and has a reachable chat address.
type GuardianContact struct {
	ParentID        string `db:"parent_id" json:"parentId"`
	ParentName      string `db:"parent_name" json:"parentName"`
	ChatID          string `db:"telegram_chat_id" json:"-"`
	StudentUserID   string `db:"student_user_id" json:"studentUserId"`
	StudentFullName string `db:"student_full_name" json:"studentFullName"`
}

// DeliveryOutcome records the result of one guardian dispatch.
type DeliveryOutcome struct {
	ParentID      string `json:"parentId"`
	StudentUserID string `json:"studentUserId"`
	Delivered     bool   `json:"delivered"`
	Error         string `json:"error,omitempty"`
}

// NotificationReport summarises a guardian fan-out for one event.
type NotificationReport struct {
	EventID   string            `json:"eventId"`
	Skipped   string            `json:"skipped,omitempty"`
	Outcomes  []DeliveryOutcome `json:"outcomes"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
}
