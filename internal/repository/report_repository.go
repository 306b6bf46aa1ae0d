package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/educenter-crm-api/internal/models"
)

// ReportRepository runs the read models behind hours and schedule reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// HoursRows returns the status and hours of every event planned in the range.
func (r *ReportRepository) HoursRows(ctx context.Context, filter models.ReportFilter) ([]models.EventHoursRow, error) {
	where, args := rangeClause("planned_start_at", filter, nil)
	query := "SELECT status, planned_hours, billable_hours FROM events" + where
	var rows []models.EventHoursRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list event hours: %w", err)
	}
	return rows, nil
}

// CancelReasonStats counts canceled events per reason, most frequent first.
func (r *ReportRepository) CancelReasonStats(ctx context.Context, filter models.ReportFilter) ([]models.CancelReasonStat, error) {
	where, args := rangeClause("e.planned_start_at", filter, []string{"e.status = 'CANCELED'"})
	query := `SELECT e.cancel_reason_id, COALESCE(cr.name, 'Not specified') AS reason_name, COUNT(*) AS count
		FROM events e LEFT JOIN cancel_reasons cr ON cr.id = e.cancel_reason_id` + where + `
		GROUP BY e.cancel_reason_id, cr.name
		ORDER BY count DESC, reason_name ASC`
	var stats []models.CancelReasonStat
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("list cancel reason stats: %w", err)
	}
	return stats, nil
}

// TeacherSchedule returns events where the user takes part as teacher or
// curator within [from, to).
func (r *ReportRepository) TeacherSchedule(ctx context.Context, userID string, from, to time.Time) ([]models.TeacherScheduleItem, error) {
	const query = `SELECT DISTINCT e.id, e.title, e.activity_type, e.planned_start_at, e.planned_end_at, e.status
		FROM events e
		JOIN event_participants p ON p.event_id = e.id
		WHERE p.user_id = $1 AND p.participant_role IN ('TEACHER', 'CURATOR')
		AND e.planned_start_at >= $2 AND e.planned_start_at < $3
		ORDER BY e.planned_start_at ASC`
	var items []models.TeacherScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("list teacher schedule: %w", err)
	}
	return items, nil
}

func rangeClause(column string, filter models.ReportFilter, conditions []string) (string, []interface{}) {
	var args []interface{}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("%s < $%d", column, len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
