package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	"github.com/noah-isme/educenter-crm-api/pkg/database"
)

// lessonAdmissionLockKey serialises every read-validate-write sequence that
// can change lesson slot occupancy.
const lessonAdmissionLockKey int64 = 0x6c6573736f6e

// ErrStaleVersion is returned when an optimistic update finds a newer row.
var ErrStaleVersion = errors.New("event version is stale")

// ErrUnknownUser is returned when a write references a user that does not exist.
var ErrUnknownUser = errors.New("referenced user does not exist")

const pqForeignKeyViolation = "23503"

const eventColumns = `e.id, e.title, e.subject, e.activity_type, e.planned_start_at, e.planned_end_at,
	e.fact_start_at, e.fact_end_at, e.planned_hours, e.billable_hours, e.status, e.cancel_reason_id,
	e.cancel_comment, e.completion_comment, e.is_paid, e.location, e.notes, e.created_by_user_id,
	e.version, e.created_at, e.updated_at`

// EventRepository persists events and their participants.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts the event and its participants in one transaction. When
// admit is non-nil the admission lock is taken first and admit receives the
// persisted lesson intervals overlapping the event; an admit error aborts
// the insert.
func (r *EventRepository) Create(ctx context.Context, event *models.Event, admit func([]models.EventInterval) error) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	if event.Version == 0 {
		event.Version = 1
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if admit != nil {
			if err := r.admit(ctx, tx, event, admit); err != nil {
				return err
			}
		}

		const query = `INSERT INTO events (id, title, subject, activity_type, planned_start_at, planned_end_at,
			fact_start_at, fact_end_at, planned_hours, billable_hours, status, cancel_reason_id, cancel_comment,
			completion_comment, is_paid, location, notes, created_by_user_id, version, created_at, updated_at)
			VALUES (:id, :title, :subject, :activity_type, :planned_start_at, :planned_end_at,
			:fact_start_at, :fact_end_at, :planned_hours, :billable_hours, :status, :cancel_reason_id, :cancel_comment,
			:completion_comment, :is_paid, :location, :notes, :created_by_user_id, :version, :created_at, :updated_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		return r.insertParticipants(ctx, tx, event)
	})
	return userReferenceError(err)
}

// Update writes non-status fields guarded by the optimistic version. When
// replaceParticipants is set the participant list is rewritten. admit has
// the same meaning as in Create, excluding the event itself.
func (r *EventRepository) Update(ctx context.Context, event *models.Event, replaceParticipants bool, admit func([]models.EventInterval) error) error {
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if admit != nil {
			if err := r.admit(ctx, tx, event, admit); err != nil {
				return err
			}
		}

		const query = `UPDATE events SET title = :title, subject = :subject, activity_type = :activity_type,
			planned_start_at = :planned_start_at, planned_end_at = :planned_end_at, planned_hours = :planned_hours,
			billable_hours = :billable_hours, location = :location, notes = :notes, version = version + 1, updated_at = NOW()
			WHERE id = :id AND version = :version`
		if err := r.execVersioned(ctx, tx, query, event); err != nil {
			return err
		}
		if !replaceParticipants {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_participants WHERE event_id = $1`, event.ID); err != nil {
			return fmt.Errorf("clear event participants: %w", err)
		}
		return r.insertParticipants(ctx, tx, event)
	})
	return userReferenceError(err)
}

// UpdateStatus persists the lifecycle fields guarded by the optimistic version.
func (r *EventRepository) UpdateStatus(ctx context.Context, event *models.Event) error {
	const query = `UPDATE events SET status = :status, billable_hours = :billable_hours,
		fact_start_at = :fact_start_at, fact_end_at = :fact_end_at, completion_comment = :completion_comment,
		cancel_reason_id = :cancel_reason_id, cancel_comment = :cancel_comment,
		version = version + 1, updated_at = NOW()
		WHERE id = :id AND version = :version`
	return r.execVersioned(ctx, r.db, query, event)
}

// FindByID loads an event with participants and cancel reason. It returns
// sql.ErrNoRows when the event does not exist.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events e WHERE e.id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}

	participants, err := r.participantsFor(ctx, []string{event.ID})
	if err != nil {
		return nil, err
	}
	event.Participants = participants[event.ID]

	if event.CancelReasonID != nil {
		var reason models.CancelReason
		err := r.db.GetContext(ctx, &reason, `SELECT id, code, name, sort_order, is_active FROM cancel_reasons WHERE id = $1`, *event.CancelReasonID)
		switch {
		case err == nil:
			event.CancelReason = &reason
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("load cancel reason: %w", err)
		}
	}
	return &event, nil
}

// List returns events ordered by planned start with their participants.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var conditions []string
	var args []interface{}

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("e.planned_start_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("e.planned_start_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}

	base := "FROM events e WHERE 1=1"
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY e.planned_start_at ASC, e.id ASC LIMIT %d OFFSET %d", eventColumns, base, size, (page-1)*size)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	if len(events) == 0 {
		return events, total, nil
	}
	ids := make([]string, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	participants, err := r.participantsFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range events {
		events[i].Participants = participants[events[i].ID]
	}
	return events, total, nil
}

// ListOverlappingLessons returns intervals of slot-occupying lessons that
// overlap [start, end), skipping excludeID when set.
func (r *EventRepository) ListOverlappingLessons(ctx context.Context, exec sqlx.QueryerContext, start, end time.Time, excludeID string) ([]models.EventInterval, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT planned_start_at, planned_end_at, activity_type FROM events
		WHERE status IN ('PLANNED', 'COMPLETED')
		AND activity_type IN ('INDIVIDUAL_LESSON', 'GROUP_LESSON')
		AND planned_start_at < $2 AND planned_end_at > $1`
	args := []interface{}{start, end}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	query += " ORDER BY planned_start_at"

	var intervals []models.EventInterval
	if err := sqlx.SelectContext(ctx, exec, &intervals, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping lessons: %w", err)
	}
	return intervals, nil
}

func (r *EventRepository) admit(ctx context.Context, tx *sqlx.Tx, event *models.Event, admit func([]models.EventInterval) error) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lessonAdmissionLockKey); err != nil {
		return fmt.Errorf("acquire admission lock: %w", err)
	}
	existing, err := r.ListOverlappingLessons(ctx, tx, event.PlannedStartAt, event.PlannedEndAt, event.ID)
	if err != nil {
		return err
	}
	return admit(existing)
}

func (r *EventRepository) execVersioned(ctx context.Context, exec sqlx.ExtContext, query string, event *models.Event) error {
	res, err := sqlx.NamedExecContext(ctx, exec, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	event.Version++
	return nil
}

func userReferenceError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("%w: %s", ErrUnknownUser, pqErr.Constraint)
	}
	return err
}

func (r *EventRepository) insertParticipants(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	const query = `INSERT INTO event_participants (id, event_id, user_id, participant_role, position)
		VALUES (:id, :event_id, :user_id, :participant_role, :position)`
	for i := range event.Participants {
		p := &event.Participants[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.EventID = event.ID
		p.Position = i
		if _, err := sqlx.NamedExecContext(ctx, exec, query, p); err != nil {
			return fmt.Errorf("create event participant: %w", err)
		}
	}
	return nil
}

func (r *EventRepository) participantsFor(ctx context.Context, eventIDs []string) (map[string][]models.EventParticipant, error) {
	const query = `SELECT p.id, p.event_id, p.user_id, p.participant_role, p.position, COALESCE(u.full_name, '') AS full_name
		FROM event_participants p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.event_id = ANY($1::uuid[])
		ORDER BY p.event_id, p.position`
	var rows []models.EventParticipant
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	grouped := make(map[string][]models.EventParticipant, len(eventIDs))
	for _, p := range rows {
		grouped[p.EventID] = append(grouped[p.EventID], p)
	}
	return grouped, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
