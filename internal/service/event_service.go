package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	"github.com/noah-isme/educenter-crm-api/internal/repository"
	"github.com/noah-isme/educenter-crm-api/internal/scheduling"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/middleware/requestid"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.Event, admit func([]models.EventInterval) error) error
	Update(ctx context.Context, event *models.Event, replaceParticipants bool, admit func([]models.EventInterval) error) error
	UpdateStatus(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
}

type eventCatalog interface {
	SubjectActive(ctx context.Context, name string) (bool, error)
	CancelReasonExists(ctx context.Context, id string) (bool, error)
	FindCancelReason(ctx context.Context, id string) (*models.CancelReason, error)
}

type notificationScheduler interface {
	Schedule(eventID string)
}

// ParticipantInput names a person and the role they take in an event.
type ParticipantInput struct {
	UserID string                 `json:"userId" validate:"required,uuid"`
	Role   models.ParticipantRole `json:"participantRole" validate:"required,oneof=STUDENT TEACHER CURATOR PSYCHOLOGIST PARENT"`
}

// CreateEventRequest represents payload for scheduling an event.
type CreateEventRequest struct {
	Title           string              `json:"title" validate:"required,max=200"`
	Subject         *string             `json:"subject" validate:"omitempty,max=120"`
	ActivityType    models.ActivityType `json:"activityType" validate:"required,oneof=INDIVIDUAL_LESSON GROUP_LESSON LEISURE_GROUP OFFSITE_EVENT PEDAGOGICAL_CONSILIUM TEACHERS_GENERAL_MEETING PSYCHOLOGIST_SESSION"`
	PlannedStartAt  time.Time           `json:"plannedStartAt" validate:"required"`
	PlannedEndAt    time.Time           `json:"plannedEndAt" validate:"required"`
	PlannedHours    *int                `json:"plannedHours" validate:"omitempty,min=1,max=12"`
	Location        *string             `json:"location" validate:"omitempty,max=200"`
	Notes           *string             `json:"notes" validate:"omitempty,max=2000"`
	CreatedByUserID string              `json:"createdByUserId" validate:"omitempty,uuid"`
	Participants    []ParticipantInput  `json:"participants" validate:"omitempty,dive"`
}

// UpdateEventRequest represents a partial edit. A nil Participants keeps the
// current list; an empty one clears it.
type UpdateEventRequest struct {
	Title          *string              `json:"title" validate:"omitempty,min=1,max=200"`
	Subject        *string              `json:"subject" validate:"omitempty,max=120"`
	ActivityType   *models.ActivityType `json:"activityType" validate:"omitempty,oneof=INDIVIDUAL_LESSON GROUP_LESSON LEISURE_GROUP OFFSITE_EVENT PEDAGOGICAL_CONSILIUM TEACHERS_GENERAL_MEETING PSYCHOLOGIST_SESSION"`
	PlannedStartAt *time.Time           `json:"plannedStartAt"`
	PlannedEndAt   *time.Time           `json:"plannedEndAt"`
	PlannedHours   *int                 `json:"plannedHours" validate:"omitempty,min=1,max=12"`
	Location       *string              `json:"location" validate:"omitempty,max=200"`
	Notes          *string              `json:"notes" validate:"omitempty,max=2000"`
	Participants   []ParticipantInput   `json:"participants" validate:"omitempty,dive"`
	Version        *int                 `json:"version" validate:"omitempty,min=1"`
}

// TransitionEventRequest moves an event to a terminal status.
type TransitionEventRequest struct {
	Status            models.EventStatus `json:"status" validate:"required"`
	CompletionComment *string            `json:"completionComment" validate:"omitempty,max=2000"`
	CancelReasonID    *string            `json:"cancelReasonId"`
	CancelComment     *string            `json:"cancelComment" validate:"omitempty,max=2000"`
	FactStartAt       *time.Time         `json:"factStartAt"`
	FactEndAt         *time.Time         `json:"factEndAt"`
	Version           *int               `json:"version" validate:"omitempty,min=1"`
}

// EventService orchestrates scheduling, editing and lifecycle of events.
type EventService struct {
	repo      eventRepository
	catalog   eventCatalog
	notifier  notificationScheduler
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService constructs an EventService. notifier, cache and metrics are optional.
func NewEventService(repo eventRepository, catalog eventCatalog, notifier notificationScheduler, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		repo:      repo,
		catalog:   catalog,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns events plus pagination data.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "to must be later than from")
	}
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return events, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an event by id.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create validates and persists a new planned event. Lesson types are
// admitted against persisted lessons under the admission lock.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, actor *models.JWTClaims) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if _, err := scheduling.NewInterval(req.PlannedStartAt, req.PlannedEndAt, req.ActivityType); err != nil {
		return nil, err
	}

	subject, err := s.checkSubject(ctx, req.Subject)
	if err != nil {
		return nil, err
	}
	participants := dedupeParticipants(req.Participants)
	if err := checkStudentsAllowed(req.ActivityType, participants); err != nil {
		return nil, err
	}

	plannedHours := scheduling.DefaultPlannedHours(req.PlannedStartAt, req.PlannedEndAt)
	if req.PlannedHours != nil {
		plannedHours = *req.PlannedHours
	}

	createdBy := strings.TrimSpace(req.CreatedByUserID)
	if createdBy == "" && actor != nil {
		createdBy = actor.UserID
	}
	if createdBy == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "createdByUserId is required")
	}
	if _, err := uuid.Parse(createdBy); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "createdByUserId must be a UUID")
	}

	event := &models.Event{
		Title:           strings.TrimSpace(req.Title),
		Subject:         subject,
		ActivityType:    req.ActivityType,
		PlannedStartAt:  req.PlannedStartAt.UTC(),
		PlannedEndAt:    req.PlannedEndAt.UTC(),
		PlannedHours:    plannedHours,
		BillableHours:   scheduling.BillableHours(models.EventStatusPlanned, plannedHours),
		Status:          models.EventStatusPlanned,
		IsPaid:          true,
		Location:        nonEmpty(req.Location),
		Notes:           nonEmpty(req.Notes),
		CreatedByUserID: createdBy,
		Participants:    participants,
	}

	var admit func([]models.EventInterval) error
	if event.ActivityType.IsLesson() {
		admit = s.admission(event.Interval())
	}
	if err := s.repo.Create(ctx, event, admit); err != nil {
		return nil, s.persistError(err, "failed to create event")
	}

	s.logger.Info("event created",
		zap.String("event_id", event.ID),
		zap.String("activity_type", string(event.ActivityType)),
		zap.Time("planned_start_at", event.PlannedStartAt),
		zap.String("request_id", requestid.FromContext(ctx)),
	)
	s.cache.InvalidateReports(ctx)
	if s.notifier != nil && event.HasStudents() {
		s.notifier.Schedule(event.ID)
	}
	return event, nil
}

// Update applies a partial edit. The slot check reruns when a lesson that
// still occupies capacity changes its interval or type.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != existing.Version {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event was modified by another request")
	}

	merged := *existing
	if req.Title != nil {
		merged.Title = strings.TrimSpace(*req.Title)
		if merged.Title == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
	}
	if req.Subject != nil {
		subject, err := s.checkSubject(ctx, req.Subject)
		if err != nil {
			return nil, err
		}
		merged.Subject = subject
	}
	if req.ActivityType != nil {
		merged.ActivityType = *req.ActivityType
	}
	if req.PlannedStartAt != nil {
		merged.PlannedStartAt = req.PlannedStartAt.UTC()
	}
	if req.PlannedEndAt != nil {
		merged.PlannedEndAt = req.PlannedEndAt.UTC()
	}
	if req.Location != nil {
		merged.Location = nonEmpty(req.Location)
	}
	if req.Notes != nil {
		merged.Notes = nonEmpty(req.Notes)
	}
	replaceParticipants := req.Participants != nil
	if replaceParticipants {
		merged.Participants = dedupeParticipants(req.Participants)
	}

	if _, err := scheduling.NewInterval(merged.PlannedStartAt, merged.PlannedEndAt, merged.ActivityType); err != nil {
		return nil, err
	}
	if err := checkStudentsAllowed(merged.ActivityType, merged.Participants); err != nil {
		return nil, err
	}

	intervalChanged := !merged.PlannedStartAt.Equal(existing.PlannedStartAt) || !merged.PlannedEndAt.Equal(existing.PlannedEndAt)
	switch {
	case req.PlannedHours != nil:
		merged.PlannedHours = *req.PlannedHours
	case intervalChanged:
		merged.PlannedHours = scheduling.DefaultPlannedHours(merged.PlannedStartAt, merged.PlannedEndAt)
	}
	merged.BillableHours = scheduling.BillableHours(merged.Status, merged.PlannedHours)

	var admit func([]models.EventInterval) error
	typeChanged := merged.ActivityType != existing.ActivityType
	if merged.ActivityType.IsLesson() && merged.Status.OccupiesSlot() && (intervalChanged || typeChanged) {
		admit = s.admission(merged.Interval())
	}
	if err := s.repo.Update(ctx, &merged, replaceParticipants, admit); err != nil {
		return nil, s.persistError(err, "failed to update event")
	}

	s.logger.Info("event updated", zap.String("event_id", merged.ID), zap.Int("version", merged.Version))
	s.cache.InvalidateReports(ctx)
	return &merged, nil
}

// Transition moves an event to Completed or Canceled.
func (s *EventService) Transition(ctx context.Context, id string, req TransitionEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != existing.Version {
		return nil, appErrors.Clone(appErrors.ErrConflict, "event was modified by another request")
	}

	updated, err := scheduling.Transition(ctx, *existing, req.Status, scheduling.TransitionPayload{
		CompletionComment: req.CompletionComment,
		CancelReasonID:    req.CancelReasonID,
		CancelComment:     req.CancelComment,
		FactStartAt:       req.FactStartAt,
		FactEndAt:         req.FactEndAt,
	}, s.catalog)
	if err != nil {
		s.metrics.ObserveTransition(req.Status, err)
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, &updated); err != nil {
		s.metrics.ObserveTransition(req.Status, err)
		return nil, s.persistError(err, "failed to update event status")
	}
	s.metrics.ObserveTransition(req.Status, nil)

	s.logger.Info("event status changed",
		zap.String("event_id", updated.ID),
		zap.String("from", string(existing.Status)),
		zap.String("to", string(updated.Status)),
		zap.Int("billable_hours", updated.BillableHours),
		zap.String("request_id", requestid.FromContext(ctx)),
	)
	s.cache.InvalidateReports(ctx)

	if updated.CancelReasonID == nil {
		updated.CancelReason = nil
	} else if existing.CancelReason == nil || existing.CancelReason.ID != *updated.CancelReasonID {
		reason, err := s.catalog.FindCancelReason(ctx, *updated.CancelReasonID)
		if err != nil {
			s.logger.Warn("cancel reason not loaded", zap.String("event_id", updated.ID), zap.Error(err))
		}
		updated.CancelReason = reason
	}
	return &updated, nil
}

func (s *EventService) admission(candidate models.EventInterval) func([]models.EventInterval) error {
	return func(existing []models.EventInterval) error {
		start := time.Now()
		conflict := scheduling.ValidateLessonOccupancy(existing, candidate)
		if conflict != nil {
			s.metrics.ObserveAdmission(candidate.ActivityType, conflict.Rule, time.Since(start))
			s.logger.Info("lesson admission rejected",
				zap.String("rule", string(conflict.Rule)),
				zap.Time("at", conflict.At),
			)
			return appErrors.Wrap(conflict, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, conflict.Message)
		}
		s.metrics.ObserveAdmission(candidate.ActivityType, "", time.Since(start))
		return nil
	}
}

func (s *EventService) checkSubject(ctx context.Context, raw *string) (*string, error) {
	subject := nonEmpty(raw)
	if subject == nil {
		return nil, nil
	}
	active, err := s.catalog.SubjectActive(ctx, *subject)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrInactiveSubject, "subject "+*subject+" is not in the active catalog")
	}
	return subject, nil
}

func (s *EventService) persistError(err error, message string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "event was modified by another request")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "event not found")
	case errors.Is(err, repository.ErrUnknownUser):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "participant or creator user does not exist")
	default:
		s.logger.Error(message, zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func checkStudentsAllowed(activity models.ActivityType, participants []models.EventParticipant) error {
	if !activity.IsAdministrative() {
		return nil
	}
	for _, p := range participants {
		if p.Role == models.ParticipantStudent {
			return appErrors.ErrStudentsNotAllowed
		}
	}
	return nil
}

// dedupeParticipants keeps the first occurrence of each (user, role) pair.
func dedupeParticipants(inputs []ParticipantInput) []models.EventParticipant {
	if len(inputs) == 0 {
		return nil
	}
	type key struct {
		user string
		role models.ParticipantRole
	}
	seen := make(map[key]struct{}, len(inputs))
	participants := make([]models.EventParticipant, 0, len(inputs))
	for _, in := range inputs {
		k := key{user: strings.TrimSpace(in.UserID), role: in.Role}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		participants = append(participants, models.EventParticipant{UserID: k.user, Role: k.role})
	}
	return participants
}

func nonEmpty(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
