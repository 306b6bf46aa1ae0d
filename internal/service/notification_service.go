package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/jobs"
	"github.com/noah-isme/educenter-crm-api/pkg/messaging"
)

const (
	notifyJobType    = "guardian_notification"
	staffNotAssigned = "not assigned"
)

// Reasons reported when a fan-out is skipped entirely.
const (
	SkipMessagingDisabled = "messaging disabled"
	SkipNoStudents        = "no student participants"
	SkipNoGuardians       = "no notifiable guardians"
)

type eventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type guardianDirectory interface {
	ListNotifiable(ctx context.Context, studentUserIDs []string) ([]models.GuardianContact, error)
}

// NotificationConfig tunes guardian fan-out.
type NotificationConfig struct {
	Location        *time.Location
	Concurrency     int
	DispatchTimeout time.Duration
}

// NotificationService tells guardians about newly scheduled lessons. Each
// dispatch is independent; failures are logged and counted, never returned.
type NotificationService struct {
	events    eventReader
	guardians guardianDirectory
	messenger messaging.Messenger
	metrics   *MetricsService
	cfg       NotificationConfig
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(events eventReader, guardians guardianDirectory, messenger messaging.Messenger, metrics *MetricsService, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if messenger == nil {
		messenger = messaging.NoopMessenger{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		events:    events,
		guardians: guardians,
		messenger: messenger,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// NotifyGuardians sends one message per notifiable guardian of the event's
// students and waits for every attempt to settle. The returned error covers
// only failures to load the event or its guardians.
func (s *NotificationService) NotifyGuardians(ctx context.Context, eventID string) (*models.NotificationReport, error) {
	report := &models.NotificationReport{EventID: eventID}
	if !s.messenger.Enabled() {
		report.Skipped = SkipMessagingDisabled
		return report, nil
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	studentIDs := event.StudentIDs()
	if len(studentIDs) == 0 {
		report.Skipped = SkipNoStudents
		return report, nil
	}

	contacts, err := s.guardians.ListNotifiable(ctx, studentIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve guardians")
	}
	if len(contacts) == 0 {
		report.Skipped = SkipNoGuardians
		return report, nil
	}

	staff := staffNames(event.Participants)
	subject := event.Title
	if event.Subject != nil && strings.TrimSpace(*event.Subject) != "" {
		subject = strings.TrimSpace(*event.Subject)
	}
	start := event.PlannedStartAt.In(s.cfg.Location)

	report.Outcomes = make([]models.DeliveryOutcome, len(contacts))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, contact := range contacts {
		text := GuardianMessage(contact.StudentFullName, subject, staff, start)
		g.Go(func() error {
			report.Outcomes[i] = s.dispatch(ctx, event.ID, contact, text)
			return nil
		})
	}
	_ = g.Wait()

	for _, outcome := range report.Outcomes {
		if outcome.Delivered {
			report.Delivered++
		} else {
			report.Failed++
		}
	}
	s.logger.Info("guardian notifications settled",
		zap.String("event_id", event.ID),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *NotificationService) dispatch(ctx context.Context, eventID string, contact models.GuardianContact, text string) models.DeliveryOutcome {
	outcome := models.DeliveryOutcome{ParentID: contact.ParentID, StudentUserID: contact.StudentUserID}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	delivered, err := s.messenger.Send(dctx, contact.ChatID, text)
	switch {
	case err != nil:
		outcome.Error = err.Error()
	case !delivered:
		outcome.Error = "not delivered"
	default:
		outcome.Delivered = true
		s.metrics.ObserveNotification(NotificationDelivered)
		return outcome
	}

	s.metrics.ObserveNotification(NotificationFailed)
	s.logger.Warn("guardian notification failed",
		zap.String("event_id", eventID),
		zap.String("parent_id", contact.ParentID),
		zap.String("error", outcome.Error),
	)
	return outcome
}

// GuardianMessage renders the text sent to a guardian about a scheduled lesson.
// start must already be in the display time zone.
func GuardianMessage(studentName, subject, staff string, start time.Time) string {
	return strings.Join([]string{
		fmt.Sprintf("A lesson has been scheduled for your child %s: %s with %s.", studentName, subject, staff),
		"Date: " + start.Format("02.01.2006"),
		"Time: " + start.Format("15:04"),
		"",
		"If your child cannot attend, please write to this bot.",
	}, "\n")
}

func staffNames(participants []models.EventParticipant) string {
	var names []string
	for _, p := range participants {
		if p.Role.IsStaff() && strings.TrimSpace(p.FullName) != "" {
			names = append(names, strings.TrimSpace(p.FullName))
		}
	}
	if len(names) == 0 {
		return staffNotAssigned
	}
	return strings.Join(names, ", ")
}

// NotificationDispatcher runs guardian fan-outs off the request path on a
// background queue. Schedule never blocks; a full queue drops the job.
type NotificationDispatcher struct {
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationDispatcher wires a queue whose jobs call notifier.NotifyGuardians.
func NewNotificationDispatcher(notifier *NotificationService, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	cfg.MaxRetries = 0
	handler := func(ctx context.Context, job jobs.Job) error {
		eventID, ok := job.Payload.(string)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		_, err := notifier.NotifyGuardians(ctx, eventID)
		return err
	}
	return &NotificationDispatcher{
		queue:   jobs.NewQueue("notifications", handler, cfg),
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the queue workers.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains pending fan-outs until ctx ends.
func (d *NotificationDispatcher) Stop(ctx context.Context) error {
	return d.queue.Stop(ctx)
}

// Schedule enqueues a fan-out for the event.
func (d *NotificationDispatcher) Schedule(eventID string) {
	err := d.queue.TryEnqueue(jobs.Job{ID: eventID, Type: notifyJobType, Payload: eventID})
	if err == nil {
		return
	}
	d.metrics.ObserveNotification(NotificationDropped)
	d.logger.Warn("guardian notification not scheduled", zap.String("event_id", eventID), zap.Error(err))
}

// Stats exposes queue counters.
func (d *NotificationDispatcher) Stats() jobs.Stats {
	return d.queue.Stats()
}
