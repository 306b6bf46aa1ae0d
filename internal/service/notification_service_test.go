package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/jobs"
)

type sentMessage struct {
	address string
	text    string
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	fail     map[string]error
	reject   map[string]bool
	delay    time.Duration
	block    bool
	disabled bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeMessenger) Enabled() bool { return !f.disabled }

func (f *fakeMessenger) Send(ctx context.Context, address, text string) (bool, error) {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if current <= peak || f.maxInFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{address: address, text: text})
	if err := f.fail[address]; err != nil {
		return false, err
	}
	return !f.reject[address], nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeGuardians struct {
	contacts []models.GuardianContact
	err      error
	calls    int
	asked    []string
}

func (f *fakeGuardians) ListNotifiable(ctx context.Context, studentUserIDs []string) ([]models.GuardianContact, error) {
	f.calls++
	f.asked = studentUserIDs
	return f.contacts, f.err
}

var moscow = time.FixedZone("MSK", 3*60*60)

func notifiableEvent() *mockEventRepo {
	repo := &mockEventRepo{}
	subject := " Math "
	repo.store(models.Event{
		ID:             "evt-1",
		Title:          "Algebra",
		Subject:        &subject,
		ActivityType:   models.ActivityGroupLesson,
		PlannedStartAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		PlannedEndAt:   time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC),
		Status:         models.EventStatusPlanned,
		Participants: []models.EventParticipant{
			{UserID: "student-1", Role: models.ParticipantStudent, FullName: "Ivan Petrov"},
			{UserID: "teacher-1", Role: models.ParticipantTeacher, FullName: "Anna Smirnova"},
			{UserID: "student-2", Role: models.ParticipantStudent, FullName: "Maria Petrova"},
			{UserID: "curator-1", Role: models.ParticipantCurator, FullName: "Oleg Ivanov"},
			{UserID: "parent-9", Role: models.ParticipantParent, FullName: "Someone Else"},
		},
	})
	return repo
}

func guardianContacts(n int) []models.GuardianContact {
	out := make([]models.GuardianContact, n)
	for i := range out {
		out[i] = models.GuardianContact{
			ParentID:        "parent-" + string(rune('a'+i)),
			ChatID:          "chat-" + string(rune('a'+i)),
			StudentUserID:   "student-1",
			StudentFullName: "Ivan Petrov",
		}
	}
	return out
}

func TestNotifyGuardiansIsolatesFailures(t *testing.T) {
	messenger := &fakeMessenger{
		fail:   map[string]error{"chat-b": errors.New("chat not found")},
		reject: map[string]bool{"chat-c": true},
	}
	guardians := &fakeGuardians{contacts: guardianContacts(3)}
	svc := NewNotificationService(notifiableEvent(), guardians, messenger, NewMetricsService(), NotificationConfig{Location: moscow}, zap.NewNop())

	report, err := svc.NotifyGuardians(context.Background(), "evt-1")
	require.NoError(t, err)

	assert.Empty(t, report.Skipped)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, 2, report.Failed)
	require.Len(t, report.Outcomes, 3)
	assert.True(t, report.Outcomes[0].Delivered)
	assert.Equal(t, "chat not found", report.Outcomes[1].Error)
	assert.False(t, report.Outcomes[2].Delivered)
	assert.Equal(t, []string{"student-1", "student-2"}, guardians.asked)
	assert.Len(t, messenger.messages(), 3)
}

func TestNotifyGuardiansMessageContent(t *testing.T) {
	messenger := &fakeMessenger{}
	guardians := &fakeGuardians{contacts: guardianContacts(1)}
	svc := NewNotificationService(notifiableEvent(), guardians, messenger, nil, NotificationConfig{Location: moscow}, nil)

	_, err := svc.NotifyGuardians(context.Background(), "evt-1")
	require.NoError(t, err)

	sent := messenger.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "chat-a", sent[0].address)
	assert.Equal(t,
		"A lesson has been scheduled for your child Ivan Petrov: Math with Anna Smirnova, Oleg Ivanov.\n"+
			"Date: 10.03.2025\n"+
			"Time: 13:00\n"+
			"\n"+
			"If your child cannot attend, please write to this bot.",
		sent[0].text)
}

func TestNotifyGuardiansFallbacks(t *testing.T) {
	repo := notifiableEvent()
	event := repo.items["evt-1"]
	event.Subject = nil
	event.Participants = event.Participants[:1]

	messenger := &fakeMessenger{}
	svc := NewNotificationService(repo, &fakeGuardians{contacts: guardianContacts(1)}, messenger, nil, NotificationConfig{}, nil)

	_, err := svc.NotifyGuardians(context.Background(), "evt-1")
	require.NoError(t, err)
	sent := messenger.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, ": Algebra with not assigned.")
	assert.Contains(t, sent[0].text, "Time: 10:00")
}

func TestNotifyGuardiansSkips(t *testing.T) {
	t.Run("messaging disabled", func(t *testing.T) {
		guardians := &fakeGuardians{contacts: guardianContacts(1)}
		svc := NewNotificationService(notifiableEvent(), guardians, &fakeMessenger{disabled: true}, nil, NotificationConfig{}, nil)
		report, err := svc.NotifyGuardians(context.Background(), "evt-1")
		require.NoError(t, err)
		assert.Equal(t, SkipMessagingDisabled, report.Skipped)
		assert.Zero(t, guardians.calls)
	})

	t.Run("no students", func(t *testing.T) {
		repo := notifiableEvent()
		repo.items["evt-1"].Participants = []models.EventParticipant{{UserID: "teacher-1", Role: models.ParticipantTeacher}}
		guardians := &fakeGuardians{contacts: guardianContacts(1)}
		svc := NewNotificationService(repo, guardians, &fakeMessenger{}, nil, NotificationConfig{}, nil)
		report, err := svc.NotifyGuardians(context.Background(), "evt-1")
		require.NoError(t, err)
		assert.Equal(t, SkipNoStudents, report.Skipped)
		assert.Zero(t, guardians.calls)
	})

	t.Run("no guardians", func(t *testing.T) {
		messenger := &fakeMessenger{}
		svc := NewNotificationService(notifiableEvent(), &fakeGuardians{}, messenger, nil, NotificationConfig{}, nil)
		report, err := svc.NotifyGuardians(context.Background(), "evt-1")
		require.NoError(t, err)
		assert.Equal(t, SkipNoGuardians, report.Skipped)
		assert.Empty(t, messenger.messages())
	})
}

func TestNotifyGuardiansLoadErrors(t *testing.T) {
	svc := NewNotificationService(&mockEventRepo{}, &fakeGuardians{}, &fakeMessenger{}, nil, NotificationConfig{}, nil)
	_, err := svc.NotifyGuardians(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	svc = NewNotificationService(notifiableEvent(), &fakeGuardians{err: sql.ErrConnDone}, &fakeMessenger{}, nil, NotificationConfig{}, nil)
	_, err = svc.NotifyGuardians(context.Background(), "evt-1")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestNotifyGuardiansBoundsConcurrency(t *testing.T) {
	messenger := &fakeMessenger{delay: 20 * time.Millisecond}
	svc := NewNotificationService(notifiableEvent(), &fakeGuardians{contacts: guardianContacts(6)}, messenger, nil, NotificationConfig{Concurrency: 2}, nil)

	report, err := svc.NotifyGuardians(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 6, report.Delivered)
	assert.LessOrEqual(t, messenger.maxInFlight.Load(), int32(2))
}

func TestNotifyGuardiansTimeoutIsFailure(t *testing.T) {
	messenger := &fakeMessenger{block: true}
	svc := NewNotificationService(notifiableEvent(), &fakeGuardians{contacts: guardianContacts(2)}, messenger, nil, NotificationConfig{DispatchTimeout: 20 * time.Millisecond}, nil)

	report, err := svc.NotifyGuardians(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Contains(t, report.Outcomes[0].Error, context.DeadlineExceeded.Error())
}

func TestNotificationDispatcherRunsInBackground(t *testing.T) {
	messenger := &fakeMessenger{}
	notifier := NewNotificationService(notifiableEvent(), &fakeGuardians{contacts: guardianContacts(2)}, messenger, nil, NotificationConfig{}, nil)
	metrics := NewMetricsService()
	dispatcher := NewNotificationDispatcher(notifier, jobs.QueueConfig{Workers: 1, BufferSize: 4}, metrics, zap.NewNop())

	dispatcher.Schedule("evt-1")
	assert.Zero(t, dispatcher.Stats().Enqueued)

	dispatcher.Start(context.Background())
	dispatcher.Schedule("evt-1")
	require.NoError(t, dispatcher.Stop(context.Background()))

	assert.Len(t, messenger.messages(), 2)
	assert.Equal(t, uint64(1), dispatcher.Stats().Processed)
	assert.Equal(t, uint64(2), metrics.Snapshot().NotificationsDelivered)
}
