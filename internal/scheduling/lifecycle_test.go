package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

type reasonCatalogStub struct {
	known map[string]bool
	err   error
	calls int
}

func (s *reasonCatalogStub) CancelReasonExists(ctx context.Context, id string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.known[id], nil
}

func strPtr(v string) *string { return &v }

func plannedEvent() models.Event {
	return models.Event{
		ID:             "evt-1",
		Title:          "Algebra",
		ActivityType:   models.ActivityIndividualLesson,
		PlannedStartAt: at(10, 0),
		PlannedEndAt:   at(11, 0),
		PlannedHours:   1,
		Status:         models.EventStatusPlanned,
		IsPaid:         true,
		Version:        1,
	}
}

func catalog() *reasonCatalogStub {
	return &reasonCatalogStub{known: map[string]bool{"STUDENT_SICK": true, "OTHER": true}}
}

func TestTransitionToCanceled(t *testing.T) {
	event := plannedEvent()

	updated, err := Transition(context.Background(), event, models.EventStatusCanceled, TransitionPayload{
		CancelReasonID: strPtr("STUDENT_SICK"),
	}, catalog())
	require.NoError(t, err)

	assert.Equal(t, models.EventStatusCanceled, updated.Status)
	assert.Zero(t, updated.BillableHours)
	require.NotNil(t, updated.CancelReasonID)
	assert.Equal(t, "STUDENT_SICK", *updated.CancelReasonID)
	assert.Nil(t, updated.CancelComment)
	assert.Nil(t, updated.CompletionComment)
	assert.Equal(t, models.EventStatusPlanned, event.Status)
}

func TestTransitionToCompleted(t *testing.T) {
	event := plannedEvent()

	updated, err := Transition(context.Background(), event, models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("  Covered chapter 3 "),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.EventStatusCompleted, updated.Status)
	assert.Equal(t, 1, updated.BillableHours)
	require.NotNil(t, updated.CompletionComment)
	assert.Equal(t, "Covered chapter 3", *updated.CompletionComment)
	require.NotNil(t, updated.FactStartAt)
	require.NotNil(t, updated.FactEndAt)
	assert.True(t, updated.FactStartAt.Equal(event.PlannedStartAt))
	assert.True(t, updated.FactEndAt.Equal(event.PlannedEndAt))
}

func TestTransitionToCompletedUsesSuppliedFactBounds(t *testing.T) {
	start, end := at(10, 5), at(10, 50)

	updated, err := Transition(context.Background(), plannedEvent(), models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("done"),
		FactStartAt:       &start,
		FactEndAt:         &end,
	}, nil)
	require.NoError(t, err)
	assert.True(t, updated.FactStartAt.Equal(start))
	assert.True(t, updated.FactEndAt.Equal(end))
	assert.Equal(t, 1, updated.BillableHours)
}

func TestTransitionToCompletedRejectsInvertedFactBounds(t *testing.T) {
	end := at(9, 0)

	_, err := Transition(context.Background(), plannedEvent(), models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("done"),
		FactEndAt:         &end,
	}, nil)
	assert.ErrorIs(t, err, appErrors.ErrInvalidInterval)
}

func TestTransitionCompletedClearsCancellation(t *testing.T) {
	event := plannedEvent()
	event.Status = models.EventStatusCompleted
	event.CompletionComment = strPtr("first pass")
	event.CancelReasonID = strPtr("OTHER")
	event.CancelComment = strPtr("stale")
	event.CancelReason = &models.CancelReason{ID: "OTHER"}

	updated, err := Transition(context.Background(), event, models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("amended"),
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.CancelReasonID)
	assert.Nil(t, updated.CancelComment)
	assert.Nil(t, updated.CancelReason)
	assert.Equal(t, "amended", *updated.CompletionComment)
}

func TestTransitionCanceledClearsCompletion(t *testing.T) {
	event := plannedEvent()
	start, end := at(10, 0), at(11, 0)
	event.FactStartAt = &start
	event.FactEndAt = &end
	event.CompletionComment = strPtr("stale")
	event.BillableHours = 1

	updated, err := Transition(context.Background(), event, models.EventStatusCanceled, TransitionPayload{
		CancelReasonID: strPtr("OTHER"),
		CancelComment:  strPtr("moved to friday"),
	}, catalog())
	require.NoError(t, err)
	assert.Nil(t, updated.FactStartAt)
	assert.Nil(t, updated.FactEndAt)
	assert.Nil(t, updated.CompletionComment)
	assert.Zero(t, updated.BillableHours)
	assert.Equal(t, "moved to friday", *updated.CancelComment)
}

func TestTransitionRequiredPayload(t *testing.T) {
	cases := []struct {
		name    string
		target  models.EventStatus
		payload TransitionPayload
		want    *appErrors.Error
	}{
		{name: "cancel without reason", target: models.EventStatusCanceled, payload: TransitionPayload{}, want: appErrors.ErrMissingCancelReason},
		{name: "cancel with blank reason", target: models.EventStatusCanceled, payload: TransitionPayload{CancelReasonID: strPtr("  ")}, want: appErrors.ErrMissingCancelReason},
		{name: "cancel with unknown reason", target: models.EventStatusCanceled, payload: TransitionPayload{CancelReasonID: strPtr("NOPE")}, want: appErrors.ErrUnknownCancelReason},
		{name: "complete without comment", target: models.EventStatusCompleted, payload: TransitionPayload{}, want: appErrors.ErrMissingCompletionComment},
		{name: "complete with blank comment", target: models.EventStatusCompleted, payload: TransitionPayload{CompletionComment: strPtr("\t")}, want: appErrors.ErrMissingCompletionComment},
		{name: "planned target", target: models.EventStatusPlanned, payload: TransitionPayload{}, want: appErrors.ErrInvalidTransition},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := plannedEvent()
			event.CompletionComment = strPtr("keep")
			snapshot := event

			updated, err := Transition(context.Background(), event, tc.target, tc.payload, catalog())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, snapshot, event)
			assert.Equal(t, snapshot, updated)
		})
	}
}

func TestTransitionBetweenTerminalStatusesRejected(t *testing.T) {
	event := plannedEvent()
	event.Status = models.EventStatusCompleted

	_, err := Transition(context.Background(), event, models.EventStatusCanceled, TransitionPayload{
		CancelReasonID: strPtr("OTHER"),
	}, catalog())
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	event.Status = models.EventStatusCanceled
	_, err = Transition(context.Background(), event, models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("done"),
	}, catalog())
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestTransitionCancelAmendsReason(t *testing.T) {
	event := plannedEvent()
	event.Status = models.EventStatusCanceled
	event.CancelReasonID = strPtr("STUDENT_SICK")

	updated, err := Transition(context.Background(), event, models.EventStatusCanceled, TransitionPayload{
		CancelReasonID: strPtr("OTHER"),
	}, catalog())
	require.NoError(t, err)
	assert.Equal(t, "OTHER", *updated.CancelReasonID)
}

func TestTransitionLookupFailureIsInternal(t *testing.T) {
	reasons := &reasonCatalogStub{err: errors.New("db down")}

	_, err := Transition(context.Background(), plannedEvent(), models.EventStatusCanceled, TransitionPayload{
		CancelReasonID: strPtr("OTHER"),
	}, reasons)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 1, reasons.calls)
}

func TestTransitionDoesNotTouchPlannedBounds(t *testing.T) {
	event := plannedEvent()
	updated, err := Transition(context.Background(), event, models.EventStatusCompleted, TransitionPayload{
		CompletionComment: strPtr("ok"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, event.PlannedStartAt, updated.PlannedStartAt)
	assert.Equal(t, event.PlannedEndAt, updated.PlannedEndAt)
	assert.Equal(t, time.Hour, updated.PlannedEndAt.Sub(updated.PlannedStartAt))
}
