package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

// CancelReasonLookup resolves cancel reason catalog entries.
type CancelReasonLookup interface {
	CancelReasonExists(ctx context.Context, id string) (bool, error)
}

// TransitionPayload carries the status-specific data of a transition request.
type TransitionPayload struct {
	CompletionComment *string
	CancelReasonID    *string
	CancelComment     *string
	FactStartAt       *time.Time
	FactEndAt         *time.Time
}

// Transition moves event to target and returns the updated copy. The input
// event is never modified, so a failed transition leaves no partial writes.
//
// Planned is creation-only. Completed and Canceled are terminal; re-issuing
// the same terminal status amends its record, switching between them is
// rejected.
func Transition(ctx context.Context, event models.Event, target models.EventStatus, payload TransitionPayload, reasons CancelReasonLookup) (models.Event, error) {
	if !target.Terminal() {
		return event, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot transition to %s", target))
	}
	if event.Status.Terminal() && event.Status != target {
		return event, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("event is %s and cannot become %s", event.Status, target))
	}

	switch target {
	case models.EventStatusCompleted:
		return complete(event, payload)
	default:
		return cancel(ctx, event, payload, reasons)
	}
}

func complete(event models.Event, payload TransitionPayload) (models.Event, error) {
	comment := trimmed(payload.CompletionComment)
	if comment == nil {
		return event, appErrors.Clone(appErrors.ErrMissingCompletionComment, "")
	}

	factStart := event.PlannedStartAt
	if payload.FactStartAt != nil {
		factStart = *payload.FactStartAt
	}
	factEnd := event.PlannedEndAt
	if payload.FactEndAt != nil {
		factEnd = *payload.FactEndAt
	}
	if !factEnd.After(factStart) {
		return event, appErrors.Clone(appErrors.ErrInvalidInterval, "fact end must be later than fact start")
	}

	updated := event
	updated.Status = models.EventStatusCompleted
	updated.BillableHours = BillableHours(updated.Status, updated.PlannedHours)
	updated.CompletionComment = comment
	updated.FactStartAt = &factStart
	updated.FactEndAt = &factEnd
	updated.CancelReasonID = nil
	updated.CancelComment = nil
	updated.CancelReason = nil
	return updated, nil
}

func cancel(ctx context.Context, event models.Event, payload TransitionPayload, reasons CancelReasonLookup) (models.Event, error) {
	reasonID := trimmed(payload.CancelReasonID)
	if reasonID == nil {
		return event, appErrors.Clone(appErrors.ErrMissingCancelReason, "")
	}
	if reasons == nil {
		return event, appErrors.Clone(appErrors.ErrUnknownCancelReason, "")
	}
	exists, err := reasons.CancelReasonExists(ctx, *reasonID)
	if err != nil {
		return event, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve cancel reason")
	}
	if !exists {
		return event, appErrors.Clone(appErrors.ErrUnknownCancelReason, fmt.Sprintf("cancel reason %q not found", *reasonID))
	}

	updated := event
	updated.Status = models.EventStatusCanceled
	updated.BillableHours = BillableHours(updated.Status, updated.PlannedHours)
	updated.CancelReasonID = reasonID
	updated.CancelComment = trimmed(payload.CancelComment)
	updated.CompletionComment = nil
	updated.FactStartAt = nil
	updated.FactEndAt = nil
	updated.CancelReason = nil
	return updated, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
