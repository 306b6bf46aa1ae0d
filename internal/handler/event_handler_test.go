package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/educenter-crm-api/internal/middleware"
	"github.com/noah-isme/educenter-crm-api/internal/models"
	"github.com/noah-isme/educenter-crm-api/internal/service"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

const (
	testEventID   = "3f6b2c1e-8d4a-4f7b-9c2e-5a1d0e7f8b90"
	testTeacherID = "6c0e9a4d-2b7f-4e1a-8f3c-9d5b1a2e7c40"
	otherUserID   = "a1d4f7b2-5c8e-4b3a-9e6f-0c2d8b7a1f53"
)

type fakeEventSrv struct {
	event        *models.Event
	err          error
	getCalls     int
	lastFilter   models.EventFilter
	lastCreate   service.CreateEventRequest
	lastActor    *models.JWTClaims
	lastUpdateID string
	lastUpdate   service.UpdateEventRequest
	lastStatus   service.TransitionEventRequest
}

func (f *fakeEventSrv) List(_ context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.Event{*f.event}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeEventSrv) Get(_ context.Context, id string) (*models.Event, error) {
	f.getCalls++
	return f.event, f.err
}

func (f *fakeEventSrv) Create(_ context.Context, req service.CreateEventRequest, actor *models.JWTClaims) (*models.Event, error) {
	f.lastCreate = req
	f.lastActor = actor
	return f.event, f.err
}

func (f *fakeEventSrv) Update(_ context.Context, id string, req service.UpdateEventRequest) (*models.Event, error) {
	f.lastUpdateID = id
	f.lastUpdate = req
	return f.event, f.err
}

func (f *fakeEventSrv) Transition(_ context.Context, id string, req service.TransitionEventRequest) (*models.Event, error) {
	f.lastStatus = req
	return f.event, f.err
}

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	return c, rec
}

func sampleEvent() *models.Event {
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	return &models.Event{
		ID:             testEventID,
		Title:          "Math",
		ActivityType:   models.ActivityIndividualLesson,
		PlannedStartAt: start,
		PlannedEndAt:   start.Add(time.Hour),
		PlannedHours:   1,
		Status:         models.EventStatusPlanned,
		Version:        1,
	}
}

func TestEventHandlerCreate(t *testing.T) {
	srv := &fakeEventSrv{event: sampleEvent()}
	h := NewEventHandler(srv)

	body := `{"title":"Math","activityType":"INDIVIDUAL_LESSON","plannedStartAt":"2025-03-03T10:00:00Z","plannedEndAt":"2025-03-03T11:00:00Z","participants":[{"userId":"s1","participantRole":"STUDENT"}]}`
	c, rec := newTestContext(http.MethodPost, "/events", body)
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c.Set(middleware.ContextUserKey, actor)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Math", srv.lastCreate.Title)
	assert.Equal(t, models.ActivityIndividualLesson, srv.lastCreate.ActivityType)
	require.Len(t, srv.lastCreate.Participants, 1)
	assert.Same(t, actor, srv.lastActor)

	envelope := decodeEnvelope(t, rec)
	var event models.Event
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	assert.Equal(t, testEventID, event.ID)
}

func TestEventHandlerCreateInvalidJSON(t *testing.T) {
	h := NewEventHandler(&fakeEventSrv{event: sampleEvent()})
	c, rec := newTestContext(http.MethodPost, "/events", `{"title":`)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestEventHandlerCreateSlotConflict(t *testing.T) {
	conflict := &models.SlotConflictError{
		Rule:    models.SlotRuleTooManyLessons,
		Message: "too many lessons",
		At:      time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
	}
	srv := &fakeEventSrv{err: appErrors.Wrap(conflict, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, conflict.Message)}
	h := NewEventHandler(srv)

	body := `{"title":"Math","activityType":"INDIVIDUAL_LESSON","plannedStartAt":"2025-03-03T10:00:00Z","plannedEndAt":"2025-03-03T11:00:00Z"}`
	c, rec := newTestContext(http.MethodPost, "/events", body)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "SLOT_CONFLICT", envelope.Error.Code)
	assert.Equal(t, "too many lessons", envelope.Error.Message)
	detail, ok := envelope.Meta["conflict"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, string(models.SlotRuleTooManyLessons), detail["rule"])
}

func TestEventHandlerList(t *testing.T) {
	srv := &fakeEventSrv{event: sampleEvent()}
	h := NewEventHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/events?from=2025-03-01&to=2025-03-31&status=completed&page=2&limit=5", "")
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.From)
	require.NotNil(t, srv.lastFilter.To)
	assert.True(t, srv.lastFilter.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, srv.lastFilter.To.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, srv.lastFilter.Status)
	assert.Equal(t, models.EventStatusCompleted, *srv.lastFilter.Status)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
	assert.Equal(t, 1, decodeEnvelope(t, rec).Pagination.TotalCount)
}

func TestEventHandlerListRejectsBadQuery(t *testing.T) {
	h := NewEventHandler(&fakeEventSrv{event: sampleEvent()})

	for _, target := range []string{"/events?from=01.03.2025", "/events?to=tomorrow", "/events?status=DONE"} {
		c, rec := newTestContext(http.MethodGet, target, "")
		h.List(c)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestEventHandlerGetNotFound(t *testing.T) {
	h := NewEventHandler(&fakeEventSrv{err: appErrors.Clone(appErrors.ErrNotFound, "event not found")})
	c, rec := newTestContext(http.MethodGet, "/events/"+testEventID, "")
	c.Params = gin.Params{{Key: "id", Value: testEventID}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventHandlerUpdate(t *testing.T) {
	srv := &fakeEventSrv{event: sampleEvent()}
	h := NewEventHandler(srv)

	c, rec := newTestContext(http.MethodPatch, "/events/"+testEventID, `{"plannedHours":2,"version":1}`)
	c.Params = gin.Params{{Key: "id", Value: testEventID}}
	h.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testEventID, srv.lastUpdateID)
	require.NotNil(t, srv.lastUpdate.PlannedHours)
	assert.Equal(t, 2, *srv.lastUpdate.PlannedHours)
	assert.Nil(t, srv.lastUpdate.Participants)
}

func TestEventHandlerTransition(t *testing.T) {
	srv := &fakeEventSrv{event: sampleEvent()}
	h := NewEventHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/events/"+testEventID+"/status", `{"status":"CANCELED","cancelReasonId":"STUDENT_SICK"}`)
	c.Params = gin.Params{{Key: "id", Value: testEventID}}
	h.Transition(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.EventStatusCanceled, srv.lastStatus.Status)
	require.NotNil(t, srv.lastStatus.CancelReasonID)
	assert.Equal(t, "STUDENT_SICK", *srv.lastStatus.CancelReasonID)

	srv.err = appErrors.ErrMissingCancelReason
	c, rec = newTestContext(http.MethodPost, "/events/"+testEventID+"/status", `{"status":"CANCELED"}`)
	c.Params = gin.Params{{Key: "id", Value: testEventID}}
	h.Transition(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_CANCEL_REASON", decodeEnvelope(t, rec).Error.Code)
}

func TestEventHandlerRejectsMalformedID(t *testing.T) {
	srv := &fakeEventSrv{event: sampleEvent()}
	h := NewEventHandler(srv)

	cases := []struct {
		name   string
		method string
		body   string
		call   func(*gin.Context)
	}{
		{"get", http.MethodGet, "", h.Get},
		{"update", http.MethodPatch, `{"plannedHours":2}`, h.Update},
		{"transition", http.MethodPost, `{"status":"COMPLETED","completionComment":"done"}`, h.Transition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(tc.method, "/events/abc", tc.body)
			c.Params = gin.Params{{Key: "id", Value: "abc"}}
			tc.call(c)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
		})
	}
	assert.Zero(t, srv.getCalls)
	assert.Empty(t, srv.lastUpdateID)
	assert.Empty(t, srv.lastStatus.Status)
}
