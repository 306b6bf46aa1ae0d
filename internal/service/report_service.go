package service

import (
	"context"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
)

const reportDateLayout = "2006-01-02"

type reportRepository interface {
	HoursRows(ctx context.Context, filter models.ReportFilter) ([]models.EventHoursRow, error)
	CancelReasonStats(ctx context.Context, filter models.ReportFilter) ([]models.CancelReasonStat, error)
	TeacherSchedule(ctx context.Context, userID string, from, to time.Time) ([]models.TeacherScheduleItem, error)
}

type cancelReasonCatalog interface {
	ListCancelReasons(ctx context.Context) ([]models.CancelReason, error)
}

// ReportQuery bounds a report by inclusive calendar dates (UTC).
type ReportQuery struct {
	From string `form:"from" json:"from" validate:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" json:"to" validate:"omitempty,datetime=2006-01-02"`
}

// ReportService aggregates event hours and cancellation statistics.
type ReportService struct {
	repo      reportRepository
	catalog   cancelReasonCatalog
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, catalog cancelReasonCatalog, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, catalog: catalog, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// Summary returns event counts, hour totals and the attendance rate. The
// boolean reports whether the payload came from cache.
func (s *ReportService) Summary(ctx context.Context, query ReportQuery) (*models.HoursSummary, bool, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, false, err
	}

	key := ReportCacheKey("summary", query.From, query.To)
	var cached models.HoursSummary
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	rows, err := s.repo.HoursRows(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hours report")
	}

	summary := summarise(rows)
	summary.Period = period(query)
	s.cache.Set(ctx, key, summary, 0)
	return &summary, false, nil
}

// CancelReasons returns canceled events grouped by reason, most frequent first.
func (s *ReportService) CancelReasons(ctx context.Context, query ReportQuery) ([]models.CancelReasonStat, bool, error) {
	filter, err := s.filter(query)
	if err != nil {
		return nil, false, err
	}

	key := ReportCacheKey("cancel-reasons", query.From, query.To)
	var cached []models.CancelReasonStat
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	stats, err := s.repo.CancelReasonStats(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cancel reason report")
	}
	if stats == nil {
		stats = []models.CancelReasonStat{}
	}
	s.cache.Set(ctx, key, stats, 0)
	return stats, false, nil
}

// TeacherSchedule lists events a teacher or curator takes part in. Without
// bounds the current calendar month is used.
func (s *ReportService) TeacherSchedule(ctx context.Context, teacherUserID string, query ReportQuery) ([]models.TeacherScheduleItem, error) {
	if teacherUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	filter, err := s.filter(query)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if filter.From != nil {
		from = *filter.From
	}
	if filter.To != nil {
		to = *filter.To
	}

	items, err := s.repo.TeacherSchedule(ctx, teacherUserID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher schedule")
	}
	for i := range items {
		items[i].Category = items[i].ActivityType.Category()
	}
	if items == nil {
		items = []models.TeacherScheduleItem{}
	}
	return items, nil
}

// ListCancelReasons returns the active cancel reason catalog.
func (s *ReportService) ListCancelReasons(ctx context.Context) ([]models.CancelReason, error) {
	reasons, err := s.catalog.ListCancelReasons(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cancel reasons")
	}
	if reasons == nil {
		reasons = []models.CancelReason{}
	}
	return reasons, nil
}

func (s *ReportService) filter(query ReportQuery) (models.ReportFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.ReportFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "dates must use YYYY-MM-DD")
	}
	var filter models.ReportFilter
	if query.From != "" {
		from, _ := time.Parse(reportDateLayout, query.From)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := time.Parse(reportDateLayout, query.To)
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return models.ReportFilter{}, appErrors.Clone(appErrors.ErrValidation, "to must not be earlier than from")
	}
	return filter, nil
}

func summarise(rows []models.EventHoursRow) models.HoursSummary {
	var summary models.HoursSummary
	for _, row := range rows {
		summary.EventCounts.Total++
		summary.Hours.Planned += row.PlannedHours
		switch row.Status {
		case models.EventStatusPlanned:
			summary.EventCounts.Planned++
		case models.EventStatusCompleted:
			summary.EventCounts.Completed++
			summary.Hours.Factual += row.PlannedHours
			summary.Hours.Billable += row.BillableHours
		case models.EventStatusCanceled:
			summary.EventCounts.Canceled++
		}
	}
	if summary.EventCounts.Total > 0 {
		rate := float64(summary.EventCounts.Completed) / float64(summary.EventCounts.Total) * 100
		summary.AttendanceRate = math.Round(rate*100) / 100
	}
	return summary
}

func period(query ReportQuery) models.ReportPeriod {
	var p models.ReportPeriod
	if query.From != "" {
		from := query.From
		p.From = &from
	}
	if query.To != "" {
		to := query.To
		p.To = &to
	}
	return p
}
