package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/educenter-crm-api/internal/middleware"
	"github.com/noah-isme/educenter-crm-api/internal/models"
	"github.com/noah-isme/educenter-crm-api/internal/service"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context, query service.ReportQuery) (*models.HoursSummary, bool, error)
	CancelReasons(ctx context.Context, query service.ReportQuery) ([]models.CancelReasonStat, bool, error)
	TeacherSchedule(ctx context.Context, teacherUserID string, query service.ReportQuery) ([]models.TeacherScheduleItem, error)
	ListCancelReasons(ctx context.Context) ([]models.CancelReason, error)
}

type exportService interface {
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportResult, error)
}

// ReportHandler exposes hours reporting endpoints.
type ReportHandler struct {
	reports reportService
	exports exportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exports exportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Summary godoc
// @Summary Hours summary
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.reports.Summary(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, cachedMeta(c, cacheHit, start))
}

// CancelReasons godoc
// @Summary Canceled events grouped by reason
// @Tags Reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/cancel-reasons [get]
func (h *ReportHandler) CancelReasons(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.reports.CancelReasons(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, cachedMeta(c, cacheHit, start))
}

// Export godoc
// @Summary Download the hours summary
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /reports/summary/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Data)
}

// TeacherSchedule godoc
// @Summary Teacher schedule
// @Description Events where the user takes part as teacher or curator. Defaults to the current month.
// @Tags Reports
// @Produce json
// @Param id path string true "Teacher user ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *ReportHandler) TeacherSchedule(c *gin.Context) {
	teacherID, ok := userIDParam(c)
	if !ok {
		return
	}
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	items, err := h.reports.TeacherSchedule(c.Request.Context(), teacherID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListCancelReasons godoc
// @Summary Cancel reason catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /cancel-reasons [get]
func (h *ReportHandler) ListCancelReasons(c *gin.Context) {
	reasons, err := h.reports.ListCancelReasons(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reasons, nil)
}

func bindReportQuery(c *gin.Context) (service.ReportQuery, bool) {
	var query service.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return query, false
	}
	return query, true
}

func cachedMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
