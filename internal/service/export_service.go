package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/educenter-crm-api/internal/models"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/export"
)

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
	ContentType() string
	Extension() string
}

type hoursReportSource interface {
	Summary(ctx context.Context, query ReportQuery) (*models.HoursSummary, bool, error)
	CancelReasons(ctx context.Context, query ReportQuery) ([]models.CancelReasonStat, bool, error)
}

// ExportRequest selects the period and file format of a report export.
type ExportRequest struct {
	ReportQuery
	Format models.ReportFormat `form:"format" json:"format"`
}

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the hours report into downloadable files.
type ExportService struct {
	reports   hoursReportSource
	renderers map[models.ReportFormat]documentRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(reports hoursReportSource, csv, pdf documentRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		renderers: map[models.ReportFormat]documentRenderer{
			models.ReportFormatCSV: csv,
			models.ReportFormatPDF: pdf,
		},
		logger: logger,
	}
}

// Export renders the summary and cancel breakdown. Format defaults to CSV.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	format := req.Format
	if format == "" {
		format = models.ReportFormatCSV
	}
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	renderer := s.renderers[format]
	if renderer == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format %s is not available", format))
	}

	summary, _, err := s.reports.Summary(ctx, req.ReportQuery)
	if err != nil {
		return nil, err
	}
	reasons, _, err := s.reports.CancelReasons(ctx, req.ReportQuery)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(hoursDocument(req.ReportQuery, summary, reasons))
	if err != nil {
		s.logger.Error("render hours report", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportResult{
		Filename:    exportFilename(req.ReportQuery, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func hoursDocument(query ReportQuery, summary *models.HoursSummary, reasons []models.CancelReasonStat) export.Document {
	itoa := strconv.Itoa
	doc := export.Document{
		Title: "Hours summary " + periodLabel(query),
		Tables: []export.Table{
			{
				Title:   "Summary",
				Headers: []string{"Metric", "Value"},
				Rows: [][]string{
					{"Total events", itoa(summary.EventCounts.Total)},
					{"Planned", itoa(summary.EventCounts.Planned)},
					{"Completed", itoa(summary.EventCounts.Completed)},
					{"Canceled", itoa(summary.EventCounts.Canceled)},
					{"Planned hours", itoa(summary.Hours.Planned)},
					{"Factual hours", itoa(summary.Hours.Factual)},
					{"Billable hours", itoa(summary.Hours.Billable)},
					{"Attendance rate, %", strconv.FormatFloat(summary.AttendanceRate, 'f', 2, 64)},
				},
			},
		},
	}

	breakdown := export.Table{Title: "Cancel reasons", Headers: []string{"Reason", "Count"}}
	for _, r := range reasons {
		breakdown.Rows = append(breakdown.Rows, []string{r.ReasonName, itoa(r.Count)})
	}
	doc.Tables = append(doc.Tables, breakdown)
	return doc
}

func periodLabel(query ReportQuery) string {
	from, to := query.From, query.To
	if from == "" {
		from = "start"
	}
	if to == "" {
		to = "now"
	}
	return from + " to " + to
}

func exportFilename(query ReportQuery, ext string) string {
	name := "hours-summary"
	if query.From != "" {
		name += "_" + query.From
	}
	if query.To != "" {
		name += "_" + query.To
	}
	return name + "." + ext
}
