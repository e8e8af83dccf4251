package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"

	exportRowLimit = 5000
)

// ParseExportFormat maps a query value to a format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

type exportRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type eventLister interface {
	List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, int, error)
}

type announcementLister interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders event and announcement listings as CSV or PDF.
type ExportService struct {
	events        eventLister
	announcements announcementLister
	resolver      *visibility.Resolver
	renderers     map[ExportFormat]exportRenderer
	logger        *zap.Logger
	now           func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(events eventLister, announcements announcementLister, resolver *visibility.Resolver, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &ExportService{
		events:        events,
		announcements: announcements,
		resolver:      resolver,
		renderers: map[ExportFormat]exportRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// Events renders the events matching filter.
func (s *ExportService) Events(ctx context.Context, filter models.CalendarFilter, format ExportFormat) (*ExportFile, error) {
	filter.Page, filter.PageSize = 1, exportRowLimit
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events for export")
	}
	if total > len(events) {
		s.logger.Warn("event export truncated", zap.Int("total", total), zap.Int("exported", len(events)))
	}

	ds := export.Dataset{
		Title:   "Calendar Events",
		Headers: []string{"ID", "Calendar", "Title", "Start", "End", "Location", "Active", "Alert"},
	}
	for _, e := range events {
		location := ""
		if e.Location != nil {
			location = *e.Location
		}
		ds.AddRow(
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.CalendarID, 10),
			e.Title,
			e.EventDate.Format(visibility.DayLayout),
			e.EffectiveEnd().Format(visibility.DayLayout),
			location,
			yesNo(e.IsActive),
			yesNo(e.IsAlert),
		)
	}
	return s.render(ds, "events", format)
}

// Announcements renders the announcements matching filter.
func (s *ExportService) Announcements(ctx context.Context, filter models.AnnouncementFilter, format ExportFormat) (*ExportFile, error) {
	filter.Page, filter.PageSize = 1, exportRowLimit
	items, total, err := s.announcements.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcements for export")
	}
	if total > len(items) {
		s.logger.Warn("announcement export truncated", zap.Int("total", total), zap.Int("exported", len(items)))
	}

	ds := export.Dataset{
		Title:   "Announcements",
		Headers: []string{"ID", "Title", "Visible From", "Visible Until", "Active", "Alert", "Created By"},
	}
	for _, a := range items {
		until := "open"
		if a.VisibilityEndAt != nil {
			until = s.resolver.DayKey(*a.VisibilityEndAt)
		}
		ds.AddRow(
			strconv.FormatInt(a.ID, 10),
			a.Title,
			s.resolver.DayKey(a.StartMarker()),
			until,
			yesNo(a.IsActive),
			yesNo(a.IsAlert),
			a.CreatedBy,
		)
	}
	return s.render(ds, "announcements", format)
}

func (s *ExportService) render(ds export.Dataset, name string, format ExportFormat) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	body, err := renderer.Render(ds)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	stamp := s.now().In(s.resolver.Location()).Format("20060102_150405")
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", name, stamp, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
