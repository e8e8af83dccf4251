package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type stubEventLister struct {
	events []models.CalendarEvent
	filter models.CalendarFilter
	err    error
}

func (s *stubEventLister) List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, int, error) {
	s.filter = filter
	return s.events, len(s.events), s.err
}

type stubAnnouncementLister struct {
	items []models.Announcement
}

func (s *stubAnnouncementLister) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	return s.items, len(s.items), nil
}

func newTestExportService(events *stubEventLister, announcements *stubAnnouncementLister) *ExportService {
	svc := NewExportService(events, announcements, visibility.NewResolver(time.UTC), nil)
	svc.now = func() time.Time { return time.Date(2024, time.June, 1, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatCSV, f)

	f, err = ParseExportFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, ExportFormatPDF, f)

	_, err = ParseExportFormat("xlsx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportEventsCSV(t *testing.T) {
	end := day(2024, time.June, 3)
	events := &stubEventLister{events: []models.CalendarEvent{
		{ID: 1, CalendarID: 2, Title: "Exam week", EventDate: day(2024, time.June, 1), EndDate: &end, IsActive: true},
		{ID: 2, CalendarID: 2, Title: "Sports day", EventDate: day(2024, time.June, 10), IsAlert: true},
	}}
	svc := newTestExportService(events, &stubAnnouncementLister{})

	file, err := svc.Events(context.Background(), models.CalendarFilter{Page: 4, PageSize: 10}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "events_20240601_093000.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, 1, events.filter.Page)
	assert.Equal(t, exportRowLimit, events.filter.PageSize)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Calendar,Title,Start,End,Location,Active,Alert", lines[0])
	assert.Equal(t, "1,2,Exam week,2024-06-01,2024-06-03,,yes,no", lines[1])
	assert.Equal(t, "2,2,Sports day,2024-06-10,2024-06-10,,no,yes", lines[2])
}

func TestExportAnnouncementsPDF(t *testing.T) {
	start := time.Date(2024, time.May, 30, 8, 0, 0, 0, time.UTC)
	items := &stubAnnouncementLister{items: []models.Announcement{
		{ID: 5, Title: "Library closed", VisibilityStartAt: &start, IsActive: true, CreatedBy: "u1"},
	}}
	svc := newTestExportService(&stubEventLister{}, items)

	file, err := svc.Announcements(context.Background(), models.AnnouncementFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))
}

func TestExportEventsRepositoryError(t *testing.T) {
	svc := newTestExportService(&stubEventLister{err: errors.New("db down")}, &stubAnnouncementLister{})
	_, err := svc.Events(context.Background(), models.CalendarFilter{}, ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
