package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type activeEventLister interface {
	ListActive(ctx context.Context, calendarIDs []int64) ([]models.CalendarEvent, error)
}

// ICSService publishes calendars as iCalendar feeds.
type ICSService struct {
	calendars calendarLookup
	events    activeEventLister
	domain    string
	logger    *zap.Logger
	now       func() time.Time
}

// NewICSService constructs the service. domain qualifies event UIDs.
func NewICSService(calendars calendarLookup, events activeEventLister, domain string, logger *zap.Logger) *ICSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if domain == "" {
		domain = "sma-bulletin"
	}
	return &ICSService{calendars: calendars, events: events, domain: domain, logger: logger, now: time.Now}
}

// Calendar renders every active event of calendarID. Events are all-day, so
// DTEND is the day after the last day.
func (s *ICSService) Calendar(ctx context.Context, calendarID int64) ([]byte, string, error) {
	calendar, err := s.calendars.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	events, err := s.events.ListActive(ctx, []int64{calendarID})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//SMA Bulletin//Calendar//EN")
	cal.SetName(calendar.Name)
	cal.SetXWRCalName(calendar.Name)
	if calendar.Description != "" {
		cal.SetXWRCalDesc(calendar.Description)
	}

	stamp := s.now().UTC()
	for _, e := range events {
		vevent := cal.AddEvent(fmt.Sprintf("event-%d@%s", e.ID, s.domain))
		vevent.SetDtStampTime(stamp)
		vevent.SetCreatedTime(e.CreatedAt.UTC())
		vevent.SetAllDayStartAt(e.EventDate)
		vevent.SetAllDayEndAt(e.EffectiveEnd().AddDate(0, 0, 1))
		vevent.SetSummary(e.Title)
		if e.Description != "" {
			vevent.SetDescription(e.Description)
		}
		if e.Location != nil && *e.Location != "" {
			vevent.SetLocation(*e.Location)
		}
		if e.IsAlert {
			vevent.SetProperty(ics.ComponentPropertyCategories, "ALERT")
		}
	}

	filename := fmt.Sprintf("%s.ics", slug(calendar.Name, calendarID))
	return []byte(cal.Serialize()), filename, nil
}

func slug(name string, id int64) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fmt.Sprintf("calendar-%d", id)
	}
	return out
}
