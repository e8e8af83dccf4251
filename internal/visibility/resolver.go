// Package visibility decides whether a dated bulletin item is showing on a
// given day. Days are compared as YYYY-MM-DD keys built from local calendar
// fields in the display location, so day boundaries follow the reader's wall
// clock rather than UTC.
package visibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

// DayLayout is the day key format.
const DayLayout = "2006-01-02"

// Item is the temporal shape shared by events and announcements.
type Item struct {
	Start time.Time
	// End is optional. When nil the window closes on Start's day unless
	// OpenEnded is set.
	End       *time.Time
	OpenEnded bool
	// AllDay marks Start and End as calendar dates (DATE columns); their day
	// key is read from their own fields instead of the display location.
	AllDay bool
	Active bool
	Alert  bool
}

// Resolver evaluates Items against a caller-supplied reference instant.
type Resolver struct {
	loc *time.Location
}

// NewResolver builds a resolver for the given display location.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

// Location returns the display location.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// DayKey formats t as a day key using its local calendar fields.
func (r *Resolver) DayKey(t time.Time) string {
	return t.In(r.loc).Format(DayLayout)
}

// Window returns the inclusive start and end day keys of item. End is empty
// for open-ended items.
func (r *Resolver) Window(item Item) (string, string, error) {
	if item.Start.IsZero() {
		return "", "", appErrors.Clone(appErrors.ErrInvalidInput, "start marker is required")
	}
	start := r.markerKey(item.Start, item.AllDay)
	hasEnd := item.End != nil && !item.End.IsZero()
	if !hasEnd {
		if item.OpenEnded {
			return start, "", nil
		}
		return start, start, nil
	}
	return start, r.markerKey(*item.End, item.AllDay), nil
}

func (r *Resolver) markerKey(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(DayLayout)
	}
	return r.DayKey(t)
}

// InWindow reports whether now falls inside item's window, ignoring the
// active flag.
func (r *Resolver) InWindow(item Item, now time.Time) (bool, error) {
	start, end, err := r.Window(item)
	if err != nil {
		return false, err
	}
	today := r.DayKey(now)
	if today < start {
		return false, nil
	}
	return end == "" || today <= end, nil
}

// Visible reports whether item should be displayed at now.
func (r *Resolver) Visible(item Item, now time.Time) (bool, error) {
	inRange, err := r.InWindow(item, now)
	if err != nil {
		return false, err
	}
	return inRange && item.Active, nil
}

// FromEvent maps a calendar event onto an Item.
func FromEvent(e models.CalendarEvent) Item {
	return Item{Start: e.EventDate, End: e.EndDate, AllDay: true, Active: e.IsActive, Alert: e.IsAlert}
}

// FromAnnouncement maps an announcement onto an Item. Announcements without
// visibility_end_at (nil or zero) stay up until deactivated.
func FromAnnouncement(a models.Announcement) Item {
	end := a.VisibilityEndAt
	if end != nil && end.IsZero() {
		end = nil
	}
	return Item{
		Start:     a.StartMarker(),
		End:       end,
		OpenEnded: end == nil,
		Active:    a.IsActive,
		Alert:     a.IsAlert,
	}
}

// CalendarDate returns the day of t in the display location as UTC midnight,
// the shape DATE columns are stored and read back in.
func (r *Resolver) CalendarDate(t time.Time) time.Time {
	y, m, d := t.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses raw like ParseMarker and reduces it to a calendar date.
func (r *Resolver) ParseDate(raw string) (time.Time, error) {
	t, err := r.ParseMarker(raw)
	if err != nil {
		return time.Time{}, err
	}
	return r.CalendarDate(t), nil
}

var markerLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	DayLayout,
}

// ParseMarker parses a raw date or datetime value. Values without a zone are
// read in the display location, so "2024-06-01" is that calendar day there.
func (r *Resolver) ParseMarker(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidInput, "date value is required")
	}
	for _, layout := range markerLayouts {
		if t, err := time.ParseInLocation(layout, value, r.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unparseable date value %q", value))
}
