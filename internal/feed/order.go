// Package feed decides how the combined bulletin feed is arranged.
package feed

import (
	"time"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
)

// EventsFirstOnTie keeps events ahead of equally fresh announcements.
const EventsFirstOnTie = true

// Latest returns the greatest relevant date across items. The second result
// is false for an empty list. On ties the first-seen value is kept.
func Latest[T any](items []T, relevant func(T) time.Time) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, item := range items {
		value := relevant(item)
		if !found || value.After(latest) {
			latest = value
			found = true
		}
	}
	return latest, found
}

// EventDate is the relevant date of an event.
func EventDate(e models.CalendarEvent) time.Time {
	return e.EventDate
}

// AnnouncementDate is the relevant date of an announcement.
func AnnouncementDate(a models.Announcement) time.Time {
	return a.StartMarker()
}

// Selector compares collection recency at calendar-day granularity.
type Selector struct {
	resolver *visibility.Resolver
}

// NewSelector builds a selector sharing the resolver's display location.
func NewSelector(resolver *visibility.Resolver) *Selector {
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &Selector{resolver: resolver}
}

// EventsFirst reports whether the events section renders before the
// announcements section. Neither slice is modified.
func (s *Selector) EventsFirst(events []models.CalendarEvent, announcements []models.Announcement) bool {
	latestEvent, hasEvents := Latest(events, EventDate)
	latestAnnouncement, hasAnnouncements := Latest(announcements, AnnouncementDate)

	switch {
	case !hasEvents && !hasAnnouncements:
		return true
	case !hasAnnouncements:
		return true
	case !hasEvents:
		return false
	}

	eventDay := latestEvent.Format(visibility.DayLayout)
	announcementDay := s.resolver.DayKey(latestAnnouncement)
	if eventDay == announcementDay {
		return EventsFirstOnTie
	}
	return eventDay > announcementDay
}
