package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
)

func newSelector(t *testing.T) (*Selector, *visibility.Resolver) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	resolver := visibility.NewResolver(loc)
	return NewSelector(resolver), resolver
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLatest(t *testing.T) {
	_, ok := Latest([]models.CalendarEvent{}, EventDate)
	assert.False(t, ok)

	events := []models.CalendarEvent{
		{ID: 1, EventDate: day(2024, 1, 2)},
		{ID: 2, EventDate: day(2024, 3, 1)},
		{ID: 3, EventDate: day(2024, 2, 1)},
	}
	latest, ok := Latest(events, EventDate)
	require.True(t, ok)
	assert.Equal(t, day(2024, 3, 1), latest)
}

func TestLatestKeepsFirstOnTie(t *testing.T) {
	local := time.FixedZone("WIB", 7*60*60)
	first := time.Date(2024, 1, 2, 7, 0, 0, 0, local)
	second := first.UTC()
	require.True(t, first.Equal(second))

	latest, ok := Latest([]time.Time{first, second}, func(v time.Time) time.Time { return v })
	require.True(t, ok)
	assert.Equal(t, local, latest.Location())

	latest, _ = Latest([]time.Time{second, first}, func(v time.Time) time.Time { return v })
	assert.Equal(t, time.UTC, latest.Location())
}

func TestEventsFirstBothEmpty(t *testing.T) {
	s, _ := newSelector(t)
	assert.True(t, s.EventsFirst(nil, nil))
}

func TestEventsFirstNoAnnouncements(t *testing.T) {
	s, _ := newSelector(t)
	events := []models.CalendarEvent{{EventDate: day(2024, 1, 1)}}
	assert.True(t, s.EventsFirst(events, []models.Announcement{}))
}

func TestAnnouncementsFirstNoEvents(t *testing.T) {
	s, _ := newSelector(t)
	announcements := []models.Announcement{{CreatedAt: day(2020, 1, 1)}}
	assert.False(t, s.EventsFirst(nil, announcements))
}

func TestEventsFirstOnSameDay(t *testing.T) {
	s, _ := newSelector(t)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	announcements := []models.Announcement{{VisibilityStartAt: &start, CreatedAt: day(2023, 12, 20)}}
	events := []models.CalendarEvent{{EventDate: day(2024, 1, 1)}}
	assert.True(t, s.EventsFirst(events, announcements))
}

func TestAnnouncementsFirstWhenNewer(t *testing.T) {
	s, _ := newSelector(t)
	announcements := []models.Announcement{
		{CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)},
	}
	events := []models.CalendarEvent{{EventDate: day(2024, 1, 4)}, {EventDate: day(2023, 12, 1)}}
	assert.False(t, s.EventsFirst(events, announcements))
}

func TestEventsFirstWhenNewer(t *testing.T) {
	s, _ := newSelector(t)
	announcements := []models.Announcement{{CreatedAt: time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)}}
	events := []models.CalendarEvent{{EventDate: day(2024, 1, 6)}}
	assert.True(t, s.EventsFirst(events, announcements))
}

func TestEventsFirstDoesNotMutate(t *testing.T) {
	s, _ := newSelector(t)
	events := []models.CalendarEvent{{ID: 2, EventDate: day(2024, 1, 2)}, {ID: 1, EventDate: day(2024, 1, 1)}}
	announcements := []models.Announcement{{ID: 9, CreatedAt: day(2024, 1, 3)}}
	eventsCopy := append([]models.CalendarEvent(nil), events...)
	announcementsCopy := append([]models.Announcement(nil), announcements...)

	s.EventsFirst(events, announcements)

	assert.Equal(t, eventsCopy, events)
	assert.Equal(t, announcementsCopy, announcements)
}

func TestSelectorUsesLocalDayOfAnnouncement(t *testing.T) {
	s, _ := newSelector(t)
	events := []models.CalendarEvent{{EventDate: day(2024, 1, 1)}}

	// 20:00 UTC on Jan 1 is already Jan 2 in Jakarta.
	lateUTC := []models.Announcement{{CreatedAt: time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)}}
	assert.False(t, s.EventsFirst(events, lateUTC))

	// 23:30 in Jakarta is still Jan 1 locally, a tie.
	sameLocalDay := []models.Announcement{{CreatedAt: time.Date(2024, 1, 1, 16, 30, 0, 0, time.UTC)}}
	assert.True(t, s.EventsFirst(events, sameLocalDay))
}
