package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type memoryEventRepo struct {
	events map[int64]*models.CalendarEvent
	nextID int64
}

func newMemoryEventRepo(events ...models.CalendarEvent) *memoryEventRepo {
	repo := &memoryEventRepo{events: make(map[int64]*models.CalendarEvent)}
	for i := range events {
		e := events[i]
		repo.events[e.ID] = &e
		if e.ID > repo.nextID {
			repo.nextID = e.ID
		}
	}
	return repo
}

func (r *memoryEventRepo) List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, int, error) {
	out := make([]models.CalendarEvent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (r *memoryEventRepo) ListActive(ctx context.Context, calendarIDs []int64) ([]models.CalendarEvent, error) {
	out := make([]models.CalendarEvent, 0, len(r.events))
	for id := int64(1); id <= r.nextID; id++ {
		if e, ok := r.events[id]; ok && e.IsActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryEventRepo) GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *memoryEventRepo) Create(ctx context.Context, event *models.CalendarEvent) error {
	r.nextID++
	event.ID = r.nextID
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *memoryEventRepo) Update(ctx context.Context, event *models.CalendarEvent) error {
	if _, ok := r.events[event.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *memoryEventRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.events, id)
	return nil
}

func newTestEventService(repo *memoryEventRepo, queue *recordingQueue, cache *recordingCache) *EventService {
	calendars := stubCalendarLookup{calendars: map[int64]*models.Calendar{1: {ID: 1, Name: "Academic"}}}
	return NewEventService(repo, calendars, visibility.NewResolver(time.UTC), cache, queue, nil, nil, nil)
}

func TestEventServiceCreate(t *testing.T) {
	queue := &recordingQueue{}
	cache := &recordingCache{}
	svc := newTestEventService(newMemoryEventRepo(), queue, cache)
	end := "2024-06-03"

	event, err := svc.Create(context.Background(), EventRequest{
		CalendarID: 1,
		Title:      "  Exam week ",
		EventDate:  "2024-06-01",
		EndDate:    &end,
	}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Exam week", event.Title)
	assert.True(t, event.IsActive)
	assert.Equal(t, "u1", event.CreatedBy)
	assert.Equal(t, day(2024, time.June, 1), event.EventDate)
	require.NotNil(t, event.EndDate)
	assert.Equal(t, day(2024, time.June, 3), *event.EndDate)
	assert.Equal(t, []string{JobSignageRefresh}, queue.types())
	assert.Equal(t, []string{FeedCachePattern}, cache.patterns)
}

func TestEventServiceCreateAlertBroadcasts(t *testing.T) {
	queue := &recordingQueue{}
	svc := newTestEventService(newMemoryEventRepo(), queue, &recordingCache{})

	_, err := svc.Create(context.Background(), EventRequest{CalendarID: 1, Title: "Flood drill", EventDate: "2024-06-01", IsAlert: true}, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{JobSignageRefresh, JobNotificationBroadcast}, queue.types())
	b, ok := queue.jobs[1].Payload.(models.NotificationBroadcast)
	require.True(t, ok)
	assert.Equal(t, models.NotificationAlert, b.Type)
	assert.Equal(t, "Flood drill", b.Title)

	inactive := false
	queue.jobs = nil
	_, err = svc.Create(context.Background(), EventRequest{CalendarID: 1, Title: "Draft", EventDate: "2024-06-01", IsAlert: true, IsActive: &inactive}, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{JobSignageRefresh}, queue.types())
}

func TestEventServiceCreateRejectsBadInput(t *testing.T) {
	svc := newTestEventService(newMemoryEventRepo(), &recordingQueue{}, &recordingCache{})
	ctx := context.Background()

	_, err := svc.Create(ctx, EventRequest{CalendarID: 1, Title: "x", EventDate: "June first"}, "u1")
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)

	end := "2024-05-30"
	_, err = svc.Create(ctx, EventRequest{CalendarID: 1, Title: "x", EventDate: "2024-06-01", EndDate: &end}, "u1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, EventRequest{CalendarID: 9, Title: "x", EventDate: "2024-06-01"}, "u1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(ctx, EventRequest{CalendarID: 1, EventDate: "2024-06-01"}, "u1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventServiceActiveFiltersByDay(t *testing.T) {
	end := day(2024, time.June, 3)
	repo := newMemoryEventRepo(
		models.CalendarEvent{ID: 1, CalendarID: 1, Title: "Exam week", EventDate: day(2024, time.June, 1), EndDate: &end, IsActive: true},
		models.CalendarEvent{ID: 2, CalendarID: 1, Title: "Past", EventDate: day(2024, time.May, 1), IsActive: true},
		models.CalendarEvent{ID: 3, CalendarID: 1, Title: "Broken", IsActive: true},
	)
	svc := newTestEventService(repo, &recordingQueue{}, &recordingCache{})

	events, skipped, err := svc.active(context.Background(), time.Date(2024, time.June, 3, 23, 59, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, 1, skipped)

	events, err = svc.Active(context.Background(), time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventServiceUpdateAndDelete(t *testing.T) {
	repo := newMemoryEventRepo(models.CalendarEvent{ID: 1, CalendarID: 1, Title: "Old", EventDate: day(2024, time.June, 1), IsActive: true})
	queue := &recordingQueue{}
	svc := newTestEventService(repo, queue, &recordingCache{})
	ctx := context.Background()

	updated, err := svc.Update(ctx, 1, EventRequest{CalendarID: 1, Title: "New", EventDate: "2024-06-05"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.True(t, updated.IsActive)
	assert.Nil(t, updated.EndDate)

	_, err = svc.Update(ctx, 99, EventRequest{CalendarID: 1, Title: "New", EventDate: "2024-06-05"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, 1))
	err = svc.Delete(ctx, 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{JobSignageRefresh, JobSignageRefresh}, queue.types())
}
