package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type memoryCalendarRepo struct {
	calendars map[int64]*models.Calendar
	nextID    int64
}

func (r *memoryCalendarRepo) List(ctx context.Context, activeOnly bool) ([]models.Calendar, error) {
	out := []models.Calendar{}
	for id := int64(1); id <= r.nextID; id++ {
		if c, ok := r.calendars[id]; ok && (!activeOnly || c.IsActive) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memoryCalendarRepo) GetByID(ctx context.Context, id int64) (*models.Calendar, error) {
	c, ok := r.calendars[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCalendarRepo) Create(ctx context.Context, calendar *models.Calendar) error {
	if r.calendars == nil {
		r.calendars = make(map[int64]*models.Calendar)
	}
	r.nextID++
	calendar.ID = r.nextID
	cp := *calendar
	r.calendars[calendar.ID] = &cp
	return nil
}

func (r *memoryCalendarRepo) Update(ctx context.Context, calendar *models.Calendar) error {
	if _, ok := r.calendars[calendar.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *calendar
	r.calendars[calendar.ID] = &cp
	return nil
}

func (r *memoryCalendarRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.calendars[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.calendars, id)
	return nil
}

func TestCalendarServiceLifecycle(t *testing.T) {
	repo := &memoryCalendarRepo{}
	queue := &recordingQueue{}
	svc := NewCalendarService(repo, &recordingCache{}, queue, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CalendarRequest{Name: " Sports ", Color: "#FF8800"})
	require.NoError(t, err)
	assert.Equal(t, "Sports", created.Name)
	assert.Equal(t, "#ff8800", created.Color)
	assert.True(t, created.IsActive)
	assert.Empty(t, queue.types(), "an empty calendar does not change the feed")

	off := false
	updated, err := svc.Update(ctx, created.ID, CalendarRequest{Name: "Sports", IsActive: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.Equal(t, []string{JobSignageRefresh, JobSignageRefresh}, queue.types())

	_, err = svc.Get(ctx, created.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarServiceValidation(t *testing.T) {
	svc := NewCalendarService(&memoryCalendarRepo{}, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), CalendarRequest{Name: "x", Color: "orange"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CalendarRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Update(context.Background(), 5, CalendarRequest{Name: "x"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
