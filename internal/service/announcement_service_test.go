package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type memoryAnnouncementRepo struct {
	items  map[int64]*models.Announcement
	nextID int64
}

func newMemoryAnnouncementRepo(items ...models.Announcement) *memoryAnnouncementRepo {
	repo := &memoryAnnouncementRepo{items: make(map[int64]*models.Announcement)}
	for i := range items {
		a := items[i]
		repo.items[a.ID] = &a
		if a.ID > repo.nextID {
			repo.nextID = a.ID
		}
	}
	return repo
}

func (r *memoryAnnouncementRepo) all(activeOnly bool) []models.Announcement {
	out := make([]models.Announcement, 0, len(r.items))
	for _, a := range r.items {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *memoryAnnouncementRepo) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	out := r.all(filter.ActiveOnly)
	return out, len(out), nil
}

func (r *memoryAnnouncementRepo) ListActive(ctx context.Context) ([]models.Announcement, error) {
	return r.all(true), nil
}

func (r *memoryAnnouncementRepo) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	a, ok := r.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *memoryAnnouncementRepo) Create(ctx context.Context, item *models.Announcement) error {
	r.nextID++
	item.ID = r.nextID
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memoryAnnouncementRepo) Update(ctx context.Context, item *models.Announcement) error {
	if _, ok := r.items[item.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *memoryAnnouncementRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.items, id)
	return nil
}

func newTestAnnouncementService(repo *memoryAnnouncementRepo, queue *recordingQueue) *AnnouncementService {
	jakarta := time.FixedZone("WIB", 7*3600)
	svc := NewAnnouncementService(repo, visibility.NewResolver(jakarta), &recordingCache{}, queue, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, time.June, 1, 3, 0, 0, 0, time.UTC) }
	return svc
}

func strPtr(s string) *string { return &s }

func TestAnnouncementServiceCreateDefaultsStartToCreation(t *testing.T) {
	queue := &recordingQueue{}
	svc := newTestAnnouncementService(newMemoryAnnouncementRepo(), queue)

	item, err := svc.Create(context.Background(), AnnouncementRequest{Title: "Library closed", Content: "Inventory week"}, "u1")
	require.NoError(t, err)
	assert.True(t, item.IsActive)
	assert.Nil(t, item.VisibilityStartAt)
	assert.Nil(t, item.VisibilityEndAt)
	assert.Equal(t, time.Date(2024, time.June, 1, 3, 0, 0, 0, time.UTC), item.StartMarker())
	assert.Equal(t, []string{JobSignageRefresh}, queue.types())
}

func TestAnnouncementServiceCreateParsesLocalMarkers(t *testing.T) {
	svc := newTestAnnouncementService(newMemoryAnnouncementRepo(), &recordingQueue{})

	item, err := svc.Create(context.Background(), AnnouncementRequest{
		Title:             "Uniform check",
		Content:           "Bring your badge",
		VisibilityStartAt: strPtr("2024-06-03"),
		VisibilityEndAt:   strPtr("2024-06-05T18:00"),
	}, "u1")
	require.NoError(t, err)
	require.NotNil(t, item.VisibilityStartAt)
	assert.Equal(t, time.Date(2024, time.June, 2, 17, 0, 0, 0, time.UTC), *item.VisibilityStartAt)
	assert.Equal(t, "2024-06-03", svc.resolver.DayKey(*item.VisibilityStartAt))
	assert.Equal(t, "2024-06-05", svc.resolver.DayKey(*item.VisibilityEndAt))
}

func TestAnnouncementServiceRejectsInvertedWindow(t *testing.T) {
	svc := newTestAnnouncementService(newMemoryAnnouncementRepo(), &recordingQueue{})

	_, err := svc.Create(context.Background(), AnnouncementRequest{
		Title:             "x",
		Content:           "y",
		VisibilityStartAt: strPtr("2024-06-05"),
		VisibilityEndAt:   strPtr("2024-06-04"),
	}, "u1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), AnnouncementRequest{Title: "x", Content: "y", VisibilityEndAt: strPtr("soon")}, "u1")
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)

	same, err := svc.Create(context.Background(), AnnouncementRequest{
		Title:             "Same day",
		Content:           "y",
		VisibilityStartAt: strPtr("2024-06-05T15:00"),
		VisibilityEndAt:   strPtr("2024-06-05T08:00"),
	}, "u1")
	require.NoError(t, err, "same-day end is compared by day")
	assert.NotNil(t, same)
}

func TestAnnouncementServiceAlertBroadcastUsesExcerpt(t *testing.T) {
	queue := &recordingQueue{}
	svc := newTestAnnouncementService(newMemoryAnnouncementRepo(), queue)

	_, err := svc.Create(context.Background(), AnnouncementRequest{Title: "Storm", Content: strings.Repeat("a", 200), IsAlert: true}, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{JobSignageRefresh, JobNotificationBroadcast}, queue.types())
	b := queue.jobs[1].Payload.(models.NotificationBroadcast)
	assert.Equal(t, models.NotificationAlert, b.Type)
	assert.Equal(t, 141, len([]rune(b.Body)))
}

func TestAnnouncementServiceActive(t *testing.T) {
	created := time.Date(2024, time.May, 20, 2, 0, 0, 0, time.UTC)
	endedAt := time.Date(2024, time.May, 31, 16, 30, 0, 0, time.UTC)
	futureAt := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	repo := newMemoryAnnouncementRepo(
		models.Announcement{ID: 1, Title: "open", IsActive: true, CreatedAt: created},
		models.Announcement{ID: 2, Title: "ended", IsActive: true, CreatedAt: created, VisibilityEndAt: &endedAt},
		models.Announcement{ID: 3, Title: "future", IsActive: true, CreatedAt: created, VisibilityStartAt: &futureAt},
		models.Announcement{ID: 4, Title: "off", IsActive: false, CreatedAt: created},
	)
	svc := newTestAnnouncementService(repo, &recordingQueue{})

	// 2024-06-01 00:10 in UTC+7: ID 2 ended on 2024-05-31 23:30 local.
	items, err := svc.Active(context.Background(), time.Date(2024, time.May, 31, 17, 10, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestAnnouncementServiceUpdateDelete(t *testing.T) {
	repo := newMemoryAnnouncementRepo(models.Announcement{ID: 1, Title: "old", Content: "c", IsActive: true, CreatedAt: time.Now()})
	svc := newTestAnnouncementService(repo, &recordingQueue{})
	ctx := context.Background()

	off := false
	updated, err := svc.Update(ctx, 1, AnnouncementRequest{Title: "new", Content: "c", IsActive: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.Get(ctx, 2)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(svc.Delete(ctx, 1)).Code)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("  short ", 10))
	assert.Equal(t, "abc…", excerpt("abc def", 4))
}
