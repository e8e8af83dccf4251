package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) types() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Type)
	}
	return out
}

type recordingCache struct {
	patterns []string
	err      error
}

func (c *recordingCache) Invalidate(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return c.err
}

type countingRecorder struct {
	kinds []string
}

func (r *countingRecorder) RecordInvalidItem(kind string) {
	r.kinds = append(r.kinds, kind)
}

func TestContentHooksChanged(t *testing.T) {
	cache := &recordingCache{}
	queue := &recordingQueue{}
	hooks := contentHooks{cache: cache, queue: queue, logger: zap.NewNop()}

	hooks.changed(context.Background(), "announcement")
	assert.Equal(t, []string{FeedCachePattern}, cache.patterns)
	assert.Equal(t, []string{JobSignageRefresh}, queue.types())
	assert.Equal(t, "announcement", queue.jobs[0].Payload)
}

func TestContentHooksSwallowFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	hooks := contentHooks{
		cache:  &recordingCache{err: errors.New("redis down")},
		queue:  &recordingQueue{err: errors.New("queue stopped")},
		logger: zap.New(core),
	}

	hooks.changed(context.Background(), "event")
	hooks.broadcast(models.NotificationBroadcast{Type: models.NotificationAlert, Title: "Storm"})
	assert.Equal(t, 3, logs.Len())

	var empty contentHooks
	empty.changed(context.Background(), "event")
	empty.broadcast(models.NotificationBroadcast{})
}

func TestVisibleAtSkipsInvalidItems(t *testing.T) {
	resolver := visibility.NewResolver(time.UTC)
	now := time.Date(2024, time.June, 2, 12, 0, 0, 0, time.UTC)
	events := []models.CalendarEvent{
		{ID: 1, EventDate: day(2024, time.June, 2), IsActive: true},
		{ID: 2, IsActive: true},
		{ID: 3, EventDate: day(2024, time.June, 2), IsActive: false},
		{ID: 4, EventDate: day(2024, time.June, 3), IsActive: true},
	}
	recorder := &countingRecorder{}

	visible, skipped := visibleAt(resolver, events, now, "event", visibility.FromEvent,
		func(e models.CalendarEvent) int64 { return e.ID }, recorder, zap.NewNop())

	assert.Len(t, visible, 1)
	assert.Equal(t, int64(1), visible[0].ID)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"event"}, recorder.kinds)
}

func TestPageOf(t *testing.T) {
	p := pageOf(0, 0, 20, 100, 7)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 7}, p)
	p = pageOf(3, 500, 20, 100, 7)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 3, p.Page)
}

func TestContentHooksDoNotBlockOnSaturatedQueue(t *testing.T) {
	release := make(chan struct{})
	queue := jobs.NewQueue("test", func(ctx context.Context, _ jobs.Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, jobs.QueueConfig{Workers: 1, BufferSize: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	defer close(release)

	core, logs := observer.New(zapcore.WarnLevel)
	hooks := contentHooks{queue: queue, logger: zap.New(core)}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hooks.changed(context.Background(), "event")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("content write blocked on a saturated job queue")
	}
	assert.GreaterOrEqual(t, logs.FilterMessage("failed to enqueue job").Len(), 3)
}
