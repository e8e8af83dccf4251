package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

// Background job types.
const (
	JobSignageRefresh        = "signage.refresh"
	JobNotificationBroadcast = "notifications.broadcast"
)

// jobEnqueuer must not block; a full queue is reported as an error.
type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

type feedCache interface {
	Invalidate(ctx context.Context, pattern string) error
}

// contentHooks runs the side effects shared by every content write: drop the
// cached feeds, ask the worker to rebuild the signage snapshot and, for
// alerts, fan out a notification. Failures are logged and never fail the write.
type contentHooks struct {
	cache  feedCache
	queue  jobEnqueuer
	logger *zap.Logger
}

func (h contentHooks) changed(ctx context.Context, resource string) {
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, FeedCachePattern); err != nil {
			h.log().Warn("feed cache invalidation failed", zap.String("resource", resource), zap.Error(err))
		}
	}
	h.enqueue(jobs.Job{Type: JobSignageRefresh, Payload: resource})
}

func (h contentHooks) broadcast(b models.NotificationBroadcast) {
	h.enqueue(jobs.Job{Type: JobNotificationBroadcast, Payload: b})
}

func (h contentHooks) enqueue(job jobs.Job) {
	if h.queue == nil {
		return
	}
	if err := h.queue.TryEnqueue(job); err != nil {
		h.log().Warn("failed to enqueue job", zap.String("type", job.Type), zap.Error(err))
	}
}

func (h contentHooks) log() *zap.Logger {
	if h.logger == nil {
		return zap.NewNop()
	}
	return h.logger
}

type invalidItemRecorder interface {
	RecordInvalidItem(kind string)
}

// visibleAt keeps the items the resolver shows at now. Items whose dates
// cannot be resolved are skipped, logged and counted.
func visibleAt[T any](resolver *visibility.Resolver, items []T, now time.Time, kind string, toItem func(T) visibility.Item, id func(T) int64, metrics invalidItemRecorder, logger *zap.Logger) ([]T, int) {
	visible := make([]T, 0, len(items))
	skipped := 0
	for _, it := range items {
		ok, err := resolver.Visible(toItem(it), now)
		if err != nil {
			skipped++
			logger.Warn("skipping item with unresolvable dates", zap.String("kind", kind), zap.Int64("id", id(it)), zap.Error(err))
			if metrics != nil {
				metrics.RecordInvalidItem(kind)
			}
			continue
		}
		if ok {
			visible = append(visible, it)
		}
	}
	return visible, skipped
}

func pageOf(page, size, defaultSize, maxSize, total int) *models.Pagination {
	page, size = models.NormalizePage(page, size, defaultSize, maxSize)
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
