package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/feed"
	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
)

// SignageCacheKey holds the latest composed signage feed.
const SignageCacheKey = "feed:signage"

// Feed composition triggers, used as metric labels.
const (
	FeedSourceRequest   = "request"
	FeedSourceSignage   = "signage"
	FeedSourceScheduler = "scheduler"
)

type activeEventSource interface {
	active(ctx context.Context, now time.Time, calendarIDs []int64) ([]models.CalendarEvent, int, error)
}

type activeAnnouncementSource interface {
	active(ctx context.Context, now time.Time) ([]models.Announcement, int, error)
}

type welcomeSource interface {
	Public(ctx context.Context) ([]models.PublicWelcomeAsset, error)
}

type feedCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// FeedService composes the combined bulletin feed.
type FeedService struct {
	events        activeEventSource
	announcements activeAnnouncementSource
	welcome       welcomeSource
	resolver      *visibility.Resolver
	selector      *feed.Selector
	cache         feedCacheStore
	ttl           time.Duration
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
}

// NewFeedService constructs the service.
func NewFeedService(events *EventService, announcements *AnnouncementService, welcome welcomeSource, resolver *visibility.Resolver, cache feedCacheStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *FeedService {
	return newFeedService(events, announcements, welcome, resolver, cache, ttl, metrics, logger)
}

func newFeedService(events activeEventSource, announcements activeAnnouncementSource, welcome welcomeSource, resolver *visibility.Resolver, cache feedCacheStore, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &FeedService{
		events:        events,
		announcements: announcements,
		welcome:       welcome,
		resolver:      resolver,
		selector:      feed.NewSelector(resolver),
		cache:         cache,
		ttl:           ttl,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Compose builds the feed as seen at the reference instant at.
func (s *FeedService) Compose(ctx context.Context, at time.Time) (*models.Feed, error) {
	return s.compose(ctx, at, FeedSourceRequest)
}

// Signage returns the feed for the current instant, served from cache when
// possible. The boolean reports a cache hit.
func (s *FeedService) Signage(ctx context.Context) (*models.Feed, bool, error) {
	if s.cache != nil {
		var cached models.Feed
		hit, err := s.cache.Get(ctx, SignageCacheKey, &cached)
		if err == nil && hit && cached.Day == s.resolver.DayKey(s.now()) {
			return &cached, true, nil
		}
	}
	result, err := s.compose(ctx, s.now(), FeedSourceSignage)
	if err != nil {
		return nil, false, err
	}
	s.store(ctx, result)
	return result, false, nil
}

// RefreshSignage recomposes the signage feed and overwrites the cached copy.
func (s *FeedService) RefreshSignage(ctx context.Context) (*models.Feed, error) {
	result, err := s.compose(ctx, s.now(), FeedSourceScheduler)
	if err != nil {
		return nil, err
	}
	s.store(ctx, result)
	return result, nil
}

func (s *FeedService) store(ctx context.Context, result *models.Feed) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, SignageCacheKey, result, s.ttl); err != nil {
		s.logger.Warn("failed to cache signage feed", zap.Error(err))
	}
}

func (s *FeedService) compose(ctx context.Context, at time.Time, source string) (*models.Feed, error) {
	events, skippedEvents, err := s.events.active(ctx, at, nil)
	if err != nil {
		return nil, err
	}
	announcements, skippedAnnouncements, err := s.announcements.active(ctx, at)
	if err != nil {
		return nil, err
	}
	var assets []models.PublicWelcomeAsset
	if s.welcome != nil {
		if assets, err = s.welcome.Public(ctx); err != nil {
			return nil, err
		}
	}

	result := &models.Feed{
		GeneratedAt:   at.In(s.resolver.Location()),
		Day:           s.resolver.DayKey(at),
		Timezone:      s.resolver.Location().String(),
		EventsFirst:   s.selector.EventsFirst(events, announcements),
		Alerts:        []models.FeedAlert{},
		Announcements: []models.Announcement{},
		Events:        []models.CalendarEvent{},
		WelcomeAssets: assets,
		SkippedItems:  skippedEvents + skippedAnnouncements,
	}
	if result.WelcomeAssets == nil {
		result.WelcomeAssets = []models.PublicWelcomeAsset{}
	}

	for _, e := range events {
		if !e.IsAlert {
			result.Events = append(result.Events, e)
			continue
		}
		body := e.Description
		if e.Location != nil && *e.Location != "" {
			body = *e.Location
		}
		result.Alerts = append(result.Alerts, models.FeedAlert{Kind: models.FeedItemEvent, ID: e.ID, Title: e.Title, Body: body, Date: feed.EventDate(e)})
	}
	for _, a := range announcements {
		if !a.IsAlert {
			result.Announcements = append(result.Announcements, a)
			continue
		}
		result.Alerts = append(result.Alerts, models.FeedAlert{Kind: models.FeedItemAnnouncement, ID: a.ID, Title: a.Title, Body: excerpt(a.Content, 140), Date: feed.AnnouncementDate(a)})
	}
	sort.SliceStable(result.Alerts, func(i, j int) bool {
		return result.Alerts[i].Date.After(result.Alerts[j].Date)
	})

	s.metrics.RecordFeedComposition(source)
	return result, nil
}
