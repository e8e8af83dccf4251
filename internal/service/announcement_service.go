package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
	"github.com/noah-isme/sma-bulletin-api/internal/visibility"
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	ListActive(ctx context.Context) ([]models.Announcement, error)
	GetByID(ctx context.Context, id int64) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Delete(ctx context.Context, id int64) error
}

// AnnouncementRequest is the payload for creating or replacing an announcement.
type AnnouncementRequest struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Content           string  `json:"content" validate:"required,max=10000"`
	IsActive          *bool   `json:"is_active"`
	IsAlert           bool    `json:"is_alert"`
	VisibilityStartAt *string `json:"visibility_start_at"`
	VisibilityEndAt   *string `json:"visibility_end_at"`
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	resolver  *visibility.Resolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	hooks     contentHooks
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, resolver *visibility.Resolver, cache feedCache, queue jobEnqueuer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = visibility.NewResolver(nil)
	}
	return &AnnouncementService{
		repo:      repo,
		resolver:  resolver,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		hooks:     contentHooks{cache: cache, queue: queue, logger: logger},
		now:       time.Now,
	}
}

// List returns paginated announcements.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return items, pageOf(filter.Page, filter.PageSize, 20, 100, total), nil
}

// Active returns announcements visible at now, newest first.
func (s *AnnouncementService) Active(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	items, _, err := s.active(ctx, now)
	return items, err
}

func (s *AnnouncementService) active(ctx context.Context, now time.Time) ([]models.Announcement, int, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active announcements")
	}
	visible, skipped := visibleAt(s.resolver, items, now, string(models.FeedItemAnnouncement), visibility.FromAnnouncement,
		func(a models.Announcement) int64 { return a.ID }, s.metrics, s.logger)
	return visible, skipped, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id int64) (*models.Announcement, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return item, nil
}

// Create adds an announcement. Active alerts are broadcast to every user.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest, actorID string) (*models.Announcement, error) {
	item := &models.Announcement{IsActive: true, CreatedBy: actorID, CreatedAt: s.now().UTC()}
	if err := s.apply(item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.logger.Info("announcement created", zap.Int64("id", item.ID), zap.Bool("alert", item.IsAlert))
	s.hooks.changed(ctx, "announcement")
	if item.IsAlert && item.IsActive {
		s.hooks.broadcast(models.NotificationBroadcast{
			Type:  models.NotificationAlert,
			Title: item.Title,
			Body:  excerpt(item.Content, 140),
		})
	}
	return item, nil
}

// Update replaces an announcement's fields.
func (s *AnnouncementService) Update(ctx context.Context, id int64, req AnnouncementRequest) (*models.Announcement, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(item, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	s.hooks.changed(ctx, "announcement")
	return item, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.hooks.changed(ctx, "announcement")
	return nil
}

func (s *AnnouncementService) apply(item *models.Announcement, req AnnouncementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	start, err := s.optionalMarker(req.VisibilityStartAt)
	if err != nil {
		return err
	}
	end, err := s.optionalMarker(req.VisibilityEndAt)
	if err != nil {
		return err
	}

	item.Title = strings.TrimSpace(req.Title)
	item.Content = req.Content
	item.IsAlert = req.IsAlert
	item.VisibilityStartAt = start
	item.VisibilityEndAt = end
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if end != nil && s.resolver.DayKey(*end) < s.resolver.DayKey(item.StartMarker()) {
		return appErrors.Clone(appErrors.ErrValidation, "visibility_end_at must not be before the visibility start")
	}
	return nil
}

func (s *AnnouncementService) optionalMarker(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := s.resolver.ParseMarker(*raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
