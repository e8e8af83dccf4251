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
	appErrors "github.com/noah-isme/sma-bulletin-api/pkg/errors"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

const broadcastChunk = 500

type notificationRepository interface {
	ListByUser(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, items []models.Notification) error
	MarkRead(ctx context.Context, id int64, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type activeUserLister interface {
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// CreateNotificationRequest targets UserIDs, or every active user when empty.
type CreateNotificationRequest struct {
	UserIDs []string                `json:"user_ids" validate:"omitempty,dive,required"`
	Type    models.NotificationType `json:"type" validate:"required,notification_type"`
	Title   string                  `json:"title" validate:"required,max=200"`
	Body    string                  `json:"body" validate:"max=2000"`
	Link    *string                 `json:"link" validate:"omitempty,max=500"`
}

// CreateNotificationResult reports what a create request did.
type CreateNotificationResult struct {
	Created []models.NotificationView `json:"created,omitempty"`
	Queued  bool                      `json:"queued"`
}

// NotificationService manages per-user notifications.
type NotificationService struct {
	repo      notificationRepository
	users     activeUserLister
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, users activeUserLister, queue jobEnqueuer, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return models.NotificationType(fl.Field().String()).Valid()
	})
	return &NotificationService{repo: repo, users: users, queue: queue, validator: validate, logger: logger, now: time.Now}
}

// List returns the user's notifications with icons.
func (s *NotificationService) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.NotificationView, *models.Pagination, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	views := make([]models.NotificationView, len(items))
	for i, n := range items {
		views[i] = models.NewNotificationView(n)
	}
	return views, pageOf(filter.Page, filter.PageSize, 20, 100, total), nil
}

// UnreadCount returns how many notifications the user has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// Create sends a notification to the listed users right away, or queues a
// broadcast when no users are listed.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*CreateNotificationResult, error) {
	req.Type = models.NotificationType(strings.ToUpper(string(req.Type)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}

	if len(req.UserIDs) == 0 {
		if s.queue == nil {
			return nil, appErrors.Clone(appErrors.ErrInternal, "broadcast queue unavailable")
		}
		job := jobs.Job{Type: JobNotificationBroadcast, Payload: models.NotificationBroadcast{Type: req.Type, Title: req.Title, Body: req.Body, Link: req.Link}}
		if err := s.queue.TryEnqueue(job); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue broadcast")
		}
		return &CreateNotificationResult{Queued: true}, nil
	}

	now := s.now().UTC()
	items := make([]models.Notification, 0, len(req.UserIDs))
	seen := make(map[string]struct{}, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, models.Notification{UserID: id, Type: req.Type, Title: req.Title, Body: req.Body, Link: req.Link, CreatedAt: now})
	}
	if err := s.repo.CreateBatch(ctx, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notifications")
	}
	views := make([]models.NotificationView, len(items))
	for i, n := range items {
		views[i] = models.NewNotificationView(n)
	}
	return &CreateNotificationResult{Created: views}, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id int64, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "unread notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return count, nil
}

// Broadcast creates b for every active user and returns how many were written.
func (s *NotificationService) Broadcast(ctx context.Context, b models.NotificationBroadcast) (int, error) {
	if !b.Type.Valid() || strings.TrimSpace(b.Title) == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "broadcast needs a known type and a title")
	}
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recipients")
	}

	now := s.now().UTC()
	written := 0
	for start := 0; start < len(ids); start += broadcastChunk {
		end := start + broadcastChunk
		if end > len(ids) {
			end = len(ids)
		}
		batch := make([]models.Notification, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, models.Notification{UserID: id, Type: b.Type, Title: b.Title, Body: b.Body, Link: b.Link, CreatedAt: now})
		}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return written, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write broadcast batch")
		}
		written += len(batch)
	}
	s.logger.Info("notification broadcast", zap.String("type", string(b.Type)), zap.Int("recipients", written))
	return written, nil
}
