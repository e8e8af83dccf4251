package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const notificationColumns = "id, user_id, type, title, body, link, read_at, created_at"

// NotificationRepository persists per-user notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	whereClause := "user_id = $1"
	if filter.UnreadOnly {
		whereClause += " AND read_at IS NULL"
	}
	limit, offset := paging(filter.Page, filter.PageSize, 20, 100)

	query := fmt.Sprintf("SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", notificationColumns, whereClause, limit, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE "+whereClause, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns how many notifications the user has not read.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL", userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

const insertNotification = `INSERT INTO notifications (user_id, type, title, body, link, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

// Create inserts one notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := r.db.QueryRowxContext(ctx, insertNotification, n.UserID, n.Type, n.Title, n.Body, n.Link, n.CreatedAt).Scan(&n.ID); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// CreateBatch inserts notifications in a single transaction.
func (r *NotificationRepository) CreateBatch(ctx context.Context, items []models.Notification) (err error) {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range items {
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		n := &items[i]
		if scanErr := tx.QueryRowxContext(ctx, insertNotification, n.UserID, n.Type, n.Title, n.Body, n.Link, n.CreatedAt).Scan(&n.ID); scanErr != nil {
			return fmt.Errorf("insert notification for %s: %w", n.UserID, scanErr)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit notification batch: %w", err)
	}
	return nil
}

// MarkRead marks one of the user's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL", id, userID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res, "mark notification read")
}

// MarkAllRead marks every unread notification of the user and returns the count.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE notifications SET read_at = $2 WHERE user_id = $1 AND read_at IS NULL", userID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read rows affected: %w", err)
	}
	return affected, nil
}
