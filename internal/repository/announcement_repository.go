package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const announcementColumns = "id, title, content, is_active, is_alert, visibility_start_at, visibility_end_at, created_by, created_at, updated_at"

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements matching the filter, newest first.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if filter.AlertOnly {
		where = append(where, "is_alert = TRUE")
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(content) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("(visibility_end_at IS NULL OR visibility_end_at >= $%d)", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("COALESCE(visibility_start_at, created_at) <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")
	limit, offset := paging(filter.Page, filter.PageSize, 20, 100)

	query := fmt.Sprintf(`SELECT %s
FROM announcements WHERE %s
ORDER BY COALESCE(visibility_start_at, created_at) DESC, id DESC
LIMIT %d OFFSET %d`, announcementColumns, whereClause, limit, offset)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM announcements WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// ListActive returns every announcement flagged active.
func (r *AnnouncementRepository) ListActive(ctx context.Context) ([]models.Announcement, error) {
	query := "SELECT " + announcementColumns + " FROM announcements WHERE is_active = TRUE ORDER BY COALESCE(visibility_start_at, created_at) DESC, id DESC"
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query); err != nil {
		return nil, fmt.Errorf("list active announcements: %w", err)
	}
	return announcements, nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	query := "SELECT " + announcementColumns + " FROM announcements WHERE id = $1"
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return &announcement, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (title, content, is_active, is_alert, visibility_start_at, visibility_end_at, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		announcement.Title, announcement.Content, announcement.IsActive, announcement.IsAlert,
		announcement.VisibilityStartAt, announcement.VisibilityEndAt, announcement.CreatedBy,
		announcement.CreatedAt, announcement.UpdatedAt)
	if err := row.Scan(&announcement.ID); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, content = :content, is_active = :is_active, is_alert = :is_alert,
visibility_start_at = :visibility_start_at, visibility_end_at = :visibility_end_at, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, announcement)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return requireAffected(res, "update announcement")
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	return requireAffected(res, "delete announcement")
}
