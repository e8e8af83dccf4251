package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

const calendarColumns = "id, name, color, description, is_active, created_at, updated_at"

// CalendarRepository persists calendars.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// List returns calendars ordered by name.
func (r *CalendarRepository) List(ctx context.Context, activeOnly bool) ([]models.Calendar, error) {
	query := "SELECT " + calendarColumns + " FROM calendars"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY name ASC, id ASC"
	var calendars []models.Calendar
	if err := r.db.SelectContext(ctx, &calendars, query); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return calendars, nil
}

// GetByID returns a calendar by identifier.
func (r *CalendarRepository) GetByID(ctx context.Context, id int64) (*models.Calendar, error) {
	query := "SELECT " + calendarColumns + " FROM calendars WHERE id = $1"
	var calendar models.Calendar
	if err := r.db.GetContext(ctx, &calendar, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return &calendar, nil
}

// Create inserts a calendar and sets its generated id.
func (r *CalendarRepository) Create(ctx context.Context, calendar *models.Calendar) error {
	now := time.Now().UTC()
	calendar.CreatedAt = now
	calendar.UpdatedAt = now
	const query = `INSERT INTO calendars (name, color, description, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, calendar.Name, calendar.Color, calendar.Description, calendar.IsActive, calendar.CreatedAt, calendar.UpdatedAt).Scan(&calendar.ID); err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	return nil
}

// Update modifies an existing calendar.
func (r *CalendarRepository) Update(ctx context.Context, calendar *models.Calendar) error {
	calendar.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendars SET name = :name, color = :color, description = :description, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, calendar)
	if err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	return requireAffected(res, "update calendar")
}

// Delete removes a calendar. Its events go with it through ON DELETE CASCADE.
func (r *CalendarRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM calendars WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return requireAffected(res, "delete calendar")
}
