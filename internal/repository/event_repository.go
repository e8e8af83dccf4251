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

const eventColumns = "id, calendar_id, title, description, location, event_date, end_date, is_active, is_alert, created_by, created_at, updated_at"

// EventRepository persists calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func eventWhere(filter models.CalendarFilter) (string, []interface{}) {
	where := []string{"1=1"}
	args := []interface{}{}
	if len(filter.CalendarIDs) > 0 {
		where = append(where, fmt.Sprintf("calendar_id = ANY($%d)", len(args)+1))
		args = append(args, pqInt64Array(filter.CalendarIDs))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("COALESCE(end_date, event_date) >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("event_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	return strings.Join(where, " AND "), args
}

// List returns events matching filters with the total count.
func (r *EventRepository) List(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, int, error) {
	whereClause, args := eventWhere(filter)
	limit, offset := paging(filter.Page, filter.PageSize, 50, 200)

	query := fmt.Sprintf("SELECT %s FROM calendar_events WHERE %s ORDER BY event_date DESC, id DESC LIMIT %d OFFSET %d", eventColumns, whereClause, limit, offset)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list calendar events: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM calendar_events WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count calendar events: %w", err)
	}
	return events, total, nil
}

// ListActive returns every active event, optionally on the given calendars.
// Whether an event is inside its date window is decided by the caller.
func (r *EventRepository) ListActive(ctx context.Context, calendarIDs []int64) ([]models.CalendarEvent, error) {
	query := "SELECT " + eventColumns + " FROM calendar_events WHERE is_active = TRUE"
	args := []interface{}{}
	if len(calendarIDs) > 0 {
		query += " AND calendar_id = ANY($1)"
		args = append(args, pqInt64Array(calendarIDs))
	}
	query += " ORDER BY event_date ASC, id ASC"
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list active calendar events: %w", err)
	}
	return events, nil
}

// GetByID returns an event by identifier.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	query := "SELECT " + eventColumns + " FROM calendar_events WHERE id = $1"
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar event: %w", err)
	}
	return &event, nil
}

// Create inserts a new event and sets its generated id.
func (r *EventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO calendar_events (calendar_id, title, description, location, event_date, end_date, is_active, is_alert, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		event.CalendarID, event.Title, event.Description, event.Location, event.EventDate, event.EndDate,
		event.IsActive, event.IsAlert, event.CreatedBy, event.CreatedAt, event.UpdatedAt)
	if err := row.Scan(&event.ID); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// Update modifies an event.
func (r *EventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET calendar_id = :calendar_id, title = :title, description = :description, location = :location,
event_date = :event_date, end_date = :end_date, is_active = :is_active, is_alert = :is_alert, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update calendar event: %w", err)
	}
	return requireAffected(res, "update calendar event")
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return requireAffected(res, "delete calendar event")
}
